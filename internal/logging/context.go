package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBatchID identifies one build batch.
	FieldBatchID = "batch_id"
	// FieldProgram is the program a log line refers to.
	FieldProgram = "program"
	// FieldMode is the build mode of a batch.
	FieldMode = "mode"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to the operator.
	FieldErrorHint = "error_hint"
)

type ctxKey int

const (
	batchKey ctxKey = iota
	programKey
)

// WithBatchID stores a batch identifier on ctx.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchKey, id)
}

// WithProgram stores the program being built on ctx.
func WithProgram(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, programKey, name)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ctx.Value(batchKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	if name, ok := ctx.Value(programKey).(string); ok && name != "" {
		fields = append(fields, slog.String(FieldProgram, name))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
