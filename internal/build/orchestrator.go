package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"buildbench/internal/config"
	"buildbench/internal/logging"
	"buildbench/internal/progress"
	"buildbench/internal/workspace"
)

const (
	textSucceeded = "Build succeeded."
	textComplete  = "Build complete."
)

var (
	// ErrBatchInFlight is returned when a batch is started while another runs.
	ErrBatchInFlight = errors.New("a build batch is already running")
	// ErrNoPreset is returned for ModePreset requests without a preset.
	ErrNoPreset = errors.New("preset mode requires a preset")
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.runner = r
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder persists every finished batch.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithIDGenerator overrides batch id generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// Orchestrator runs build batches one at a time.
type Orchestrator struct {
	cfg      config.Build
	runner   Runner
	recorder Recorder
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time

	busy atomic.Bool
	wg   sync.WaitGroup
}

// New constructs an orchestrator for the given build tool settings.
func New(cfg config.Build, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		runner: ExecRunner(),
		logger: logging.NewNop(),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "build")
	return o
}

// Busy reports whether a batch is running.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Start launches a batch in the background and returns its id. The request is
// snapshotted before Start returns, so the caller may keep editing its
// program list.
func (o *Orchestrator) Start(req Request, out progress.Sender) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}
	if !o.busy.CompareAndSwap(false, true) {
		return "", ErrBatchInFlight
	}
	req = snapshot(req)
	id := o.newID()
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.busy.Store(false)
		o.execute(context.Background(), id, req, out)
	}()
	return id, nil
}

// Run executes a batch on the calling goroutine.
func (o *Orchestrator) Run(ctx context.Context, req Request, out progress.Sender) (BatchRecord, error) {
	if err := validate(req); err != nil {
		return BatchRecord{}, err
	}
	if !o.busy.CompareAndSwap(false, true) {
		return BatchRecord{}, ErrBatchInFlight
	}
	defer o.busy.Store(false)
	return o.execute(ctx, o.newID(), snapshot(req), out), nil
}

// Wait blocks until every batch launched by Start has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func validate(req Request) error {
	if req.Mode == ModePreset && req.Preset == nil {
		return ErrNoPreset
	}
	return nil
}

func snapshot(req Request) Request {
	req.Programs = workspace.CloneAll(req.Programs)
	if req.Preset != nil {
		p := req.Preset.Clone()
		req.Preset = &p
	}
	return req
}

type emitter struct {
	out   progress.Sender
	batch string
	gone  bool
}

func (e *emitter) send(kind progress.Kind, program, text string) bool {
	if e.gone {
		return false
	}
	err := e.out.Send(progress.Message{Kind: kind, Batch: e.batch, Program: program, Text: text})
	if err != nil {
		e.gone = true
		return false
	}
	return true
}

func (o *Orchestrator) execute(ctx context.Context, id string, req Request, out progress.Sender) BatchRecord {
	ctx = logging.WithBatchID(ctx, id)
	logger := logging.WithContext(ctx, o.logger)

	jobs, skipped := Plan(req, o.cfg.ForcedFeature)
	rec := BatchRecord{
		ID:        id,
		Mode:      req.Mode,
		OutputDir: req.OutputDir,
		StartedAt: o.now(),
		Skipped:   skipped,
	}
	if req.Preset != nil && req.Mode == ModePreset {
		rec.Preset = req.Preset.Name
	}
	logger.Info("build batch started",
		logging.String(logging.FieldMode, req.Mode.String()),
		logging.Int("programs", len(jobs)),
		logging.Int("skipped", len(skipped)),
	)

	em := &emitter{out: out, batch: id}
	for _, job := range jobs {
		res, ok := o.buildOne(ctx, em, job, req.OutputDir)
		if res.Status != "" {
			rec.Results = append(rec.Results, res)
		}
		if !ok {
			break
		}
	}
	for _, name := range skipped {
		if !em.send(progress.KindSkipped, name, fmt.Sprintf("Skipped %s: not found in workspace", name)) {
			break
		}
	}
	em.send(progress.KindComplete, "", textComplete)

	rec.FinishedAt = o.now()
	rec.Aborted = em.gone
	if em.gone {
		logger.Info("progress consumer gone; batch stopped",
			logging.String(logging.FieldEventType, "batch_aborted"),
			logging.Int("built", len(rec.Results)),
		)
	} else {
		logger.Info("build batch complete",
			logging.Int("succeeded", rec.Succeeded()),
			logging.Int("failed", rec.Failed()),
			logging.Duration("elapsed", rec.FinishedAt.Sub(rec.StartedAt)),
		)
	}
	if o.recorder != nil {
		if err := o.recorder.RecordBatch(ctx, rec); err != nil {
			logging.WarnWithContext(logger, "failed to record build history", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check history.path permissions"),
			)
		}
	}
	return rec
}

// buildOne runs a single job. It returns false once the consumer is gone.
func (o *Orchestrator) buildOne(ctx context.Context, em *emitter, job Job, outputDir string) (ProgramResult, bool) {
	inv := Compose(o.cfg, job, outputDir)
	command := inv.CommandLine()
	logger := logging.WithContext(logging.WithProgram(ctx, job.Program), o.logger)
	res := ProgramResult{Program: job.Program, Features: job.Features, Command: command}

	if !em.send(progress.KindAnnounce, job.Program, fmt.Sprintf("Running: %s (from %s)", command, job.Dir)) {
		return res, false
	}

	started := o.now()
	outcome, err := o.runner.Run(ctx, inv)
	res.Duration = o.now().Sub(started)

	if err != nil {
		res.Status = StatusSpawnFailed
		res.Detail = err.Error()
		logger.Warn("build command could not start",
			logging.Error(err),
			logging.String(logging.FieldEventType, "spawn_failed"),
			logging.String(logging.FieldErrorHint, "check build.tool_binary and the program directory"),
		)
		return res, em.send(progress.KindSpawnFailed, job.Program, "Command failed: "+err.Error())
	}

	if outcome.Exited {
		code := outcome.ExitCode
		res.ExitCode = &code
	}
	res.Signal = outcome.Signal
	res.Status = StatusSucceeded
	if !outcome.Succeeded() {
		res.Status = StatusFailed
		res.Detail = failureText(outcome)
	}

	if text := outputText(outcome.Stdout); text != "" && !em.send(progress.KindStdout, job.Program, text) {
		return res, false
	}
	if text := outputText(outcome.Stderr); text != "" && !em.send(progress.KindStderr, job.Program, text) {
		return res, false
	}

	if res.Status == StatusSucceeded {
		logger.Info("build succeeded", logging.Duration("elapsed", res.Duration))
		return res, em.send(progress.KindSucceeded, job.Program, textSucceeded)
	}
	logger.Warn("build failed",
		logging.String("status", res.Detail),
		logging.String(logging.FieldEventType, "build_failed"),
		logging.Duration("elapsed", res.Duration),
	)
	return res, em.send(progress.KindFailed, job.Program, res.Detail)
}

func failureText(o Outcome) string {
	if o.Exited {
		return fmt.Sprintf("Build failed with code %d", o.ExitCode)
	}
	if o.Signal != "" {
		return fmt.Sprintf("Build failed with code unknown (signal: %s)", o.Signal)
	}
	return "Build failed with code unknown"
}

func outputText(raw []byte) string {
	return strings.TrimRight(strings.ToValidUTF8(string(raw), "\uFFFD"), "\r\n")
}
