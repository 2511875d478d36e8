// Package session is the coordinating context between a display surface and
// the build engine.
//
// A Session owns the live program list and its selections, the progress
// channel and the accumulated log, the output directory, and the preset
// store. Nothing it does blocks on a build: Build and RunPreset hand a
// snapshot to the orchestrator and return, and Poll drains whatever progress
// has arrived since the last call.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"buildbench/internal/build"
	"buildbench/internal/logging"
	"buildbench/internal/presets"
	"buildbench/internal/progress"
	"buildbench/internal/selection"
	"buildbench/internal/workspace"
)

// Scanner discovers the current program list.
type Scanner interface {
	Scan(ctx context.Context) ([]workspace.Program, error)
}

// Builder starts build batches in the background.
type Builder interface {
	Start(req build.Request, out progress.Sender) (string, error)
	Busy() bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOutputDir sets the initial output directory.
func WithOutputDir(dir string) Option {
	return func(s *Session) {
		s.outputDir = strings.TrimSpace(dir)
	}
}

// WithChannel uses ch instead of a fresh progress channel.
func WithChannel(ch *progress.Channel) Option {
	return func(s *Session) {
		if ch != nil {
			s.ch = ch
		}
	}
}

// Session coordinates scans, selections, builds and presets.
type Session struct {
	scanner Scanner
	builder Builder
	store   *presets.Store
	logger  *slog.Logger
	ch      *progress.Channel

	mu        sync.Mutex
	programs  []workspace.Program
	outputDir string
	log       progress.Log
}

// New constructs a session. Call Rescan before reading programs.
func New(scanner Scanner, builder Builder, store *presets.Store, opts ...Option) *Session {
	s := &Session{
		scanner: scanner,
		builder: builder,
		store:   store,
		logger:  logging.NewNop(),
		ch:      progress.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "session")
	return s
}

// Rescan queries the workspace and carries selections over by name. On
// failure the current program list is kept.
func (s *Session) Rescan(ctx context.Context) error {
	fresh, err := s.scanner.Scan(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.programs = selection.Reconcile(s.programs, fresh)
	count := len(s.programs)
	s.mu.Unlock()
	s.logger.Debug("workspace rescanned", logging.Int("programs", count))
	return nil
}

// Programs returns a deep copy of the live program list.
func (s *Session) Programs() []workspace.Program {
	s.mu.Lock()
	defer s.mu.Unlock()
	return workspace.CloneAll(s.programs)
}

// Toggle flips one feature of one program.
func (s *Session) Toggle(program, feature string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return selection.Toggle(s.programs, program, feature)
}

// Select replaces a program's selection with features.
func (s *Session) Select(program string, features ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return selection.Set(s.programs, program, features...)
}

// ClearSelection unselects everything.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	selection.ClearAll(s.programs)
}

// Preview describes what a selective build would run.
func (s *Session) Preview() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return selection.Preview(s.programs)
}

// OutputDir returns the output directory passed to every build.
func (s *Session) OutputDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputDir
}

// SetOutputDir changes the output directory. An empty value clears it.
func (s *Session) SetOutputDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputDir = strings.TrimSpace(dir)
}

// Busy reports whether a batch is running.
func (s *Session) Busy() bool {
	return s.builder.Busy()
}

// Build starts a batch over the current selection snapshot.
func (s *Session) Build(mode build.Mode) (string, error) {
	return s.start(build.Request{Mode: mode})
}

// RunPreset starts a batch for exactly the given preset value.
func (s *Session) RunPreset(p presets.Preset) (string, error) {
	return s.start(build.Request{Mode: build.ModePreset, Preset: &p})
}

func (s *Session) start(req build.Request) (string, error) {
	s.mu.Lock()
	req.Programs = workspace.CloneAll(s.programs)
	req.OutputDir = s.outputDir
	s.mu.Unlock()

	id, err := s.builder.Start(req, s.ch)
	if err != nil {
		text := "Build not started: " + err.Error()
		if errors.Is(err, build.ErrBatchInFlight) {
			text = "A build is already running."
		}
		s.emit(progress.KindError, text)
		return "", err
	}
	s.logger.Info("build batch started",
		logging.String(logging.FieldBatchID, id),
		logging.String(logging.FieldMode, req.Mode.String()),
	)
	return id, nil
}

// Presets lists the saved presets.
func (s *Session) Presets() []presets.Preset {
	return s.store.Presets()
}

// SavePreset saves the current selection under name. The outcome is also
// reported on the progress channel: a notice when saved or when there was
// nothing to save, an error when the name is blank or the write failed.
func (s *Session) SavePreset(name string) (presets.Preset, bool, error) {
	s.mu.Lock()
	snapshot := workspace.CloneAll(s.programs)
	s.mu.Unlock()

	p, ok, err := s.store.Save(name, snapshot)
	switch {
	case errors.Is(err, presets.ErrEmptyName):
		s.emit(progress.KindError, "Preset name is empty.")
	case err != nil:
		s.emit(progress.KindError, fmt.Sprintf("Failed to save preset %q: %v", strings.TrimSpace(name), err))
	case !ok:
		s.emit(progress.KindNotice, "Nothing to save: no program has a selected feature.")
	default:
		s.emit(progress.KindNotice, fmt.Sprintf("Saved preset %q (%s).", p.Name, plural(len(p.Entries), "program")))
	}
	return p, ok, err
}

func (s *Session) emit(kind progress.Kind, text string) {
	if err := s.ch.Send(progress.Message{Kind: kind, Text: text}); err != nil {
		s.logger.Debug("progress consumer gone", logging.String("text", text))
	}
}

// Poll drains pending progress into the log and returns what arrived.
func (s *Session) Poll() []progress.Message {
	msgs := s.ch.Drain()
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	s.log.Append(msgs...)
	s.mu.Unlock()
	return msgs
}

// Log returns every message polled so far.
func (s *Session) Log() []progress.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Messages()
}

// ClearLog empties the accumulated log.
func (s *Session) ClearLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Reset()
}

// Channel exposes the progress channel for blocking consumers.
func (s *Session) Channel() *progress.Channel {
	return s.ch
}

// Close tells running batches the consumer is gone.
func (s *Session) Close() {
	s.ch.Close()
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
