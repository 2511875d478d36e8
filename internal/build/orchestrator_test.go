package build_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"buildbench/internal/build"
	"buildbench/internal/config"
	"buildbench/internal/presets"
	"buildbench/internal/progress"
	"buildbench/internal/workspace"
)

type stubRunner struct {
	mu       sync.Mutex
	calls    []build.Invocation
	outcomes map[string]build.Outcome
	errs     map[string]error
	gate     chan struct{}
}

func (s *stubRunner) Run(_ context.Context, inv build.Invocation) (build.Outcome, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, inv)
	name := programArg(inv)
	if err := s.errs[name]; err != nil {
		return build.Outcome{}, err
	}
	if out, ok := s.outcomes[name]; ok {
		return out, nil
	}
	return build.Outcome{Exited: true}, nil
}

func (s *stubRunner) invocations() []build.Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]build.Invocation(nil), s.calls...)
}

func programArg(inv build.Invocation) string {
	for i, a := range inv.Args {
		if a == "-p" && i+1 < len(inv.Args) {
			return inv.Args[i+1]
		}
	}
	return ""
}

type memRecorder struct {
	mu      sync.Mutex
	records []build.BatchRecord
}

func (r *memRecorder) RecordBatch(_ context.Context, rec build.BatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func buildConfig() config.Build {
	return config.Default().Build
}

func newOrchestrator(runner build.Runner, opts ...build.Option) *build.Orchestrator {
	opts = append([]build.Option{build.WithRunner(runner), build.WithIDGenerator(func() string { return "batch-1" })}, opts...)
	return build.New(buildConfig(), opts...)
}

func program(name string, feats []string, selected ...bool) workspace.Program {
	p := workspace.Program{Name: name, Path: "/ws/programs/" + name}
	for _, f := range feats {
		p.Features = append(p.Features, workspace.Feature{Name: f})
	}
	p.Selected = make([]bool, len(p.Features))
	copy(p.Selected, selected)
	return p
}

func texts(msgs []progress.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func runBatch(t *testing.T, o *build.Orchestrator, req build.Request) []progress.Message {
	t.Helper()
	ch := progress.New()
	if _, err := o.Run(context.Background(), req, ch); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return ch.Drain()
}

func assertTexts(t *testing.T, got []progress.Message, want ...string) {
	t.Helper()
	if g := texts(got); !reflect.DeepEqual(g, want) {
		t.Fatalf("unexpected progress:\n got  %q\n want %q", g, want)
	}
}

func TestSelectiveBuildsOnlySelectedPrograms(t *testing.T) {
	runner := &stubRunner{}
	programs := []workspace.Program{
		program("vault", []string{"prod", "staking"}, false, true),
		program("idle", []string{"prod"}),
	}

	msgs := runBatch(t, newOrchestrator(runner), build.Request{Mode: build.ModeSelective, Programs: programs})

	assertTexts(t, msgs,
		"Running: anchor build -p vault -- --features staking (from /ws/programs/vault)",
		"Build succeeded.",
		"Build complete.",
	)
	calls := runner.invocations()
	if len(calls) != 1 || calls[0].Dir != "/ws/programs/vault" || calls[0].Binary != "anchor" {
		t.Fatalf("unexpected invocations: %+v", calls)
	}
	if msgs[0].Kind != progress.KindAnnounce || msgs[1].Kind != progress.KindSucceeded || msgs[2].Kind != progress.KindComplete {
		t.Fatalf("unexpected kinds: %v %v %v", msgs[0].Kind, msgs[1].Kind, msgs[2].Kind)
	}
	if msgs[0].Batch != "batch-1" || msgs[0].Program != "vault" {
		t.Fatalf("unexpected message metadata: %+v", msgs[0])
	}
}

func TestEmptySelectionOnlyCompletes(t *testing.T) {
	runner := &stubRunner{}
	msgs := runBatch(t, newOrchestrator(runner), build.Request{
		Mode:     build.ModeSelective,
		Programs: []workspace.Program{program("vault", []string{"prod"})},
	})
	assertTexts(t, msgs, "Build complete.")
	if len(runner.invocations()) != 0 {
		t.Fatal("expected no invocations")
	}
}

func TestOutputOrderingAndFailureContinues(t *testing.T) {
	runner := &stubRunner{outcomes: map[string]build.Outcome{
		"alpha": {Stdout: []byte("compiling\n"), Stderr: []byte("warning: unused\n"), Exited: true, ExitCode: 1},
		"beta":  {Stdout: []byte("done\n"), Exited: true},
	}}
	programs := []workspace.Program{
		program("alpha", []string{"prod"}, true),
		program("beta", []string{"prod"}, true),
	}

	msgs := runBatch(t, newOrchestrator(runner), build.Request{Mode: build.ModeSelective, Programs: programs})

	assertTexts(t, msgs,
		"Running: anchor build -p alpha -- --features prod (from /ws/programs/alpha)",
		"compiling",
		"warning: unused",
		"Build failed with code 1",
		"Running: anchor build -p beta -- --features prod (from /ws/programs/beta)",
		"done",
		"Build succeeded.",
		"Build complete.",
	)
	if msgs[1].Kind != progress.KindStdout || msgs[2].Kind != progress.KindStderr || msgs[3].Kind != progress.KindFailed {
		t.Fatalf("unexpected kinds: %v %v %v", msgs[1].Kind, msgs[2].Kind, msgs[3].Kind)
	}
}

func TestSpawnFailureAndSignal(t *testing.T) {
	runner := &stubRunner{
		errs:     map[string]error{"alpha": errors.New(`exec: "anchor": executable file not found in $PATH`)},
		outcomes: map[string]build.Outcome{"beta": {Signal: "SIGKILL"}},
	}
	programs := []workspace.Program{
		program("alpha", nil),
		program("beta", nil),
	}

	msgs := runBatch(t, newOrchestrator(runner), build.Request{Mode: build.ModeAll, Programs: programs})

	assertTexts(t, msgs,
		"Running: anchor build -p alpha (from /ws/programs/alpha)",
		`Command failed: exec: "anchor": executable file not found in $PATH`,
		"Running: anchor build -p beta (from /ws/programs/beta)",
		"Build failed with code unknown (signal: SIGKILL)",
		"Build complete.",
	)
	if msgs[1].Kind != progress.KindSpawnFailed {
		t.Fatalf("expected spawn_failed kind, got %v", msgs[1].Kind)
	}
}

func TestAllForcedAndOutputDir(t *testing.T) {
	runner := &stubRunner{}
	programs := []workspace.Program{program("vault", []string{"staking"}, true)}

	msgs := runBatch(t, newOrchestrator(runner), build.Request{
		Mode:      build.ModeAllForced,
		Programs:  programs,
		OutputDir: "/tmp/idl out",
	})

	assertTexts(t, msgs,
		`Running: anchor build -p vault -t "/tmp/idl out" -- --features prod (from /ws/programs/vault)`,
		"Build succeeded.",
		"Build complete.",
	)
	want := []string{"build", "-p", "vault", "-t", "/tmp/idl out", "--", "--features", "prod"}
	if got := runner.invocations()[0].Args; !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected args: got %q want %q", got, want)
	}
}

func TestPresetSkipsMissingProgramsAfterBuilds(t *testing.T) {
	runner := &stubRunner{}
	preset := &presets.Preset{Name: "release", Entries: []presets.Entry{
		{Program: "ghost", Features: []string{"prod"}},
		{Program: "vault", Features: []string{"prod", "staking"}},
	}}
	programs := []workspace.Program{program("vault", []string{"prod", "staking"}), program("other", []string{"prod"}, true)}

	msgs := runBatch(t, newOrchestrator(runner), build.Request{Mode: build.ModePreset, Programs: programs, Preset: preset})

	assertTexts(t, msgs,
		"Running: anchor build -p vault -- --features prod,staking (from /ws/programs/vault)",
		"Build succeeded.",
		"Skipped ghost: not found in workspace",
		"Build complete.",
	)
	if msgs[2].Kind != progress.KindSkipped {
		t.Fatalf("expected skipped kind, got %v", msgs[2].Kind)
	}
}

func TestPresetModeRequiresPreset(t *testing.T) {
	o := newOrchestrator(&stubRunner{})
	if _, err := o.Start(build.Request{Mode: build.ModePreset}, progress.New()); !errors.Is(err, build.ErrNoPreset) {
		t.Fatalf("expected ErrNoPreset, got %v", err)
	}
}

type limitedSender struct {
	ch    *progress.Channel
	limit int
}

func (l *limitedSender) Send(msg progress.Message) error {
	if l.ch.Len() >= l.limit {
		l.ch.Close()
	}
	return l.ch.Send(msg)
}

func TestClosedChannelStopsBatch(t *testing.T) {
	runner := &stubRunner{}
	programs := []workspace.Program{
		program("alpha", []string{"prod"}, true),
		program("beta", []string{"prod"}, true),
	}
	sender := &limitedSender{ch: progress.New(), limit: 2}
	rec := &memRecorder{}

	o := newOrchestrator(runner, build.WithRecorder(rec))
	if _, err := o.Run(context.Background(), build.Request{Mode: build.ModeSelective, Programs: programs}, sender); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if calls := runner.invocations(); len(calls) != 1 {
		t.Fatalf("expected only the first program to run, got %d invocations", len(calls))
	}
	assertTexts(t, sender.ch.Drain(),
		"Running: anchor build -p alpha -- --features prod (from /ws/programs/alpha)",
		"Build succeeded.",
	)
	if len(rec.records) != 1 || !rec.records[0].Aborted {
		t.Fatalf("expected an aborted record, got %+v", rec.records)
	}
}

func TestAbortedRecordKeepsProgramThatRan(t *testing.T) {
	runner := &stubRunner{outcomes: map[string]build.Outcome{
		"alpha": {Stdout: []byte("compiled\n"), Exited: true, ExitCode: 1},
	}}
	programs := []workspace.Program{
		program("alpha", []string{"prod"}, true),
		program("beta", []string{"prod"}, true),
	}
	sender := &limitedSender{ch: progress.New(), limit: 1}
	rec := &memRecorder{}

	o := newOrchestrator(runner, build.WithRecorder(rec))
	if _, err := o.Run(context.Background(), build.Request{Mode: build.ModeSelective, Programs: programs}, sender); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if calls := runner.invocations(); len(calls) != 1 {
		t.Fatalf("expected only alpha to run, got %d invocations", len(calls))
	}
	if len(rec.records) != 1 {
		t.Fatalf("expected one record, got %d", len(rec.records))
	}
	got := rec.records[0]
	if !got.Aborted || len(got.Results) != 1 {
		t.Fatalf("expected an aborted record holding alpha, got %+v", got)
	}
	res := got.Results[0]
	if res.Program != "alpha" || res.Status != build.StatusFailed || res.ExitCode == nil || *res.ExitCode != 1 {
		t.Fatalf("unexpected alpha result: %+v", res)
	}
	if res.Detail != "Build failed with code 1" {
		t.Fatalf("unexpected detail %q", res.Detail)
	}
}

func TestBlankOutputIsNotForwarded(t *testing.T) {
	runner := &stubRunner{outcomes: map[string]build.Outcome{
		"vault": {Stdout: []byte("\n"), Stderr: []byte("\r\n"), Exited: true},
	}}

	msgs := runBatch(t, newOrchestrator(runner), build.Request{
		Mode:     build.ModeAll,
		Programs: []workspace.Program{program("vault", nil)},
	})

	assertTexts(t, msgs,
		"Running: anchor build -p vault (from /ws/programs/vault)",
		"Build succeeded.",
		"Build complete.",
	)
}

func TestClosedBeforeStartSpawnsNothing(t *testing.T) {
	runner := &stubRunner{}
	ch := progress.New()
	ch.Close()

	o := newOrchestrator(runner)
	if _, err := o.Start(build.Request{Mode: build.ModeAll, Programs: []workspace.Program{program("vault", nil)}}, ch); err != nil {
		t.Fatalf("Start: %v", err)
	}
	o.Wait()
	if len(runner.invocations()) != 0 {
		t.Fatal("expected no invocations after the consumer closed the channel")
	}
}

func TestStartRejectsSecondBatch(t *testing.T) {
	runner := &stubRunner{gate: make(chan struct{})}
	o := newOrchestrator(runner)
	ch := progress.New()
	req := build.Request{Mode: build.ModeAll, Programs: []workspace.Program{program("vault", nil)}}

	id, err := o.Start(req, ch)
	if err != nil || id != "batch-1" {
		t.Fatalf("Start: id=%q err=%v", id, err)
	}
	if !o.Busy() {
		t.Fatal("expected orchestrator to be busy")
	}
	if _, err := o.Start(req, ch); !errors.Is(err, build.ErrBatchInFlight) {
		t.Fatalf("expected ErrBatchInFlight, got %v", err)
	}
	close(runner.gate)
	o.Wait()

	if o.Busy() {
		t.Fatal("expected orchestrator to be idle after Wait")
	}
	if _, err := o.Start(req, ch); err != nil {
		t.Fatalf("expected a new batch to start, got %v", err)
	}
	o.Wait()
}

func TestStartSnapshotsPrograms(t *testing.T) {
	runner := &stubRunner{gate: make(chan struct{})}
	o := newOrchestrator(runner)
	programs := []workspace.Program{program("vault", []string{"prod", "staking"}, true, false)}

	if _, err := o.Start(build.Request{Mode: build.ModeSelective, Programs: programs}, progress.New()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	programs[0].Selected[0] = false
	programs[0].Selected[1] = true
	close(runner.gate)
	o.Wait()

	calls := runner.invocations()
	if len(calls) != 1 || calls[0].Args[len(calls[0].Args)-1] != "prod" {
		t.Fatalf("expected the snapshot selection to be built, got %+v", calls)
	}
}

func TestRecorderReceivesBatch(t *testing.T) {
	runner := &stubRunner{outcomes: map[string]build.Outcome{"beta": {Exited: true, ExitCode: 2}}}
	rec := &memRecorder{}
	o := newOrchestrator(runner, build.WithRecorder(rec))

	runBatch(t, o, build.Request{Mode: build.ModeAll, Programs: []workspace.Program{program("alpha", nil), program("beta", nil)}})

	if len(rec.records) != 1 {
		t.Fatalf("expected one record, got %d", len(rec.records))
	}
	got := rec.records[0]
	if got.ID != "batch-1" || got.Mode != build.ModeAll || got.Succeeded() != 1 || got.Failed() != 1 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Results[1].ExitCode == nil || *got.Results[1].ExitCode != 2 {
		t.Fatalf("expected exit code 2 recorded, got %+v", got.Results[1])
	}
}
