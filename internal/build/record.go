package build

import (
	"context"
	"time"
)

// Status is the terminal state of one program in a batch.
type Status string

const (
	StatusSucceeded   Status = "succeeded"
	StatusFailed      Status = "failed"
	StatusSpawnFailed Status = "spawn_failed"
)

// ProgramResult captures one invocation for history.
type ProgramResult struct {
	Program  string
	Features []string
	Command  string
	Status   Status
	// ExitCode is nil when the process never produced one.
	ExitCode *int
	Signal   string
	Detail   string
	Duration time.Duration
}

// BatchRecord summarizes a finished batch.
type BatchRecord struct {
	ID         string
	Mode       Mode
	Preset     string
	OutputDir  string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []ProgramResult
	Skipped    []string
	// Aborted is set when the consumer went away mid-batch.
	Aborted bool
}

// Succeeded counts programs that built successfully.
func (r BatchRecord) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusSucceeded {
			n++
		}
	}
	return n
}

// Failed counts programs that failed or could not be spawned.
func (r BatchRecord) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// Recorder persists finished batches.
type Recorder interface {
	RecordBatch(ctx context.Context, rec BatchRecord) error
}
