package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

// Outcome is the result of a process that was started.
type Outcome struct {
	Stdout []byte
	Stderr []byte
	// Exited is false when the process was terminated without an exit code.
	Exited   bool
	ExitCode int
	// Signal names the terminating signal when known.
	Signal string
}

// Succeeded reports a zero exit code.
func (o Outcome) Succeeded() bool {
	return o.Exited && o.ExitCode == 0
}

// Runner starts an invocation and waits for it. A non-nil error means the
// process could not be started at all; a process that ran and failed is
// reported through Outcome.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Outcome, error)
}

type execRunner struct{}

// ExecRunner runs invocations as child processes with the caller's
// environment, capturing stdout and stderr in full.
func ExecRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, inv Invocation) (Outcome, error) {
	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = os.Environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Outcome{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return out, err
		}
	}
	state := cmd.ProcessState
	if state == nil {
		return out, err
	}
	if code := state.ExitCode(); code >= 0 {
		out.Exited = true
		out.ExitCode = code
		return out, nil
	}
	out.Signal = signalName(state)
	return out, nil
}
