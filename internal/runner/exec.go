package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/violenttestpen/mtime/internal/rusage"
)

var (
	// ErrLaunch is returned when the command could not be started at all.
	ErrLaunch = errors.New("failed to launch command")

	// ErrCollect is returned when the command ran but its output or exit
	// status could not be collected.
	ErrCollect = errors.New("failed to collect command result")
)

// Output holds what a run wrote to its standard streams.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Result is the outcome of one synchronous execution. A non-zero ExitCode
// is a normal result, not an error.
type Result struct {
	Output
	Wall     time.Duration
	ExitCode int
}

// Executor runs a command to completion.
type Executor interface {
	Run(ctx context.Context, argv []string) (Result, error)
}

// ProcessExecutor runs commands as child processes of the current process.
type ProcessExecutor struct {
	tracker rusage.Tracker
}

// NewProcessExecutor returns an executor. tracker may be nil.
func NewProcessExecutor(tracker rusage.Tracker) *ProcessExecutor {
	return &ProcessExecutor{tracker: tracker}
}

func (e *ProcessExecutor) Run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("%w: empty command", ErrLaunch)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if e.tracker != nil {
		e.tracker.Prepare(cmd)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrLaunch, argv[0], err)
	}
	if e.tracker != nil {
		if err := e.tracker.Started(cmd); err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return Result{}, fmt.Errorf("%w: %s: %v", ErrLaunch, argv[0], err)
		}
	}

	err := cmd.Wait()
	wall := time.Since(start)

	res := Result{
		Output: Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()},
		Wall:   wall,
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return Result{}, fmt.Errorf("%w: %s: %v", ErrCollect, argv[0], err)
	}
	return res, nil
}

// ForwardOutput returns an OutputFunc writing captured stderr to stderr and,
// unless quiet, captured stdout to stdout.
func ForwardOutput(stdout, stderr io.Writer, quiet bool) OutputFunc {
	return func(out Output) error {
		if !quiet {
			if _, err := stdout.Write(out.Stdout); err != nil {
				return err
			}
		}
		_, err := stderr.Write(out.Stderr)
		return err
	}
}

var _ Executor = (*ProcessExecutor)(nil)
