// Package rusage reads the cumulative CPU time consumed by the terminated
// children of the current process.
package rusage

import (
	"errors"
	"fmt"
	"os/exec"
	"time"
)

var (
	// ErrSample is returned when the operating system counters cannot be read.
	ErrSample = errors.New("failed to read child resource usage")

	// ErrCounterRegressed is returned when a later snapshot is smaller than an earlier one.
	ErrCounterRegressed = errors.New("cumulative child resource usage went backwards")
)

// Usage is a snapshot of CPU time. Snapshots from a Sampler only ever grow.
type Usage struct {
	User   time.Duration
	System time.Duration
}

// Sub returns the component-wise difference u - before.
func (u Usage) Sub(before Usage) (Usage, error) {
	delta := Usage{
		User:   u.User - before.User,
		System: u.System - before.System,
	}
	if delta.User < 0 || delta.System < 0 {
		return Usage{}, fmt.Errorf("%w: before=%+v after=%+v", ErrCounterRegressed, before, u)
	}
	return delta, nil
}

// Sampler takes cumulative usage snapshots.
type Sampler interface {
	Sample() (Usage, error)
}

// Tracker hooks into process creation for platforms where child CPU time
// is only visible if the child is registered with the sampler.
type Tracker interface {
	// Prepare is called before the command is started.
	Prepare(cmd *exec.Cmd)
	// Started is called right after the command is started.
	Started(cmd *exec.Cmd) error
}
