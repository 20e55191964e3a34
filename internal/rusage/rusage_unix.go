//go:build unix

package rusage

import (
	"fmt"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"
)

// ChildSampler reads RUSAGE_CHILDREN. Only children that have been waited
// for are accounted.
type ChildSampler struct{}

// NewChildSampler returns a sampler for the current process.
func NewChildSampler() (*ChildSampler, error) {
	return &ChildSampler{}, nil
}

// Sample returns the CPU time of all children reaped so far.
func (s *ChildSampler) Sample() (Usage, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_CHILDREN, &ru); err != nil {
		return Usage{}, fmt.Errorf("%w: getrusage: %v", ErrSample, err)
	}
	return Usage{
		User:   timevalToDuration(ru.Utime),
		System: timevalToDuration(ru.Stime),
	}, nil
}

// Prepare is a no-op, RUSAGE_CHILDREN covers every child.
func (s *ChildSampler) Prepare(*exec.Cmd) {}

// Started is a no-op, RUSAGE_CHILDREN covers every child.
func (s *ChildSampler) Started(*exec.Cmd) error { return nil }

// Close is a no-op, there is nothing to release.
func (s *ChildSampler) Close() error { return nil }

func timevalToDuration(tv unix.Timeval) time.Duration {
	return time.Duration(tv.Sec)*time.Second + time.Duration(tv.Usec)*time.Microsecond
}

var (
	_ Sampler = (*ChildSampler)(nil)
	_ Tracker = (*ChildSampler)(nil)
)
