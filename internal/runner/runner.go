// Package runner executes a command repeatedly and measures every run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/violenttestpen/mtime/internal/rusage"
)

var (
	// ErrConfig is returned for a configuration the loop cannot run.
	ErrConfig = errors.New("invalid run configuration")

	// ErrSetup is returned when the setup command fails.
	ErrSetup = errors.New("setup command failed")
)

// Config describes one benchmarking session. It is never modified by the Runner.
type Config struct {
	Command      []string
	Runs         int
	Warmup       int
	MaxSleep     time.Duration
	InitialDelay time.Duration
	Quiet        bool
	Setup        string
}

// Validate reports whether the loop can run with c.
func (c Config) Validate() error {
	switch {
	case len(c.Command) == 0 || c.Command[0] == "":
		return fmt.Errorf("%w: missing command", ErrConfig)
	case c.Runs < 0:
		return fmt.Errorf("%w: run count must not be negative, got %d", ErrConfig, c.Runs)
	case c.Warmup < 0:
		return fmt.Errorf("%w: warmup count must not be negative, got %d", ErrConfig, c.Warmup)
	case c.MaxSleep < 0:
		return fmt.Errorf("%w: sleep bound must not be negative, got %s", ErrConfig, c.MaxSleep)
	case c.InitialDelay < 0:
		return fmt.Errorf("%w: initial delay must not be negative, got %s", ErrConfig, c.InitialDelay)
	}
	return nil
}

// RunMetrics is the measurement of a single completed run.
type RunMetrics struct {
	Wall     time.Duration
	User     time.Duration
	System   time.Duration
	ExitCode int
}

// OutputFunc receives the captured output of every measured run.
type OutputFunc func(out Output) error

// ProgressFunc is called after every measured run.
type ProgressFunc func(done, total int, m RunMetrics)

// Option configures a Runner.
type Option func(*Runner)

// WithDelaySource replaces the random inter-run delay generator.
func WithDelaySource(d DelaySource) Option {
	return func(r *Runner) { r.delays = d }
}

// WithSleeper replaces time.Sleep.
func WithSleeper(s Sleeper) Option {
	return func(r *Runner) { r.sleep = s }
}

// WithOutput sets the callback receiving each run's stdout and stderr.
func WithOutput(fn OutputFunc) Option {
	return func(r *Runner) { r.output = fn }
}

// WithProgress sets the per-run progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.progress = fn }
}

// Runner drives the run-and-measure loop. It must be the only code in the
// process spawning children while Execute is running, otherwise their CPU
// time ends up in the measured deltas.
type Runner struct {
	log      logrus.FieldLogger
	executor Executor
	sampler  rusage.Sampler
	delays   DelaySource
	sleep    Sleeper
	output   OutputFunc
	progress ProgressFunc
}

// New creates a Runner.
func New(log logrus.FieldLogger, executor Executor, sampler rusage.Sampler, opts ...Option) *Runner {
	r := &Runner{
		log:      log.WithField("component", "runner"),
		executor: executor,
		sampler:  sampler,
		delays:   NewUniformDelay(uint64(time.Now().UnixNano())),
		sleep:    time.Sleep,
		output:   func(Output) error { return nil },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs cfg.Command cfg.Runs times and returns one RunMetrics per run
// in execution order. Any error aborts the whole session and no partial
// results are returned.
func (r *Runner) Execute(ctx context.Context, cfg Config) ([]RunMetrics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Runs == 0 {
		r.log.Debug("Run count is zero, command will not be executed")
		return []RunMetrics{}, nil
	}

	if cfg.InitialDelay > 0 {
		r.log.WithField("delay", cfg.InitialDelay).Debug("Waiting before first run")
		r.sleep(cfg.InitialDelay)
	}

	if err := r.prepare(ctx, cfg); err != nil {
		return nil, err
	}

	last, err := r.sampler.Sample()
	if err != nil {
		return nil, err
	}

	metrics := make([]RunMetrics, 0, cfg.Runs)
	for i := 0; i < cfg.Runs; i++ {
		res, err := r.executor.Run(ctx, cfg.Command)
		if err != nil {
			return nil, err
		}

		current, err := r.sampler.Sample()
		if err != nil {
			return nil, err
		}
		delta, err := current.Sub(last)
		if err != nil {
			return nil, err
		}
		last = current

		m := RunMetrics{
			Wall:     res.Wall,
			User:     delta.User,
			System:   delta.System,
			ExitCode: res.ExitCode,
		}
		metrics = append(metrics, m)

		r.log.WithFields(logrus.Fields{
			"run":       i + 1,
			"wall":      m.Wall,
			"user":      m.User,
			"sys":       m.System,
			"exit_code": m.ExitCode,
		}).Debug("Run completed")

		if err := r.output(res.Output); err != nil {
			return nil, fmt.Errorf("forwarding output of run %d: %w", i+1, err)
		}
		if r.progress != nil {
			r.progress(i+1, cfg.Runs, m)
		}

		if i != cfg.Runs-1 && cfg.MaxSleep > 0 {
			d := r.delays.NextDelay(cfg.MaxSleep)
			r.log.WithField("delay", d).Debug("Sleeping before next run")
			r.sleep(d)
		}
	}

	return metrics, nil
}

// prepare runs the setup command and warmup runs. Both happen before the
// first usage snapshot so they are not part of any measured delta.
func (r *Runner) prepare(ctx context.Context, cfg Config) error {
	if cfg.Setup != "" {
		argv := SplitCommandLine(cfg.Setup)
		if len(argv) == 0 || argv[0] == "" {
			return fmt.Errorf("%w: empty command string", ErrSetup)
		}
		r.log.WithField("setup", cfg.Setup).Debug("Running setup command")
		res, err := r.executor.Run(ctx, argv)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSetup, err)
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("%w: exit status %d", ErrSetup, res.ExitCode)
		}
	}

	for i := 0; i < cfg.Warmup; i++ {
		r.log.WithField("warmup", i+1).Debug("Performing warmup run")
		if _, err := r.executor.Run(ctx, cfg.Command); err != nil {
			return err
		}
	}
	return nil
}
