package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/violenttestpen/mtime/internal/report"
	"github.com/violenttestpen/mtime/internal/runner"
	"github.com/violenttestpen/mtime/internal/rusage"
	"github.com/violenttestpen/mtime/internal/stats"
)

type options struct {
	runner.Config

	format   report.Format
	median   stats.MedianRule
	progress bool
	verbose  bool
}

type runFunc func(ctx context.Context, log *logrus.Logger, opts options) error

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	log := newLogger()
	cmd, err := newRootCmd(log, run)
	if err == nil {
		err = cmd.ExecuteContext(context.Background())
	}
	if err != nil {
		fmt.Fprintln(color.Error, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.Warnf("Invalid LOG_LEVEL '%s', defaulting to 'info'", logLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func newRootCmd(log *logrus.Logger, fn runFunc) (*cobra.Command, error) {
	numRuns, err := envInt("MTIME_NUMRUNS", 1)
	if err != nil {
		return nil, err
	}
	sleep, err := envInt("MTIME_SLEEP", 0)
	if err != nil {
		return nil, err
	}
	initialDelay, err := envInt("MTIME_INITIAL_DELAY", 0)
	if err != nil {
		return nil, err
	}

	var (
		opts                   options
		sleepSecs, delaySecs   int
		formatName, medianName string
		noColor                bool
	)

	cmd := &cobra.Command{
		Use:   "mtime [flags] command [args...]",
		Short: "Run a command repeatedly and summarise its wall, user and sys time",
		Long: `mtime runs a command the requested number of times, one run after another,
and reports mean, standard deviation, min, median and max of the real, user
and sys time of the runs.

Everything after the first positional argument belongs to the command.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			if opts.verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			opts.Command = args
			opts.MaxSleep = time.Duration(sleepSecs) * time.Second
			opts.InitialDelay = time.Duration(delaySecs) * time.Second

			var err error
			if opts.format, err = report.ParseFormat(formatName); err != nil {
				return fmt.Errorf("%w: %v", runner.ErrConfig, err)
			}
			if opts.median, err = stats.ParseMedianRule(medianName); err != nil {
				return fmt.Errorf("%w: %v", runner.ErrConfig, err)
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			return fn(cmd.Context(), log, opts)
		},
	}

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.IntVarP(&opts.Runs, "numruns", "n", numRuns, "Number of times the command will run")
	flags.IntVarP(&sleepSecs, "sleep", "s", sleep, "Sleep a uniformly random [0..sleep] seconds between runs")
	flags.IntVarP(&delaySecs, "initial-delay", "d", initialDelay, "Seconds to wait before the first run")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "Do not forward the command's stdout")
	flags.IntVarP(&opts.Warmup, "warmup", "w", 0, "Number of unmeasured runs before the first measured run")
	flags.StringVar(&opts.Setup, "setup", "", "Command to run once before the warmup and measured runs")
	flags.StringVarP(&formatName, "format", "f", string(report.FormatTable), "Output format: table or yaml")
	flags.StringVar(&medianName, "median", stats.MedianLegacy.String(), "Median of an even number of runs: legacy or midpoint")
	flags.BoolVar(&opts.progress, "progress", false, "Show a progress line on stderr when it is a terminal")
	flags.BoolVar(&noColor, "no-color", false, "Disable coloured output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every run")

	return cmd, nil
}

func envInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", runner.ErrConfig, key, v)
	}
	return n, nil
}

func run(ctx context.Context, log *logrus.Logger, opts options) error {
	sampler, err := rusage.NewChildSampler()
	if err != nil {
		return err
	}
	defer sampler.Close()

	runnerOpts := []runner.Option{
		runner.WithOutput(runner.ForwardOutput(os.Stdout, os.Stderr, opts.Quiet)),
	}

	stderrFd := int(os.Stderr.Fd())
	var progress *report.Progress
	if opts.progress && term.IsTerminal(stderrFd) {
		progress = report.NewProgress(color.Error, func() int {
			width, _, err := term.GetSize(stderrFd)
			if err != nil {
				return 0
			}
			return width
		})
		runnerOpts = append(runnerOpts, runner.WithProgress(progress.Update))
	}

	r := runner.New(log, runner.NewProcessExecutor(sampler), sampler, runnerOpts...)
	metrics, err := r.Execute(ctx, opts.Config)
	if progress != nil {
		progress.Done()
	}
	if err != nil {
		return err
	}
	if len(metrics) == 0 {
		log.Warn("No runs were performed, nothing to summarize")
		return nil
	}

	summary, err := stats.Summarize(metrics, opts.median)
	if err != nil {
		return err
	}
	return report.Render(os.Stdout, summary, opts.format)
}
