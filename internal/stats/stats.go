// Package stats computes summary statistics over measured runs.
package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/violenttestpen/mtime/internal/runner"
)

// ErrNoSamples is returned when there is nothing to summarize.
var ErrNoSamples = errors.New("no samples to summarize")

// MedianRule selects how the median of an even number of values is computed.
type MedianRule int

const (
	// MedianLegacy adds half of the lower middle value to the upper middle
	// value. mtime has always reported this; it is kept as the default so
	// numbers stay comparable with older reports.
	MedianLegacy MedianRule = iota
	// MedianMidpoint averages the two middle values.
	MedianMidpoint
)

func (m MedianRule) String() string {
	switch m {
	case MedianLegacy:
		return "legacy"
	case MedianMidpoint:
		return "midpoint"
	default:
		return fmt.Sprintf("MedianRule(%d)", int(m))
	}
}

// ParseMedianRule parses the name returned by MedianRule.String.
func ParseMedianRule(s string) (MedianRule, error) {
	switch s {
	case "legacy":
		return MedianLegacy, nil
	case "midpoint":
		return MedianMidpoint, nil
	default:
		return 0, fmt.Errorf("unknown median rule %q (want legacy or midpoint)", s)
	}
}

// ChannelSummary is the five-number summary of one measurement channel.
type ChannelSummary struct {
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"std_dev"`
	Min    float64 `yaml:"min"`
	Median float64 `yaml:"median"`
	Max    float64 `yaml:"max"`
}

// Div returns s with every statistic divided by d.
func (s ChannelSummary) Div(d float64) ChannelSummary {
	return ChannelSummary{
		Mean:   s.Mean / d,
		StdDev: s.StdDev / d,
		Min:    s.Min / d,
		Median: s.Median / d,
		Max:    s.Max / d,
	}
}

// Summary holds the wall, user and sys summaries of a session, in seconds.
type Summary struct {
	Runs   int            `yaml:"runs"`
	Failed int            `yaml:"failed"`
	Wall   ChannelSummary `yaml:"real"`
	User   ChannelSummary `yaml:"user"`
	Sys    ChannelSummary `yaml:"sys"`
}

// Describe computes the summary of values in their own unit.
func Describe(values []float64, rule MedianRule) (ChannelSummary, error) {
	n := len(values)
	if n == 0 {
		return ChannelSummary{}, ErrNoSamples
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	return ChannelSummary{
		Mean:   mean,
		StdDev: math.Sqrt(sq / float64(n)),
		Min:    sorted[0],
		Median: median(sorted, rule),
		Max:    sorted[n-1],
	}, nil
}

// median expects sorted to be non-empty and in ascending order.
func median(sorted []float64, rule MedianRule) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	if rule == MedianMidpoint {
		return (sorted[mid] + sorted[mid-1]) / 2
	}
	return sorted[mid] + sorted[mid-1]/2
}

// Summarize builds the per-channel summaries of samples. Values are taken in
// microseconds and reported in seconds.
func Summarize(samples []runner.RunMetrics, rule MedianRule) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, ErrNoSamples
	}

	wall := make([]float64, len(samples))
	user := make([]float64, len(samples))
	sys := make([]float64, len(samples))
	failed := 0
	for i, s := range samples {
		wall[i] = float64(s.Wall.Microseconds())
		user[i] = float64(s.User.Microseconds())
		sys[i] = float64(s.System.Microseconds())
		if s.ExitCode != 0 {
			failed++
		}
	}

	summary := Summary{Runs: len(samples), Failed: failed}
	for _, ch := range []struct {
		values []float64
		dst    *ChannelSummary
	}{
		{wall, &summary.Wall},
		{user, &summary.User},
		{sys, &summary.Sys},
	} {
		cs, err := Describe(ch.values, rule)
		if err != nil {
			return Summary{}, err
		}
		*ch.dst = cs.Div(1e6)
	}
	return summary, nil
}
