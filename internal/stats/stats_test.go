package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/violenttestpen/mtime/internal/runner"
)

const eps = 1e-9

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		rule     MedianRule
		expected ChannelSummary
	}{
		{
			name:     "single sample",
			values:   []float64{7},
			expected: ChannelSummary{Mean: 7, StdDev: 0, Min: 7, Median: 7, Max: 7},
		},
		{
			name:     "odd length",
			values:   []float64{3, 1, 2},
			expected: ChannelSummary{Mean: 2, StdDev: math.Sqrt(2.0 / 3.0), Min: 1, Median: 2, Max: 3},
		},
		{
			name:     "even length legacy median",
			values:   []float64{4, 1, 3, 2},
			expected: ChannelSummary{Mean: 2.5, StdDev: math.Sqrt(1.25), Min: 1, Median: 4, Max: 4},
		},
		{
			name:     "even length midpoint median",
			values:   []float64{4, 1, 3, 2},
			rule:     MedianMidpoint,
			expected: ChannelSummary{Mean: 2.5, StdDev: math.Sqrt(1.25), Min: 1, Median: 2.5, Max: 4},
		},
		{
			name:     "two samples legacy median",
			values:   []float64{10, 20},
			expected: ChannelSummary{Mean: 15, StdDev: 5, Min: 10, Median: 25, Max: 20},
		},
		{
			name:     "zero duration runs",
			values:   []float64{0, 0, 0, 0},
			expected: ChannelSummary{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Describe(tt.values, tt.rule)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected.Mean, got.Mean, eps)
			assert.InDelta(t, tt.expected.StdDev, got.StdDev, eps)
			assert.InDelta(t, tt.expected.Min, got.Min, eps)
			assert.InDelta(t, tt.expected.Median, got.Median, eps)
			assert.InDelta(t, tt.expected.Max, got.Max, eps)
		})
	}
}

func TestDescribe_ConstantValues(t *testing.T) {
	for n := 1; n <= 9; n++ {
		values := make([]float64, n)
		for i := range values {
			values[i] = 1234
		}

		got, err := Describe(values, MedianMidpoint)
		require.NoError(t, err)
		assert.Equal(t, ChannelSummary{Mean: 1234, Min: 1234, Median: 1234, Max: 1234}, got)
	}
}

func TestDescribe_OddMedianWithinRange(t *testing.T) {
	values := []float64{9, 2, 7, 7, 1, 30, 4}
	got, err := Describe(values, MedianLegacy)
	require.NoError(t, err)
	assert.Equal(t, 7.0, got.Median)
	assert.LessOrEqual(t, got.Min, got.Median)
	assert.LessOrEqual(t, got.Median, got.Max)
}

func TestDescribe_DoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_, err := Describe(values, MedianLegacy)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestDescribe_Empty(t *testing.T) {
	_, err := Describe(nil, MedianLegacy)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestSummarize(t *testing.T) {
	samples := []runner.RunMetrics{
		{Wall: 1 * time.Second, User: 1 * time.Microsecond, System: 0},
		{Wall: 2 * time.Second, User: 2 * time.Microsecond, System: 0, ExitCode: 1},
		{Wall: 3 * time.Second, User: 3 * time.Microsecond, System: 0},
	}

	got, err := Summarize(samples, MedianLegacy)
	require.NoError(t, err)

	assert.Equal(t, 3, got.Runs)
	assert.Equal(t, 1, got.Failed)

	assert.InDelta(t, 2.0, got.Wall.Mean, eps)
	assert.InDelta(t, 1.0, got.Wall.Min, eps)
	assert.InDelta(t, 2.0, got.Wall.Median, eps)
	assert.InDelta(t, 3.0, got.Wall.Max, eps)
	assert.InDelta(t, math.Sqrt(2.0/3.0), got.Wall.StdDev, eps)

	assert.InDelta(t, 2e-6, got.User.Mean, 1e-15)
	assert.InDelta(t, math.Sqrt(2.0/3.0)/1e6, got.User.StdDev, 1e-15)
	assert.InDelta(t, 1e-6, got.User.Min, 1e-15)
	assert.InDelta(t, 3e-6, got.User.Max, 1e-15)

	assert.Equal(t, ChannelSummary{}, got.Sys)
}

func TestSummarize_TruncatesWallToMicroseconds(t *testing.T) {
	got, err := Summarize([]runner.RunMetrics{{Wall: 1500 * time.Nanosecond}}, MedianLegacy)
	require.NoError(t, err)
	assert.InDelta(t, 1e-6, got.Wall.Mean, 1e-15)
}

func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize([]runner.RunMetrics{}, MedianLegacy)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestParseMedianRule(t *testing.T) {
	for _, rule := range []MedianRule{MedianLegacy, MedianMidpoint} {
		got, err := ParseMedianRule(rule.String())
		require.NoError(t, err)
		assert.Equal(t, rule, got)
	}

	_, err := ParseMedianRule("average")
	assert.Error(t, err)
}
