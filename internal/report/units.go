package report

import (
	"fmt"
	"time"
)

var denominators = []time.Duration{time.Hour, time.Minute, time.Second, time.Millisecond, time.Microsecond, time.Nanosecond}
var units = []string{"h", "m", "s", "ms", "µs", "ns"}

// unitFor returns the largest unit in which d is at least 1.
func unitFor(d time.Duration) (time.Duration, string) {
	for i, denominator := range denominators {
		if d/denominator > 0 {
			return denominator, units[i]
		}
	}
	return time.Nanosecond, "ns"
}

// FormatDuration renders d with two decimals in an automatically chosen unit.
func FormatDuration(d time.Duration) string {
	denominator, unit := unitFor(d)
	return fmt.Sprintf("%.2f %s", float64(d)/float64(denominator), unit)
}
