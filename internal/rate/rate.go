// Package rate estimates the sampling frequency of a window of samples.
package rate

import (
	"fmt"
	"strings"
	"time"

	"github.com/ghalamif/myofeed/internal/domain"
)

// Estimator turns a window of timestamps into samples per second.
// It keeps no state between calls.
type Estimator struct {
	unit time.Duration
}

// New returns an Estimator for timestamps expressed in unit. A
// non-positive unit means domain.TimestampUnit.
func New(unit time.Duration) Estimator {
	if unit <= 0 {
		unit = domain.TimestampUnit
	}
	return Estimator{unit: unit}
}

// Estimate computes (count-1) / (last-first). ok is false when the window
// holds fewer than two samples or spans no time.
func (e Estimator) Estimate(samples []domain.Sample) (hz float64, ok bool) {
	if len(samples) < 2 {
		return 0, false
	}
	span := samples[len(samples)-1].Timestamp - samples[0].Timestamp
	if span <= 0 {
		return 0, false
	}
	seconds := float64(span) * e.unit.Seconds()
	return float64(len(samples)-1) / seconds, true
}

func (e Estimator) Unit() time.Duration { return e.unit }

// ParseUnit maps the config spelling of a timestamp unit to a duration.
func ParseUnit(s string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "us", "µs", "micro", "microseconds":
		return time.Microsecond, nil
	case "ms", "milli", "milliseconds":
		return time.Millisecond, nil
	case "ns", "nanoseconds":
		return time.Nanosecond, nil
	case "s", "seconds":
		return time.Second, nil
	default:
		return 0, fmt.Errorf("unknown timestamp unit %q", s)
	}
}
