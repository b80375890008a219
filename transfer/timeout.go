package transfer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// Immediate makes I/O operations fail unless data is already available.
	Immediate time.Duration = 0
	// Infinite disables the I/O timeout.
	Infinite time.Duration = math.MaxInt64
)

// ParseTimeout converts a timeout setting to a duration.
//
// Accepted values are the sentinels "immediate" and "infinite", a Go duration
// string such as "2.5s", or a non-negative number of milliseconds.
func ParseTimeout(value string) (time.Duration, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "immediate":
		return Immediate, nil
	case "infinite", "inf", "+inf":
		return Infinite, nil
	}

	if ms, err := strconv.ParseFloat(value, 64); err == nil {
		return MillisecondsToTimeout(ms)
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: timeout %q", ErrInvalidArgument, value)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: negative timeout %s", ErrInvalidArgument, d)
	}

	return d, nil
}

// MillisecondsToTimeout converts a number of milliseconds to a duration.
// Positive infinity maps to Infinite.
func MillisecondsToTimeout(ms float64) (time.Duration, error) {
	switch {
	case math.IsNaN(ms) || ms < 0:
		return 0, fmt.Errorf("%w: timeout %v ms", ErrInvalidArgument, ms)
	case math.IsInf(ms, 1) || ms >= float64(Infinite/time.Millisecond):
		return Infinite, nil
	default:
		return time.Duration(ms * float64(time.Millisecond)), nil
	}
}

// FormatTimeout is the inverse of ParseTimeout.
func FormatTimeout(d time.Duration) string {
	switch d {
	case Immediate:
		return "immediate"
	case Infinite:
		return "infinite"
	default:
		return d.String()
	}
}
