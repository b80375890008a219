package instrument

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/go-testbench/transfer"
)

var numericKeywords = map[string]string{
	"MIN": "MIN", "MINIMUM": "MIN",
	"MAX": "MAX", "MAXIMUM": "MAX",
	"DEF": "DEF", "DEFAULT": "DEF",
	"UP": "UP", "DOWN": "DOWN",
}

// NumericArg validates a numeric command argument, a number or one of the
// keywords MIN, MAX, DEF, UP and DOWN.
func NumericArg(value string) (string, error) {
	v := strings.TrimSpace(value)
	if kw, ok := numericKeywords[strings.ToUpper(v)]; ok {
		return kw, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: numeric argument %q", transfer.ErrInvalidArgument, value)
	}

	return v, nil
}

// ParseFloat parses a numeric reply.
func ParseFloat(reply string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", transfer.ErrMalformedText, reply)
	}

	return f, nil
}

// ParseCount parses a non-negative integral reply, NR3 forms such as
// "+1.000000E+02" are accepted.
func ParseCount(reply string) (int, error) {
	s := strings.TrimSpace(reply)
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q is not a count", transfer.ErrMalformedText, reply)
	}

	return int(f), nil
}

// OnOff returns the boolean argument of a switch command.
func OnOff(on bool) string {
	if on {
		return "ON"
	}

	return "OFF"
}
