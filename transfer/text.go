package transfer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TextFormat holds the parameters used to convert text replies.
type TextFormat struct {
	Converter Converter
	Separator Separator
	Container Container
}

// radix prefixes accepted in front of binary, octal and hexadecimal values.
var radixPrefixes = map[Converter][]string{
	ConvBinary: {"#b", "0b"},
	ConvOctal:  {"#q", "0o"},
	ConvHex:    {"#h", "0x"},
}

// ParseText splits a text reply on the separator and converts every field.
//
// Surrounding white space and terminators are ignored, an empty reply yields
// empty Data. Fields that the converter cannot parse fail with ErrMalformedText.
func ParseText(reply string, f TextFormat) (Data, error) {
	fields := splitText(reply, f.Separator)

	switch f.Converter.Kind() {
	case KindFloat:
		values := make([]float64, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return Data{}, fmt.Errorf("%w: %q is not a number", ErrMalformedText, field)
			}
			values[i] = v
		}
		return Data{kind: KindFloat, floats: values}.WithContainer(f.Container), nil
	case KindInt:
		values := make([]int64, len(fields))
		for i, field := range fields {
			v, err := parseInteger(field, f.Converter)
			if err != nil {
				return Data{}, err
			}
			values[i] = v
		}
		return Data{kind: KindInt, ints: values}.WithContainer(f.Container), nil
	default:
		return Data{kind: KindText, texts: fields}.WithContainer(f.Container), nil
	}
}

func splitText(reply string, sep Separator) []string {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return []string{}
	}
	if sep == Space {
		return strings.Fields(reply)
	}

	fields := strings.Split(reply, string(sep))
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	return fields
}

func parseInteger(field string, conv Converter) (int64, error) {
	s := field
	neg := false
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	for _, prefix := range radixPrefixes[conv] {
		if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			s = s[len(prefix):]
			break
		}
	}

	u, err := strconv.ParseUint(s, conv.base(), 64)
	if err != nil && conv == ConvDecimal {
		// some instruments answer integer queries in NR3 form, e.g. "+1.00000E+03"
		if v, ferr := strconv.ParseFloat(s, 64); ferr == nil && v == math.Trunc(v) && v <= math.MaxInt64 {
			u, err = uint64(v), nil
		}
	}
	if err != nil || (!neg && u > math.MaxInt64) || (neg && u > 1<<63) {
		return 0, fmt.Errorf("%w: %q is not a base %d integer", ErrMalformedText, field, conv.base())
	}
	if neg {
		return -int64(u), nil //nolint:gosec
	}

	return int64(u), nil
}

// FormatValues formats the data with the converter and joins the values with the separator.
func FormatValues(d Data, f TextFormat) (string, error) {
	var fields []string

	switch f.Converter {
	case ConvBinary, ConvOctal, ConvHex, ConvDecimal:
		values, err := d.ToInt()
		if err != nil {
			return "", err
		}
		fields = make([]string, len(values))
		for i, v := range values {
			fields[i] = strconv.FormatInt(v, f.Converter.base())
		}
	case ConvFixed, ConvExponential:
		values, err := d.ToFloat()
		if err != nil {
			return "", err
		}
		fields = make([]string, len(values))
		for i, v := range values {
			fields[i] = strconv.FormatFloat(v, byte(f.Converter), -1, 64)
		}
	case ConvString:
		fields = d.ToText()
	default:
		return "", fmt.Errorf("%w: text converter %q", ErrInvalidArgument, byte(f.Converter))
	}

	sep := f.Separator
	if sep == 0 {
		sep = Comma
	}

	return strings.Join(fields, string(sep)), nil
}
