package transfer

import (
	"fmt"
	"math"
	"strconv"

	"github.com/arloliu/go-testbench/internal/util"
)

// Kind is the kind of values held by Data.
type Kind uint8

const (
	KindFloat Kind = iota
	KindInt
	KindUint
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	default:
		return "text"
	}
}

// Data holds a sequence of values decoded from, or to be encoded into, an instrument message.
//
// Float elements are held as float64 and integer elements as int64 or uint64, so every
// supported element type is represented without loss.
type Data struct {
	kind      Kind
	container Container
	floats    []float64
	ints      []int64
	uints     []uint64
	texts     []string
}

// Floats creates float Data.
func Floats(values ...float64) Data {
	return Data{kind: KindFloat, container: ContainerNative, floats: util.CloneSlice(values, 0)}
}

// Ints creates signed integer Data.
func Ints(values ...int64) Data {
	return Data{kind: KindInt, container: ContainerNative, ints: util.CloneSlice(values, 0)}
}

// Uints creates unsigned integer Data.
func Uints(values ...uint64) Data {
	return Data{kind: KindUint, container: ContainerNative, uints: util.CloneSlice(values, 0)}
}

// Texts creates string Data.
func Texts(values ...string) Data {
	return Data{kind: KindText, container: ContainerNative, texts: util.CloneSlice(values, 0)}
}

// FromSlice creates Data from any built-in numeric slice.
func FromSlice[T util.Number](values []T) Data {
	switch vs := any(values).(type) {
	case []float32:
		return Data{kind: KindFloat, container: ContainerNative, floats: util.ToFloat64s(vs)}
	case []float64:
		return Floats(vs...)
	case []uint:
		return Data{kind: KindUint, container: ContainerNative, uints: util.ToUint64s(vs)}
	case []uint8:
		return Data{kind: KindUint, container: ContainerNative, uints: util.ToUint64s(vs)}
	case []uint16:
		return Data{kind: KindUint, container: ContainerNative, uints: util.ToUint64s(vs)}
	case []uint32:
		return Data{kind: KindUint, container: ContainerNative, uints: util.ToUint64s(vs)}
	case []uint64:
		return Uints(vs...)
	}

	ints := make([]int64, len(values))
	for i, v := range values {
		ints[i] = int64(v)
	}

	return Data{kind: KindInt, container: ContainerNative, ints: ints}
}

// Kind returns the kind of the held values.
func (d Data) Kind() Kind { return d.kind }

// Container returns the container used by Values.
func (d Data) Container() Container {
	if d.container == "" {
		return ContainerNative
	}

	return d.container
}

// WithContainer returns a copy of d that uses container c in Values.
func (d Data) WithContainer(c Container) Data {
	d.container = c
	return d
}

// Len returns the number of values.
func (d Data) Len() int {
	switch d.kind {
	case KindFloat:
		return len(d.floats)
	case KindInt:
		return len(d.ints)
	case KindUint:
		return len(d.uints)
	default:
		return len(d.texts)
	}
}

// Values returns the values shaped by the data container:
//
//   - ContainerNative: []float64, []int64, []uint64 or []string depending on Kind.
//   - ContainerFloat64: []float64.
//   - ContainerText: []string.
func (d Data) Values() (any, error) {
	switch d.Container() {
	case ContainerFloat64:
		return d.ToFloat()
	case ContainerText:
		return d.ToText(), nil
	}

	switch d.kind {
	case KindFloat:
		return d.floats, nil
	case KindInt:
		return d.ints, nil
	case KindUint:
		return d.uints, nil
	default:
		return d.texts, nil
	}
}

// ToFloat returns the values as float64.
//
// Integers are converted and text values are parsed as floating-point numbers.
func (d Data) ToFloat() ([]float64, error) {
	switch d.kind {
	case KindFloat:
		return d.floats, nil
	case KindInt:
		return util.ToFloat64s(d.ints), nil
	case KindUint:
		return util.ToFloat64s(d.uints), nil
	default:
		result := make([]float64, len(d.texts))
		for i, s := range d.texts {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a number", ErrMalformedText, s)
			}
			result[i] = v
		}

		return result, nil
	}
}

// ToInt returns the values as int64.
//
// Float values must be integral and unsigned values must fit in int64.
func (d Data) ToInt() ([]int64, error) {
	switch d.kind {
	case KindInt:
		return d.ints, nil
	case KindUint:
		for _, v := range d.uints {
			if v > math.MaxInt64 {
				return nil, fmt.Errorf("%w: %d does not fit in int64", ErrValueRange, v)
			}
		}
		return util.ToInt64s(d.uints), nil
	case KindFloat:
		result := make([]int64, len(d.floats))
		for i, v := range d.floats {
			if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
				return nil, fmt.Errorf("%w: %v is not an int64", ErrValueRange, v)
			}
			result[i] = int64(v)
		}
		return result, nil
	default:
		result := make([]int64, len(d.texts))
		for i, s := range d.texts {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an integer", ErrMalformedText, s)
			}
			result[i] = v
		}
		return result, nil
	}
}

// ToUint returns the values as uint64.
//
// Signed values must not be negative and float values must be integral.
func (d Data) ToUint() ([]uint64, error) {
	switch d.kind {
	case KindUint:
		return d.uints, nil
	case KindInt:
		for _, v := range d.ints {
			if v < 0 {
				return nil, fmt.Errorf("%w: %d is negative", ErrValueRange, v)
			}
		}
		return util.ToUint64s(d.ints), nil
	case KindFloat:
		result := make([]uint64, len(d.floats))
		for i, v := range d.floats {
			if v != math.Trunc(v) || v < 0 || v >= math.MaxUint64 {
				return nil, fmt.Errorf("%w: %v is not a uint64", ErrValueRange, v)
			}
			result[i] = uint64(v)
		}
		return result, nil
	default:
		result := make([]uint64, len(d.texts))
		for i, s := range d.texts {
			v, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an unsigned integer", ErrMalformedText, s)
			}
			result[i] = v
		}
		return result, nil
	}
}

// ToText returns the values formatted as strings.
func (d Data) ToText() []string {
	switch d.kind {
	case KindFloat:
		result := make([]string, len(d.floats))
		for i, v := range d.floats {
			result[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return result
	case KindInt:
		result := make([]string, len(d.ints))
		for i, v := range d.ints {
			result[i] = strconv.FormatInt(v, 10)
		}
		return result
	case KindUint:
		result := make([]string, len(d.uints))
		for i, v := range d.uints {
			result[i] = strconv.FormatUint(v, 10)
		}
		return result
	default:
		return d.texts
	}
}
