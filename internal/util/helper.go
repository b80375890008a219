// Package util holds small generic helpers shared by the transfer codecs and the backends.
package util

// Integer is the set of built-in integer types.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Number is the set of built-in integer and floating-point types.
type Number interface {
	Integer | ~float32 | ~float64
}

// CloneSlice clones slice with cloneSize.
// This function will use src length as the clone size if cloneSize is 0.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}

// ToFloat64s converts a numeric slice to a new float64 slice.
//
// Integers above 2^53 lose precision, the conversion is not range checked.
func ToFloat64s[T Number](values []T) []float64 {
	result := make([]float64, len(values))
	for i, v := range values {
		result[i] = float64(v)
	}

	return result
}

// ToInt64s converts an integer slice to a new int64 slice.
//
// Unsigned values above math.MaxInt64 wrap, callers must check the range beforehand.
func ToInt64s[T Integer](values []T) []int64 {
	result := make([]int64, len(values))
	for i, v := range values {
		result[i] = int64(v)
	}

	return result
}

// ToUint64s converts an integer slice to a new uint64 slice.
//
// Negative values wrap, callers must check the sign beforehand.
func ToUint64s[T Integer](values []T) []uint64 {
	result := make([]uint64, len(values))
	for i, v := range values {
		result[i] = uint64(v)
	}

	return result
}
