package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCloneSlice(t *testing.T) {
	require := require.New(t)

	src := []int{1, 2, 3}
	clone := CloneSlice(src, 0)
	require.Equal(src, clone)

	clone[0] = 10
	require.Equal(1, src[0])

	require.Equal([]int{1, 2, 3, 0}, CloneSlice(src, 4))
}

func TestNumericConversions(t *testing.T) {
	require := require.New(t)

	require.Equal([]float64{1, -2, 3.5}, ToFloat64s([]float32{1, -2, 3.5}))
	require.Equal([]int64{-32768, 32767}, ToInt64s([]int16{-32768, 32767}))
	require.Equal([]uint64{0, 65535}, ToUint64s([]uint16{0, 65535}))
	require.Empty(ToFloat64s([]int{}))
}
