package transfer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleData(elem ElementType) Data {
	switch elem {
	case Float32:
		return Floats(0, 1.5, -2.25, math.MaxFloat32, float64(math.SmallestNonzeroFloat32))
	case Float64:
		return Floats(0, 1.5, -2.25, math.MaxFloat64, math.SmallestNonzeroFloat64, math.Pi)
	case Int16:
		return Ints(0, 1, -1, math.MinInt16, math.MaxInt16)
	case Int32:
		return Ints(0, 1, -1, math.MinInt32, math.MaxInt32)
	case Int64:
		return Ints(0, 1, -1, math.MinInt64, math.MaxInt64)
	case Uint16:
		return Uints(0, 1, math.MaxUint16)
	case Uint32:
		return Uints(0, 1, math.MaxUint32)
	default:
		return Uints(0, 1, math.MaxUint64)
	}
}

func TestBlock_RoundTrip(t *testing.T) {
	for _, elem := range ElementTypes {
		for _, bigEndian := range []bool{false, true} {
			for _, header := range []HeaderKind{HeaderIEEE, HeaderHP, HeaderEmpty} {
				name := elem.String() + "/" + string(header)
				if bigEndian {
					name += "/big"
				}
				t.Run(name, func(t *testing.T) {
					require := require.New(t)

					data := sampleData(elem)
					f := BinaryFormat{Element: elem, BigEndian: bigEndian, Header: header, Container: ContainerNative}

					raw, err := EncodeBlock(data, f)
					require.NoError(err)

					if header == HeaderEmpty {
						f.Count = data.Len()
					}
					decoded, err := DecodeBlock(raw, f)
					require.NoError(err)
					require.Equal(data.Len(), decoded.Len())

					expected, err := data.Values()
					require.NoError(err)
					actual, err := decoded.Values()
					require.NoError(err)
					require.Equal(expected, actual)
				})
			}
		}
	}
}

func TestEncodeBlock_Framing(t *testing.T) {
	require := require.New(t)

	raw, err := EncodeBlock(Ints(1, 2), BinaryFormat{Element: Int16, Header: HeaderIEEE})
	require.NoError(err)
	require.Equal([]byte{'#', '1', '4', 1, 0, 2, 0}, raw)

	raw, err = EncodeBlock(Ints(1, 2), BinaryFormat{Element: Int16, BigEndian: true, Header: HeaderHP})
	require.NoError(err)
	require.Equal([]byte{'#', 'A', 0, 4, 0, 1, 0, 2}, raw)

	raw, err = EncodeBlock(Uints(), BinaryFormat{Element: Uint32, Header: HeaderIEEE})
	require.NoError(err)
	require.Equal([]byte("#10"), raw)
}

func TestEncodeBlock_Range(t *testing.T) {
	tests := []struct {
		description string
		data        Data
		elem        ElementType
	}{
		{description: "int16 overflow", data: Ints(math.MaxInt16 + 1), elem: Int16},
		{description: "int32 underflow", data: Ints(math.MinInt32 - 1), elem: Int32},
		{description: "negative to uint16", data: Ints(-1), elem: Uint16},
		{description: "uint32 overflow", data: Uints(math.MaxUint32 + 1), elem: Uint32},
		{description: "fraction to int", data: Floats(1.5), elem: Int64},
		{description: "float32 overflow", data: Floats(math.MaxFloat64), elem: Float32},
		{description: "uint64 to int64", data: Uints(math.MaxUint64), elem: Int64},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, err := EncodeBlock(tt.data, BinaryFormat{Element: tt.elem, Header: HeaderIEEE})
			require.ErrorIs(t, err, ErrValueRange)
		})
	}
}

func TestDecodeBlock(t *testing.T) {
	require := require.New(t)

	int16s := BinaryFormat{Element: Int16, Header: HeaderIEEE}

	t.Run("leading bytes and trailing terminator", func(t *testing.T) {
		d, err := DecodeBlock([]byte("\x00 #14\x01\x00\x02\x00\n"), int16s)
		require.NoError(err)
		require.Equal(KindInt, d.Kind())
		v, err := d.ToInt()
		require.NoError(err)
		require.Equal([]int64{1, 2}, v)
	})

	t.Run("count within declared length", func(t *testing.T) {
		f := int16s
		f.Count = 1
		d, err := DecodeBlock([]byte("#14\x01\x00\x02\x00"), f)
		require.NoError(err)
		require.Equal(1, d.Len())
	})

	t.Run("count beyond declared length", func(t *testing.T) {
		f := int16s
		f.Count = 3
		_, err := DecodeBlock([]byte("#14\x01\x00\x02\x00"), f)
		require.ErrorIs(err, ErrMalformedBlock)
	})

	t.Run("indefinite block with count", func(t *testing.T) {
		f := int16s
		f.Count = 2
		d, err := DecodeBlock([]byte("#0\x01\x00\x02\x00\n"), f)
		require.NoError(err)
		require.Equal(2, d.Len())
	})

	t.Run("indefinite block without count", func(t *testing.T) {
		d, err := DecodeBlock([]byte("#0\x01\x00\x02\x00\n"), int16s)
		require.NoError(err)
		require.Equal(2, d.Len())
	})

	t.Run("short payload", func(t *testing.T) {
		_, err := DecodeBlock([]byte("#16\x01\x00"), int16s)
		require.ErrorIs(err, ErrMalformedBlock)
	})

	t.Run("missing marker", func(t *testing.T) {
		_, err := DecodeBlock([]byte("1.0,2.0"), int16s)
		require.ErrorIs(err, ErrMalformedBlock)
	})

	t.Run("bad digit count", func(t *testing.T) {
		_, err := DecodeBlock([]byte("#x12"), int16s)
		require.ErrorIs(err, ErrMalformedBlock)
	})

	t.Run("odd payload", func(t *testing.T) {
		_, err := DecodeBlock([]byte("#13\x01\x00\x02"), int16s)
		require.ErrorIs(err, ErrMalformedBlock)
	})

	t.Run("negative count", func(t *testing.T) {
		f := int16s
		f.Count = -1
		_, err := DecodeBlock([]byte("#10"), f)
		require.ErrorIs(err, ErrInvalidArgument)
	})

	t.Run("container float64", func(t *testing.T) {
		f := int16s
		f.Container = ContainerFloat64
		d, err := DecodeBlock([]byte("#14\x01\x00\xff\xff"), f)
		require.NoError(err)
		v, err := d.Values()
		require.NoError(err)
		require.Equal([]float64{1, -1}, v)
	})
}

func TestBlockSize(t *testing.T) {
	require := require.New(t)

	ieee := BinaryFormat{Element: Float32, Header: HeaderIEEE}

	_, ok, err := BlockSize([]byte("#"), ieee)
	require.NoError(err)
	require.False(ok)

	_, ok, err = BlockSize([]byte("#3"), ieee)
	require.NoError(err)
	require.False(ok)

	size, ok, err := BlockSize([]byte("\n#3012"), ieee)
	require.NoError(err)
	require.True(ok)
	require.Equal(1+5+12, size)

	size, ok, err = BlockSize([]byte("#0"), ieee)
	require.NoError(err)
	require.True(ok)
	require.Equal(-1, size)

	ieee.Count = 4
	size, ok, err = BlockSize([]byte("#0"), ieee)
	require.NoError(err)
	require.True(ok)
	require.Equal(2+16, size)

	size, ok, err = BlockSize([]byte("#A\x00\x08"), BinaryFormat{Element: Int16, Header: HeaderHP, BigEndian: true})
	require.NoError(err)
	require.True(ok)
	require.Equal(12, size)

	size, ok, err = BlockSize(nil, BinaryFormat{Element: Int32, Header: HeaderEmpty, Count: 3})
	require.NoError(err)
	require.True(ok)
	require.Equal(12, size)

	_, _, err = BlockSize([]byte("1.0"), BinaryFormat{Element: Int32, Header: HeaderIEEE})
	require.ErrorIs(err, ErrMalformedBlock)
}
