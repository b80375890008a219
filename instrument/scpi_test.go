package instrument

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-testbench/transfer"
)

func TestNumericArg(t *testing.T) {
	for _, tt := range []struct{ in, out string }{
		{"1e-6", "1e-6"},
		{" 20 ", "20"},
		{"minimum", "MIN"},
		{"Max", "MAX"},
		{"default", "DEF"},
	} {
		v, err := NumericArg(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.out, v)
	}

	for _, in := range []string{"", "abc", "NaN", "Inf", "1;*RST"} {
		_, err := NumericArg(in)
		require.ErrorIs(t, err, transfer.ErrInvalidArgument, in)
	}
}

func TestParseReplies(t *testing.T) {
	require := require.New(t)

	f, err := ParseFloat("+2.000000E-06\n")
	require.NoError(err)
	require.InDelta(2e-6, f, 1e-18)

	_, err = ParseFloat("OVER")
	require.ErrorIs(err, transfer.ErrMalformedText)

	n, err := ParseCount("+100")
	require.NoError(err)
	require.Equal(100, n)

	n, err = ParseCount("+1.000000E+03")
	require.NoError(err)
	require.Equal(1000, n)

	_, err = ParseCount("-1")
	require.ErrorIs(err, transfer.ErrMalformedText)

	_, err = ParseCount("1.5")
	require.ErrorIs(err, transfer.ErrMalformedText)

	require.Equal("ON", OnOff(true))
	require.Equal("OFF", OnOff(false))
}
