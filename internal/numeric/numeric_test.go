package numeric

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bi(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big int literal: " + s)
	}
	return v
}

func TestNormalize_UpThenDownIsLossless(t *testing.T) {
	amounts := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(123456),
		bi("1000000000"),
		bi("999999999999999999999999"),
	}
	decs := [][2]int{{6, 18}, {6, 6}, {0, 18}, {8, 12}}

	for _, a := range amounts {
		for _, d := range decs {
			up, err := Normalize(a, d[0], d[1])
			require.NoError(t, err)
			back, err := Normalize(up, d[1], d[0])
			require.NoError(t, err)
			assert.Zero(t, a.Cmp(back), "amount=%s from=%d to=%d", a, d[0], d[1])
		}
	}
}

func TestNormalize_DownTruncates(t *testing.T) {
	// 1.5 units at 18 decimals scaled to 6 decimals floors the sub-unit part.
	out, err := Normalize(bi("1999999999999999999"), 18, 6)
	require.NoError(t, err)
	assert.Equal(t, bi("1999999"), out)

	out, err = Normalize(big.NewInt(999), 3, 0)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), out)
}

func TestNormalize_SameDecimalsCopies(t *testing.T) {
	a := big.NewInt(42)
	out, err := Normalize(a, 6, 6)
	require.NoError(t, err)
	assert.Equal(t, a, out)
	out.Add(out, big.NewInt(1))
	assert.Equal(t, int64(42), a.Int64(), "input must not be aliased")
}

func TestNormalize_RejectsNegative(t *testing.T) {
	_, err := Normalize(big.NewInt(-1), 6, 18)
	assert.Error(t, err)
	_, err = Normalize(nil, 6, 18)
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	cases := []struct {
		amount    *big.Int
		decimals  int
		precision int
		want      string
	}{
		{bi("1004000000000000000000"), 18, 6, "1004"},
		{bi("1000100000"), 6, 4, "1000.1"},
		{bi("1"), 6, 6, "0.000001"},
		{bi("1"), 6, 2, "0"},
		{big.NewInt(0), 18, 6, "0"},
		{bi("1234567"), 6, 6, "1.234567"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Format(c.amount, c.decimals, c.precision))
	}
}

func TestParse(t *testing.T) {
	out, err := Parse("1004", 18)
	require.NoError(t, err)
	assert.Equal(t, bi("1004000000000000000000"), out)

	out, err = Parse("1.2345678", 6)
	require.NoError(t, err)
	assert.Equal(t, bi("1234567"), out, "extra fractional digits truncate")

	out, err = Parse("0.5", 6)
	require.NoError(t, err)
	assert.Equal(t, bi("500000"), out)

	_, err = Parse("-1", 6)
	assert.Error(t, err)
	_, err = Parse("abc", 6)
	assert.Error(t, err)
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1", "1000.5", "0.000001", "123456.789"} {
		amt, err := Parse(s, 6)
		require.NoError(t, err)
		assert.Equal(t, s, Format(amt, 6, 6))
	}
}
