package profit

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabesan21/trading-web3/internal/types"
)

var (
	usdt = types.Token{Symbol: "USDT", Decimals: 6, ChainID: 42161}
	dai  = types.Token{Symbol: "DAI", Decimals: 18, ChainID: 42161}
)

func bi(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big int literal: " + s)
	}
	return v
}

func TestBps_CrossDecimals(t *testing.T) {
	// 1000 USDT in, 1004 DAI out: +0.4% = 40 bps.
	in := bi("1000000000")                   // 1000 * 10^6
	out := bi("1004000000000000000000")      // 1004 * 10^18
	bps, err := Bps(in, out, usdt, dai)
	require.NoError(t, err)
	assert.Equal(t, int64(40), bps)
}

func TestBps_LosingTradeIsNegative(t *testing.T) {
	in := bi("1000000000")
	out := bi("995000000000000000000") // 995 DAI
	bps, err := Bps(in, out, usdt, dai)
	require.NoError(t, err)
	assert.Equal(t, int64(-50), bps)
}

func TestBps_Monotonic(t *testing.T) {
	in := bi("1000000000")
	prev := int64(-10000)
	out := bi("990000000000000000000")
	step := bi("1000000000000000000") // 1 DAI
	for i := 0; i < 25; i++ {
		bps, err := Bps(in, out, usdt, dai)
		require.NoError(t, err)
		assert.Greater(t, bps, prev)
		prev = bps
		out = new(big.Int).Add(out, step)
	}
}

func TestBps_RejectsBadInput(t *testing.T) {
	_, err := Bps(big.NewInt(0), bi("1000000"), usdt, dai)
	assert.Error(t, err)
	_, err = Bps(nil, bi("1000000"), usdt, dai)
	assert.Error(t, err)
	_, err = Bps(big.NewInt(100), big.NewInt(-1), usdt, dai)
	assert.Error(t, err)
}

func TestMinAmountOut_Bounds(t *testing.T) {
	x := bi("1004000000000000000000")

	assert.Zero(t, MinAmountOut(x, 0).Cmp(x))
	assert.Zero(t, MinAmountOut(x, 10000).Sign())

	// 50 bps off 1004e18 = 1004e18 * 9950 / 10000.
	want := new(big.Int).Mul(x, big.NewInt(9950))
	want.Quo(want, big.NewInt(10000))
	assert.Zero(t, MinAmountOut(x, 50).Cmp(want))
}

func TestMinAmountOut_MonotoneInSlippage(t *testing.T) {
	x := bi("123456789")
	prev := MinAmountOut(x, 0)
	for s := int64(1); s <= 10000; s += 500 {
		cur := MinAmountOut(x, s)
		assert.True(t, cur.Cmp(prev) <= 0, "slippage=%d", s)
		prev = cur
	}
}

func TestNetProfit(t *testing.T) {
	gross := bi("4000000") // 4 USDT
	// 200k gas at 0.01 gwei = 2e12 wei. Native at 3000 USDT/ETH
	// (3000e6 output units per 1e18 wei) -> cost = 6000 units.
	cost := NetProfit(gross, 200000, big.NewInt(10_000_000), usdt, bi("3000000000"))
	assert.Equal(t, bi("3994000"), cost)

	// Missing price ratio leaves gross untouched.
	assert.Zero(t, NetProfit(gross, 200000, big.NewInt(1), usdt, nil).Cmp(gross))
}
