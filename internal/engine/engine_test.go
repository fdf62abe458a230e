package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gabesan21/trading-web3/internal/balance"
	"github.com/gabesan21/trading-web3/internal/dex/core"
	"github.com/gabesan21/trading-web3/internal/types"
)

var (
	usdt = types.Token{Address: common.HexToAddress("0x01"), Decimals: 6, Symbol: "USDT", ChainID: 42161}
	dai  = types.Token{Address: common.HexToAddress("0x02"), Decimals: 18, Symbol: "DAI", ChainID: 42161}
	usdc = types.Token{Address: common.HexToAddress("0x03"), Decimals: 6, Symbol: "USDC", ChainID: 42161}

	testWallet = common.HexToAddress("0xabcd")
)

func e18(units int64, extraZeros int) *big.Int {
	v := big.NewInt(units)
	return v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(extraZeros)), nil))
}

type fakeBalances struct {
	best *balance.TokenBalance
	err  error
}

func (f fakeBalances) HighestStablecoinBalance(context.Context, common.Address, []types.Token, *big.Int) (*balance.TokenBalance, error) {
	return f.best, f.err
}

type fakeQuotes struct {
	calls    []types.QuoteRequest
	byTarget map[string][]types.Quote
	panics   bool
}

func (f *fakeQuotes) GetQuotes(_ context.Context, req types.QuoteRequest) []types.Quote {
	if f.panics {
		panic("aggregator exploded")
	}
	f.calls = append(f.calls, req)
	return f.byTarget[req.TokenOut.Symbol]
}

type fakeExecutor struct {
	name          string
	result        types.SwapResult
	executed      []types.SwapRequest
	approved      int
	gasEstimate   uint64
	estimateCalls int
}

func (f *fakeExecutor) Name() string { return f.name }
func (f *fakeExecutor) ApproveToken(context.Context, types.Token, *big.Int, types.Signer) error {
	f.approved++
	return nil
}
func (f *fakeExecutor) EstimateGas(context.Context, types.SwapRequest) uint64 {
	f.estimateCalls++
	return f.gasEstimate
}
func (f *fakeExecutor) Execute(_ context.Context, req types.SwapRequest) types.SwapResult {
	f.executed = append(f.executed, req)
	return f.result
}

type fakeSigner struct{}

func (fakeSigner) Address() common.Address { return testWallet }
func (fakeSigner) SignTx(tx *ethtypes.Transaction, _ *big.Int) (*ethtypes.Transaction, error) {
	return tx, nil
}
func (fakeSigner) SignTypedHash(_, _ []byte) ([]byte, error) { return make([]byte, 65), nil }

func defaultParams() Params {
	return Params{
		MinProfitBps:    30,
		MaxSlippageBps:  50,
		DeadlineSeconds: 300,
		ChainID:         42161,
	}
}

func newEngine(t *testing.T, params Params, balances BalanceSource, quotes QuoteFetcher, ex *fakeExecutor) *Engine {
	t.Helper()
	reg := core.NewRegistry()
	if ex != nil {
		reg.Register(&core.Venue{ID: core.Normalize(ex.name), Executor: ex})
	}
	return New(params, balances, quotes, reg, nil, zap.NewNop())
}

func TestRun_ProfitableSwapExecuted(t *testing.T) {
	funded := fakeBalances{best: &balance.TokenBalance{Token: usdt, Balance: e18(1000, 6)}}
	quotes := &fakeQuotes{byTarget: map[string][]types.Quote{
		"DAI": {{Source: "uniswapv3", AmountOut: e18(1004, 18), Route: "fee_tier=500"}},
	}}
	ex := &fakeExecutor{name: "uniswapv3", result: types.SwapResult{Success: true, TxID: "0xfeed"}}

	res := newEngine(t, defaultParams(), funded, quotes, ex).Run(
		context.Background(), testWallet, fakeSigner{}, []types.Token{usdt, dai})

	require.True(t, res.Attempted)
	require.True(t, res.Success)
	assert.Equal(t, "0xfeed", res.TxID)
	require.NotNil(t, res.Opportunity)
	assert.Equal(t, int64(40), res.Opportunity.ProfitBps)

	require.Len(t, ex.executed, 1)
	req := ex.executed[0]
	wantMin := new(big.Int).Mul(e18(1004, 18), big.NewInt(9950))
	wantMin.Quo(wantMin, big.NewInt(10000))
	assert.Equal(t, wantMin, req.MinAmountOut)
	assert.Equal(t, "fee_tier=500", req.Route)
	assert.Greater(t, req.Deadline, int64(0))
}

func TestRun_StopOnFirstMatch(t *testing.T) {
	funded := fakeBalances{best: &balance.TokenBalance{Token: usdt, Balance: e18(1000, 6)}}
	quotes := &fakeQuotes{byTarget: map[string][]types.Quote{
		"DAI":  {{Source: "uniswapv3", AmountOut: e18(1004, 18)}},
		"USDC": {{Source: "openocean", AmountOut: e18(1010, 6)}},
	}}
	ex := &fakeExecutor{name: "uniswapv3", result: types.SwapResult{Success: true, TxID: "0x01"}}

	res := newEngine(t, defaultParams(), funded, quotes, ex).Run(
		context.Background(), testWallet, fakeSigner{}, []types.Token{usdt, dai, usdc})

	require.True(t, res.Success)
	require.Len(t, quotes.calls, 1, "search halts at the first qualifying pair")
	assert.Equal(t, "DAI", quotes.calls[0].TokenOut.Symbol)
}

func TestRun_ThresholdIsInclusive(t *testing.T) {
	funded := fakeBalances{best: &balance.TokenBalance{Token: usdt, Balance: big.NewInt(10_000)}}

	// 10030 out of 10000 in, same decimals: exactly 30 bps.
	exact := &fakeQuotes{byTarget: map[string][]types.Quote{
		"USDC": {{Source: "openocean", AmountOut: big.NewInt(10_030)}},
	}}
	ex := &fakeExecutor{name: "openocean", result: types.SwapResult{Success: true}}
	res := newEngine(t, defaultParams(), funded, exact, ex).Run(
		context.Background(), testWallet, fakeSigner{}, []types.Token{usdt, usdc})
	assert.True(t, res.Attempted, "profitBps == minProfitBps is accepted")

	// 29 bps falls short.
	short := &fakeQuotes{byTarget: map[string][]types.Quote{
		"USDC": {{Source: "openocean", AmountOut: big.NewInt(10_029)}},
	}}
	ex2 := &fakeExecutor{name: "openocean"}
	res = newEngine(t, defaultParams(), funded, short, ex2).Run(
		context.Background(), testWallet, fakeSigner{}, []types.Token{usdt, usdc})
	assert.False(t, res.Attempted)
	assert.Equal(t, ReasonNoOpportunity, res.Reason)
	assert.Empty(t, ex2.executed)
}

func TestRun_RejectedPairFallsThroughToNext(t *testing.T) {
	params := defaultParams()
	params.MinProfitBps = 200

	funded := fakeBalances{best: &balance.TokenBalance{Token: usdt, Balance: e18(1000, 6)}}
	quotes := &fakeQuotes{byTarget: map[string][]types.Quote{
		// 150 bps on DAI, below the 200 floor.
		"DAI": {{Source: "uniswapv3", AmountOut: e18(1015, 18)}},
		// 250 bps on USDC clears it.
		"USDC": {{Source: "openocean", AmountOut: e18(1025, 6)}},
	}}
	ex := &fakeExecutor{name: "openocean", result: types.SwapResult{Success: true}}

	res := newEngine(t, params, funded, quotes, ex).Run(
		context.Background(), testWallet, fakeSigner{}, []types.Token{usdt, dai, usdc})

	require.True(t, res.Success)
	require.Len(t, quotes.calls, 2, "rejected pair does not stop the search")
	require.NotNil(t, res.Opportunity)
	assert.Equal(t, "USDC", res.Opportunity.TokenOut.Symbol)
	assert.Equal(t, int64(250), res.Opportunity.ProfitBps)
}

func TestRun_NoBalanceSkipsSearch(t *testing.T) {
	quotes := &fakeQuotes{}
	res := newEngine(t, defaultParams(), fakeBalances{best: nil}, quotes, nil).Run(
		context.Background(), testWallet, fakeSigner{}, []types.Token{usdt, dai})

	assert.False(t, res.Attempted)
	assert.False(t, res.Success)
	assert.Equal(t, ReasonNoBalance, res.Reason)
	assert.Empty(t, quotes.calls, "aggregator must not be called without a funded token")
}

func TestRun_DryRunSkipsExecution(t *testing.T) {
	params := defaultParams()
	params.DryRun = true

	funded := fakeBalances{best: &balance.TokenBalance{Token: usdt, Balance: e18(1000, 6)}}
	quotes := &fakeQuotes{byTarget: map[string][]types.Quote{
		"DAI": {{Source: "uniswapv3", AmountOut: e18(1004, 18)}},
	}}
	ex := &fakeExecutor{name: "uniswapv3"}

	res := newEngine(t, params, funded, quotes, ex).Run(
		context.Background(), testWallet, fakeSigner{}, []types.Token{usdt, dai})

	assert.False(t, res.Attempted)
	assert.True(t, res.Success)
	require.NotNil(t, res.Opportunity)
	assert.Empty(t, ex.executed, "dry run never reaches the executor")
	assert.Zero(t, ex.approved)
}

func TestRun_ExecutorFailurePreservedVerbatim(t *testing.T) {
	execErr := errors.New("approve USDT for 0xRouter: insufficient funds for gas")
	funded := fakeBalances{best: &balance.TokenBalance{Token: usdt, Balance: e18(1000, 6)}}
	quotes := &fakeQuotes{byTarget: map[string][]types.Quote{
		"DAI": {{Source: "uniswapv3", AmountOut: e18(1004, 18)}},
	}}
	ex := &fakeExecutor{name: "uniswapv3", result: types.SwapResult{Success: false, Err: execErr}}

	res := newEngine(t, defaultParams(), funded, quotes, ex).Run(
		context.Background(), testWallet, fakeSigner{}, []types.Token{usdt, dai})

	assert.True(t, res.Attempted)
	assert.False(t, res.Success)
	assert.Equal(t, execErr.Error(), res.Reason)
}

func TestRun_UnknownProviderFails(t *testing.T) {
	funded := fakeBalances{best: &balance.TokenBalance{Token: usdt, Balance: e18(1000, 6)}}
	quotes := &fakeQuotes{byTarget: map[string][]types.Quote{
		"DAI": {{Source: "mystery-dex", AmountOut: e18(1004, 18)}},
	}}

	res := newEngine(t, defaultParams(), funded, quotes, nil).Run(
		context.Background(), testWallet, fakeSigner{}, []types.Token{usdt, dai})

	assert.False(t, res.Attempted)
	assert.False(t, res.Success)
	assert.Contains(t, res.Reason, "mystery-dex")
}

func TestRun_NilSigner(t *testing.T) {
	res := newEngine(t, defaultParams(), fakeBalances{}, &fakeQuotes{}, nil).Run(
		context.Background(), testWallet, nil, []types.Token{usdt, dai})
	assert.False(t, res.Success)
	assert.Contains(t, res.Reason, "signing credential")
}

func TestRun_PanicBecomesFailedResult(t *testing.T) {
	funded := fakeBalances{best: &balance.TokenBalance{Token: usdt, Balance: e18(1000, 6)}}
	quotes := &fakeQuotes{panics: true}

	res := newEngine(t, defaultParams(), funded, quotes, nil).Run(
		context.Background(), testWallet, fakeSigner{}, []types.Token{usdt, dai})

	assert.False(t, res.Attempted)
	assert.False(t, res.Success)
	assert.Contains(t, res.Reason, "aggregator exploded")
}

func TestRun_GasCostRejection(t *testing.T) {
	params := defaultParams()
	params.CheckGasCost = true
	// 4000 DAI per native token, in smallest units per 1e18 wei.
	params.NativePriceInOutput = e18(4000, 18)

	funded := fakeBalances{best: &balance.TokenBalance{Token: usdt, Balance: e18(1000, 6)}}
	quotes := &fakeQuotes{byTarget: map[string][]types.Quote{
		"DAI": {{Source: "uniswapv3", AmountOut: e18(1004, 18), GasEstimate: 300_000}},
	}}
	ex := &fakeExecutor{name: "uniswapv3"}
	reg := core.NewRegistry()
	reg.Register(&core.Venue{ID: core.Normalize(ex.name), Executor: ex})

	// 10000 gwei: at 300k gas and 4000 DAI/native the cost dwarfs the
	// 4 DAI gross profit.
	gas := gasPricerFunc(func(context.Context) (*big.Int, error) {
		return e18(1, 13), nil
	})
	res := New(params, funded, quotes, reg, gas, zap.NewNop()).Run(
		context.Background(), testWallet, fakeSigner{}, []types.Token{usdt, dai})

	assert.False(t, res.Attempted)
	assert.False(t, res.Success)
	assert.Contains(t, res.Reason, "gas cost")
	assert.Empty(t, ex.executed)
	assert.Zero(t, ex.estimateCalls, "the quote's own estimate wins when present")
}

func TestRun_GasCheckFallsBackToExecutorEstimate(t *testing.T) {
	params := defaultParams()
	params.CheckGasCost = true
	params.NativePriceInOutput = e18(4000, 18)

	funded := fakeBalances{best: &balance.TokenBalance{Token: usdt, Balance: e18(1000, 6)}}
	// The quote carries no estimate, so the gate must ask the executor.
	quotes := &fakeQuotes{byTarget: map[string][]types.Quote{
		"DAI": {{Source: "uniswapv3", AmountOut: e18(1004, 18), GasEstimate: 0}},
	}}
	ex := &fakeExecutor{name: "uniswapv3", gasEstimate: 300_000}
	reg := core.NewRegistry()
	reg.Register(&core.Venue{ID: core.Normalize(ex.name), Executor: ex})

	gas := gasPricerFunc(func(context.Context) (*big.Int, error) {
		return e18(1, 13), nil
	})
	res := New(params, funded, quotes, reg, gas, zap.NewNop()).Run(
		context.Background(), testWallet, fakeSigner{}, []types.Token{usdt, dai})

	assert.Equal(t, 1, ex.estimateCalls, "zero-estimate quotes consult the executor")
	assert.False(t, res.Attempted)
	assert.Contains(t, res.Reason, "gas cost")
	assert.Empty(t, ex.executed)
}

func TestRun_GasCheckZeroEstimateBackendPasses(t *testing.T) {
	params := defaultParams()
	params.CheckGasCost = true
	params.NativePriceInOutput = e18(4000, 18)

	funded := fakeBalances{best: &balance.TokenBalance{Token: usdt, Balance: e18(1000, 6)}}
	quotes := &fakeQuotes{byTarget: map[string][]types.Quote{
		"DAI": {{Source: "cowswap", AmountOut: e18(1004, 18), GasEstimate: 0}},
	}}
	// A backend whose trader pays no settlement gas reports zero from its
	// executor too; the gate then costs nothing and the trade proceeds.
	ex := &fakeExecutor{name: "cowswap", gasEstimate: 0, result: types.SwapResult{Success: true, TxID: "0xuid"}}
	reg := core.NewRegistry()
	reg.Register(&core.Venue{ID: core.Normalize(ex.name), Executor: ex})

	gas := gasPricerFunc(func(context.Context) (*big.Int, error) {
		return e18(1, 13), nil
	})
	res := New(params, funded, quotes, reg, gas, zap.NewNop()).Run(
		context.Background(), testWallet, fakeSigner{}, []types.Token{usdt, dai})

	assert.Equal(t, 1, ex.estimateCalls)
	assert.True(t, res.Attempted)
	assert.True(t, res.Success)
}

type gasPricerFunc func(ctx context.Context) (*big.Int, error)

func (f gasPricerFunc) SuggestGasPrice(ctx context.Context) (*big.Int, error) { return f(ctx) }
