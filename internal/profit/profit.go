// Package profit implements the basis-point arithmetic behind every
// go/no-go trade decision. Multiply-before-divide order is mandatory here:
// it keeps a borderline trade (exactly at the threshold) deterministic.
package profit

import (
	"fmt"
	"math/big"

	"github.com/gabesan21/trading-web3/internal/numeric"
	"github.com/gabesan21/trading-web3/internal/types"
)

const bpsDenominator = 10000

// Bps returns the profit of swapping amountIn of tokenIn for amountOut of
// tokenOut, in signed basis points. amountOut is first normalized to
// tokenIn's decimal basis so the comparison is like-for-like.
func Bps(amountIn, amountOut *big.Int, tokenIn, tokenOut types.Token) (int64, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return 0, fmt.Errorf("amountIn must be > 0")
	}
	outNorm, err := numeric.Normalize(amountOut, tokenOut.Decimals, tokenIn.Decimals)
	if err != nil {
		return 0, fmt.Errorf("normalize amountOut: %w", err)
	}

	diff := new(big.Int).Sub(outNorm, amountIn)
	diff.Mul(diff, big.NewInt(bpsDenominator))
	diff.Quo(diff, amountIn)

	if !diff.IsInt64() {
		return 0, fmt.Errorf("profit bps out of range: %s", diff)
	}
	return diff.Int64(), nil
}

// MinAmountOut returns the floor of expected*(10000-slippageBps)/10000.
// slippageBps is clamped to [0, 10000], so the result never exceeds
// expected and bottoms out at zero.
func MinAmountOut(expected *big.Int, slippageBps int64) *big.Int {
	if expected == nil || expected.Sign() <= 0 {
		return big.NewInt(0)
	}
	if slippageBps < 0 {
		slippageBps = 0
	}
	if slippageBps > bpsDenominator {
		slippageBps = bpsDenominator
	}
	out := new(big.Int).Mul(expected, big.NewInt(bpsDenominator-slippageBps))
	return out.Quo(out, big.NewInt(bpsDenominator))
}

// NetProfit subtracts an estimated gas cost from a gross profit expressed in
// outputToken's smallest unit. gasUsed*gasPriceWei is the cost in native
// smallest units (wei); nativePriceInOutput converts it, expressed as output
// smallest units per 1e18 native units. The price ratio is supplied by the
// caller; where it comes from is not this package's concern.
func NetProfit(gross *big.Int, gasUsed uint64, gasPriceWei *big.Int, outputToken types.Token, nativePriceInOutput *big.Int) *big.Int {
	if gross == nil {
		gross = big.NewInt(0)
	}
	if gasPriceWei == nil || nativePriceInOutput == nil {
		return new(big.Int).Set(gross)
	}
	costWei := new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), gasPriceWei)
	costOut := new(big.Int).Mul(costWei, nativePriceInOutput)
	costOut.Quo(costOut, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	return new(big.Int).Sub(gross, costOut)
}
