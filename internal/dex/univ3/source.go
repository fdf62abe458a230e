// Package univ3 is the on-chain Uniswap V3 backend: quotes are simulated
// through QuoterV2 eth_calls across fee tiers, swaps go through the
// SwapRouter with deadline and minimum output enforced by the contract
// itself.
package univ3

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/gabesan21/trading-web3/internal/dexerr"
	"github.com/gabesan21/trading-web3/internal/metrics"
	"github.com/gabesan21/trading-web3/internal/quote"
	"github.com/gabesan21/trading-web3/internal/swap"
	"github.com/gabesan21/trading-web3/internal/types"
)

const SourceName = "uniswap_v3"

type Source struct {
	ec       swap.Backend
	quoter   common.Address
	feeTiers []uint32
	policy   dexerr.Policy
	q2abi    abi.ABI
	log      *zap.Logger
}

func NewSource(ec swap.Backend, quoter common.Address, feeTiers []uint32, policy dexerr.Policy, log *zap.Logger) (*Source, error) {
	if quoter == (common.Address{}) {
		return nil, dexerr.Newf(SourceName, dexerr.KindConfig, "quoter v2 address is not configured")
	}
	q2abi, err := abi.JSON(strings.NewReader(quoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("parse quoter v2 abi: %w", err)
	}
	if len(feeTiers) == 0 {
		feeTiers = []uint32{100, 500, 3000}
	}
	return &Source{ec: ec, quoter: quoter, feeTiers: feeTiers, policy: policy, q2abi: q2abi, log: log}, nil
}

func (s *Source) Name() string { return SourceName }

// GetQuote simulates the swap on every configured fee tier and returns the
// best (highest-output) result. A tier without a pool is permanent for that
// tier only; transient RPC failures are retried per the shared policy.
func (s *Source) GetQuote(ctx context.Context, req types.QuoteRequest) (types.Quote, error) {
	if err := quote.ValidateRequest(SourceName, req); err != nil {
		return types.Quote{}, err
	}
	start := time.Now()
	defer func() {
		metrics.QuoteLatency.WithLabelValues(SourceName).Observe(time.Since(start).Seconds())
	}()

	var best types.Quote
	var lastErr error
	for _, tier := range s.feeTiers {
		out, gas, err := s.quoteTier(ctx, req, tier)
		if err != nil {
			if dexerr.KindOf(err) == dexerr.KindNoLiquidity {
				s.log.Debug("no pool on tier", zap.Uint32("fee", tier),
					zap.String("pair", req.TokenIn.Symbol+"/"+req.TokenOut.Symbol))
			}
			lastErr = err
			continue
		}
		if best.AmountOut == nil || out.Cmp(best.AmountOut) > 0 {
			best = types.Quote{
				Source:      SourceName,
				AmountOut:   out,
				GasEstimate: gas,
				Route:       fmt.Sprintf("fee_tier=%d", tier),
				CreatedAt:   time.Now(),
			}
		}
	}
	if best.AmountOut == nil {
		if lastErr == nil {
			lastErr = dexerr.Newf(SourceName, dexerr.KindNoLiquidity, "no working fee tier")
		}
		return types.Quote{}, lastErr
	}
	return best, nil
}

func (s *Source) quoteTier(ctx context.Context, req types.QuoteRequest, tier uint32) (*big.Int, uint64, error) {
	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		AmountIn          *big.Int
		Fee               *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           req.TokenIn.Address,
		TokenOut:          req.TokenOut.Address,
		AmountIn:          req.AmountIn,
		Fee:               big.NewInt(int64(tier)),
		SqrtPriceLimitX96: big.NewInt(0),
	}
	input, err := s.q2abi.Pack("quoteExactInputSingle", params)
	if err != nil {
		return nil, 0, dexerr.Newf(SourceName, dexerr.KindValidation, "pack quote: %v", err)
	}

	var res []byte
	err = dexerr.Retry(ctx, s.policy, func(ctx context.Context) error {
		var callErr error
		res, callErr = s.ec.CallContract(ctx, ethereum.CallMsg{To: &s.quoter, Data: input}, nil)
		if callErr != nil {
			return classifyCallError(callErr, tier)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	outs, err := s.q2abi.Methods["quoteExactInputSingle"].Outputs.Unpack(res)
	if err != nil || len(outs) < 4 {
		if err == nil {
			err = fmt.Errorf("short output")
		}
		return nil, 0, dexerr.Newf(SourceName, dexerr.KindBackend, "decode quote: %v", err)
	}
	amountOut, ok := outs[0].(*big.Int)
	if !ok {
		return nil, 0, dexerr.Newf(SourceName, dexerr.KindBackend, "unexpected amountOut type %T", outs[0])
	}
	var gasEstimate uint64
	if ge, ok := outs[3].(*big.Int); ok && ge.IsUint64() {
		gasEstimate = ge.Uint64()
	}
	return amountOut, gasEstimate, nil
}

// classifyCallError maps an eth_call failure onto the shared taxonomy. A
// revert means the pool for this tier does not exist or cannot serve the
// amount; anything else is treated as transient transport trouble.
func classifyCallError(err error, tier uint32) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert") {
		return dexerr.Newf(SourceName, dexerr.KindNoLiquidity, "fee tier %d: %v", tier, err)
	}
	return dexerr.New(SourceName, dexerr.KindNetwork, err)
}
