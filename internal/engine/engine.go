// Package engine runs the arbitrage decision loop: pick the best-funded
// stablecoin, search quotes pair by pair until one clears the profit
// threshold, then either report (dry run) or execute through the matching
// venue. One call to Run is one full pass of the machine and yields exactly
// one terminal result.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/gabesan21/trading-web3/internal/balance"
	"github.com/gabesan21/trading-web3/internal/dex/core"
	"github.com/gabesan21/trading-web3/internal/metrics"
	"github.com/gabesan21/trading-web3/internal/numeric"
	"github.com/gabesan21/trading-web3/internal/profit"
	"github.com/gabesan21/trading-web3/internal/types"
)

const (
	ReasonNoBalance     = "No stablecoin balance found above threshold"
	ReasonNoOpportunity = "No profitable opportunity found"
	ReasonDryRun        = "Dry run: execution skipped"
)

type state string

const (
	stateBalanceCheck state = "balance_check"
	stateSearching    state = "searching"
	stateDryRun       state = "dry_run_report"
	stateExecuting    state = "executing"
	stateSucceeded    state = "succeeded"
	stateFailed       state = "failed"
	stateNoOpp        state = "no_opportunity"
)

// BalanceSource is the slice of balance.Inspector the engine depends on.
type BalanceSource interface {
	HighestStablecoinBalance(ctx context.Context, wallet common.Address, tokens []types.Token, minThreshold *big.Int) (*balance.TokenBalance, error)
}

// QuoteFetcher is the slice of quote.Aggregator the engine depends on.
// Returned quotes are sorted best-first.
type QuoteFetcher interface {
	GetQuotes(ctx context.Context, req types.QuoteRequest) []types.Quote
}

// GasPricer supplies the current gas price for the optional net-profit
// check. *ethclient.Client satisfies it.
type GasPricer interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Params are the immutable knobs of one engine instance; built once at
// process start and passed down.
type Params struct {
	MinProfitBps        int64
	MaxSlippageBps      int64
	DeadlineSeconds     int64
	CheckGasCost        bool
	DryRun              bool
	MinBalanceThreshold *big.Int // nil means no floor
	NativePriceInOutput *big.Int // output units per 1e18 wei; nil disables gas check
	ChainID             int64
}

type Engine struct {
	params   Params
	balances BalanceSource
	quotes   QuoteFetcher
	venues   *core.Registry
	gas      GasPricer // optional
	log      *zap.Logger
}

func New(params Params, balances BalanceSource, quotes QuoteFetcher, venues *core.Registry, gas GasPricer, log *zap.Logger) *Engine {
	return &Engine{
		params:   params,
		balances: balances,
		quotes:   quotes,
		venues:   venues,
		gas:      gas,
		log:      log,
	}
}

func (e *Engine) transition(s state, fields ...zap.Field) {
	e.log.Info("engine state", append([]zap.Field{zap.String("state", string(s))}, fields...)...)
}

// Run executes the state machine once. It never panics the caller: an
// unexpected failure anywhere inside is converted into a failed result.
func (e *Engine) Run(ctx context.Context, wallet common.Address, signer types.Signer, stablecoins []types.Token) (res types.ArbitrageResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("engine run panicked", zap.Any("panic", r))
			res = types.ArbitrageResult{Reason: fmt.Sprintf("unexpected failure: %v", r)}
		}
	}()

	if signer == nil {
		e.transition(stateFailed)
		return types.ArbitrageResult{Reason: "no signing credential configured"}
	}

	e.transition(stateBalanceCheck, zap.String("wallet", wallet.Hex()))
	best, err := e.balances.HighestStablecoinBalance(ctx, wallet, stablecoins, e.params.MinBalanceThreshold)
	if err != nil {
		e.transition(stateFailed, zap.Error(err))
		return types.ArbitrageResult{Reason: fmt.Sprintf("balance check failed: %v", err)}
	}
	if best == nil {
		e.transition(stateNoOpp)
		return types.ArbitrageResult{Reason: ReasonNoBalance}
	}
	e.log.Info("input token selected",
		zap.String("token", best.Token.Symbol),
		zap.String("balance", best.Balance.String()),
	)

	e.transition(stateSearching)
	opp := e.search(ctx, best, stablecoins)
	if opp == nil {
		e.transition(stateNoOpp)
		return types.ArbitrageResult{Reason: ReasonNoOpportunity}
	}

	if reason, ok := e.clearsGasCost(ctx, signer, opp); !ok {
		e.transition(stateNoOpp, zap.String("reason", reason))
		return types.ArbitrageResult{Opportunity: opp, Reason: reason}
	}

	if e.params.DryRun {
		e.transition(stateDryRun,
			zap.String("provider", opp.Provider),
			zap.String("pair", opp.TokenIn.Symbol+"/"+opp.TokenOut.Symbol),
			zap.Int64("profit_bps", opp.ProfitBps),
		)
		return types.ArbitrageResult{Success: true, Opportunity: opp, Reason: ReasonDryRun}
	}

	return e.execute(ctx, signer, opp)
}

// search walks target tokens in configured order and, within each pair,
// the sorted quotes. The first quote at or above the threshold wins and
// halts the whole search; no further pairs are quoted after that.
func (e *Engine) search(ctx context.Context, best *balance.TokenBalance, stablecoins []types.Token) *types.Opportunity {
	for _, target := range stablecoins {
		if target.Address == best.Token.Address {
			continue
		}
		req := types.QuoteRequest{
			TokenIn:  best.Token,
			TokenOut: target,
			AmountIn: best.Balance,
			ChainID:  e.params.ChainID,
		}
		for _, q := range e.quotes.GetQuotes(ctx, req) {
			bps, err := profit.Bps(best.Balance, q.AmountOut, best.Token, target)
			if err != nil {
				e.log.Warn("profit computation failed",
					zap.String("source", q.Source), zap.Error(err))
				continue
			}
			e.log.Debug("quote evaluated",
				zap.String("source", q.Source),
				zap.String("pair", best.Token.Symbol+"/"+target.Symbol),
				zap.Int64("profit_bps", bps),
			)
			if bps < e.params.MinProfitBps {
				continue
			}
			metrics.OpportunitiesFound.Inc()
			return &types.Opportunity{
				Provider:    q.Source,
				TokenIn:     best.Token,
				TokenOut:    target,
				AmountIn:    best.Balance,
				ExpectedOut: q.AmountOut,
				ProfitBps:   bps,
				Quote:       q,
				GasEstimate: q.GasEstimate,
			}
		}
	}
	return nil
}

// clearsGasCost subtracts the estimated gas cost from the gross profit when
// the check is enabled and a price ratio plus gas pricer are available.
// Missing inputs skip the check rather than block the trade.
func (e *Engine) clearsGasCost(ctx context.Context, signer types.Signer, opp *types.Opportunity) (string, bool) {
	if !e.params.CheckGasCost || e.params.NativePriceInOutput == nil || e.gas == nil {
		return "", true
	}
	gasPrice, err := e.gas.SuggestGasPrice(ctx)
	if err != nil {
		e.log.Warn("gas price unavailable, skipping gas cost check", zap.Error(err))
		return "", true
	}

	inNorm, err := numeric.Normalize(opp.AmountIn, opp.TokenIn.Decimals, opp.TokenOut.Decimals)
	if err != nil {
		e.log.Warn("gross profit normalization failed, skipping gas cost check", zap.Error(err))
		return "", true
	}
	gross := new(big.Int).Sub(opp.ExpectedOut, inNorm)
	net := profit.NetProfit(gross, e.gasEstimate(ctx, signer, opp), gasPrice, opp.TokenOut, e.params.NativePriceInOutput)
	if net.Sign() <= 0 {
		e.log.Info("opportunity rejected by gas cost",
			zap.String("gross", gross.String()), zap.String("net", net.String()))
		return "Opportunity not profitable after gas cost", false
	}
	return "", true
}

// gasEstimate prefers the estimate the winning quote carried and falls
// back to the venue's executor when the quote has none. A backend whose
// trader pays no settlement gas legitimately reports zero either way.
func (e *Engine) gasEstimate(ctx context.Context, signer types.Signer, opp *types.Opportunity) uint64 {
	if opp.GasEstimate > 0 {
		return opp.GasEstimate
	}
	venue, ok := e.venues.Get(opp.Provider)
	if !ok || venue.Executor == nil {
		return 0
	}
	return venue.Executor.EstimateGas(ctx, e.swapRequest(signer, opp))
}

func (e *Engine) swapRequest(signer types.Signer, opp *types.Opportunity) types.SwapRequest {
	return types.SwapRequest{
		TokenIn:      opp.TokenIn,
		TokenOut:     opp.TokenOut,
		AmountIn:     opp.AmountIn,
		MinAmountOut: profit.MinAmountOut(opp.ExpectedOut, e.params.MaxSlippageBps),
		Deadline:     time.Now().Unix() + e.params.DeadlineSeconds,
		Signer:       signer,
		ChainID:      e.params.ChainID,
		Route:        opp.Quote.Route,
	}
}

func (e *Engine) execute(ctx context.Context, signer types.Signer, opp *types.Opportunity) types.ArbitrageResult {
	venue, ok := e.venues.Get(opp.Provider)
	if !ok || venue.Executor == nil {
		e.transition(stateFailed, zap.String("provider", opp.Provider))
		return types.ArbitrageResult{
			Opportunity: opp,
			Reason:      fmt.Sprintf("no executor registered for provider %q", opp.Provider),
		}
	}

	req := e.swapRequest(signer, opp)
	e.transition(stateExecuting,
		zap.String("provider", opp.Provider),
		zap.String("pair", opp.TokenIn.Symbol+"/"+opp.TokenOut.Symbol),
		zap.String("min_amount_out", req.MinAmountOut.String()),
	)

	sres := venue.Executor.Execute(ctx, req)

	result := types.ArbitrageResult{
		Attempted:   true,
		Success:     sres.Success,
		Opportunity: opp,
		TxID:        sres.TxID,
	}
	if sres.Success {
		metrics.SwapsExecuted.WithLabelValues(opp.Provider, "success").Inc()
		e.transition(stateSucceeded, zap.String("tx", sres.TxID))
	} else {
		metrics.SwapsExecuted.WithLabelValues(opp.Provider, "failure").Inc()
		if sres.Err != nil {
			result.Reason = sres.Err.Error()
		}
		e.transition(stateFailed, zap.Error(sres.Err))
	}
	return result
}
