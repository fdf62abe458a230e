package univ3

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/gabesan21/trading-web3/internal/dexerr"
	"github.com/gabesan21/trading-web3/internal/swap"
	"github.com/gabesan21/trading-web3/internal/types"
)

type Executor struct {
	ec       swap.Backend
	sender   *swap.Sender
	approver *swap.Approver
	router   common.Address
	rabi     abi.ABI
	gasLimit uint64
	log      *zap.Logger
}

func NewExecutor(ec swap.Backend, sender *swap.Sender, approver *swap.Approver, router common.Address, gasLimit uint64, log *zap.Logger) (*Executor, error) {
	if router == (common.Address{}) {
		return nil, dexerr.Newf(SourceName, dexerr.KindConfig, "router address is not configured")
	}
	rabi, err := abi.JSON(strings.NewReader(routerABI))
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	return &Executor{ec: ec, sender: sender, approver: approver, router: router, rabi: rabi, gasLimit: gasLimit, log: log}, nil
}

func (e *Executor) Name() string { return SourceName }

func (e *Executor) ApproveToken(ctx context.Context, token types.Token, amount *big.Int, signer types.Signer) error {
	return e.approver.EnsureAllowance(ctx, token, e.router, amount, signer)
}

// EstimateGas is advisory: on estimation failure the configured gas limit
// stands in, since minAmountOut already bounds the financial risk.
func (e *Executor) EstimateGas(ctx context.Context, req types.SwapRequest) uint64 {
	input, err := e.packSwap(req)
	if err != nil {
		return e.gasLimit
	}
	from := common.Address{}
	if req.Signer != nil {
		from = req.Signer.Address()
	}
	gas, err := e.ec.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &e.router, Data: input})
	if err != nil {
		e.log.Debug("gas estimate failed, using fallback",
			zap.Uint64("fallback", e.gasLimit), zap.Error(err))
		return e.gasLimit
	}
	return gas
}

// Execute approves the router if needed and submits exactInputSingle. The
// deadline and amountOutMinimum ride in the calldata, so a late or
// underfilled swap reverts on-chain; no post-hoc verification is needed.
func (e *Executor) Execute(ctx context.Context, req types.SwapRequest) types.SwapResult {
	if req.Signer == nil {
		return swap.Fail(SourceName, dexerr.Newf(SourceName, dexerr.KindValidation, "swap request has no signer"))
	}
	if err := e.ApproveToken(ctx, req.TokenIn, req.AmountIn, req.Signer); err != nil {
		return swap.Fail(SourceName, dexerr.New(SourceName, dexerr.KindExecution, err))
	}

	input, err := e.packSwap(req)
	if err != nil {
		return swap.Fail(SourceName, dexerr.New(SourceName, dexerr.KindExecution, err))
	}

	rcpt, err := e.sender.SendAndWait(ctx, req.Signer, e.router, input, e.gasLimit, nil)
	if err != nil {
		return swap.Fail(SourceName, dexerr.New(SourceName, dexerr.KindExecution, err))
	}
	if rcpt.Status != 1 {
		return swap.Fail(SourceName, dexerr.Newf(SourceName, dexerr.KindExecution,
			"swap reverted in tx %s", rcpt.TxHash.Hex()))
	}
	return types.SwapResult{
		Success: true,
		TxID:    rcpt.TxHash.Hex(),
		GasUsed: rcpt.GasUsed,
		Source:  SourceName,
	}
}

func (e *Executor) packSwap(req types.SwapRequest) ([]byte, error) {
	// Route info from the winning quote selects the tier ("fee_tier=N").
	var tier uint32 = 500
	if req.Route != "" {
		if _, err := fmt.Sscanf(req.Route, "fee_tier=%d", &tier); err != nil {
			tier = 500
		}
	}
	feeTier := big.NewInt(int64(tier))

	recipient := common.Address{}
	if req.Signer != nil {
		recipient = req.Signer.Address()
	}
	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		Deadline          *big.Int
		AmountIn          *big.Int
		AmountOutMinimum  *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           req.TokenIn.Address,
		TokenOut:          req.TokenOut.Address,
		Fee:               feeTier,
		Recipient:         recipient,
		Deadline:          big.NewInt(req.Deadline),
		AmountIn:          req.AmountIn,
		AmountOutMinimum:  req.MinAmountOut,
		SqrtPriceLimitX96: big.NewInt(0),
	}
	input, err := e.rabi.Pack("exactInputSingle", params)
	if err != nil {
		return nil, fmt.Errorf("pack exactInputSingle: %w", err)
	}
	return input, nil
}
