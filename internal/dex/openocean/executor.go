package openocean

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/gabesan21/trading-web3/internal/dexerr"
	"github.com/gabesan21/trading-web3/internal/swap"
	"github.com/gabesan21/trading-web3/internal/types"
)

type Executor struct {
	c        *client
	sender   *swap.Sender
	approver *swap.Approver
	gasLimit uint64
	log      *zap.Logger

	// exchange is the on-chain contract the API routes through; cached
	// after the first swap build so approvals have a spender before then.
	exchange common.Address
}

func NewExecutor(baseURL, apiKey string, requestsPerSecond float64, sender *swap.Sender, approver *swap.Approver, exchange common.Address, gasLimit uint64, log *zap.Logger) (*Executor, error) {
	if baseURL == "" {
		return nil, dexerr.Newf(SourceName, dexerr.KindConfig, "base url is not configured")
	}
	if exchange == (common.Address{}) {
		return nil, dexerr.Newf(SourceName, dexerr.KindConfig, "exchange address is not configured")
	}
	return &Executor{
		c:        newClient(baseURL, apiKey, requestsPerSecond),
		sender:   sender,
		approver: approver,
		exchange: exchange,
		gasLimit: gasLimit,
		log:      log,
	}, nil
}

func (e *Executor) Name() string { return SourceName }

func (e *Executor) ApproveToken(ctx context.Context, token types.Token, amount *big.Int, signer types.Signer) error {
	return e.approver.EnsureAllowance(ctx, token, e.exchange, amount, signer)
}

type swapResponse struct {
	Code int `json:"code"`
	Data struct {
		To           string `json:"to"`
		Data         string `json:"data"`
		Value        string `json:"value"`
		EstimatedGas string `json:"estimatedGas"`
		OutAmount    string `json:"outAmount"`
	} `json:"data"`
}

func (e *Executor) EstimateGas(ctx context.Context, req types.SwapRequest) uint64 {
	resp, err := e.buildSwap(ctx, req)
	if err != nil {
		return e.gasLimit
	}
	if g, err := strconv.ParseUint(resp.Data.EstimatedGas, 10, 64); err == nil && g > 0 {
		return g
	}
	return e.gasLimit
}

// Execute asks the aggregator API for swap calldata (with the slippage
// floor baked in) and submits it as one transaction.
func (e *Executor) Execute(ctx context.Context, req types.SwapRequest) types.SwapResult {
	if req.Signer == nil {
		return swap.Fail(SourceName, dexerr.Newf(SourceName, dexerr.KindValidation, "swap request has no signer"))
	}
	if err := e.ApproveToken(ctx, req.TokenIn, req.AmountIn, req.Signer); err != nil {
		return swap.Fail(SourceName, dexerr.New(SourceName, dexerr.KindExecution, err))
	}

	resp, err := e.buildSwap(ctx, req)
	if err != nil {
		return swap.Fail(SourceName, dexerr.New(SourceName, dexerr.KindExecution, err))
	}

	to := common.HexToAddress(resp.Data.To)
	data := common.FromHex(resp.Data.Data)
	if to == (common.Address{}) || len(data) == 0 {
		return swap.Fail(SourceName, dexerr.Newf(SourceName, dexerr.KindExecution,
			"swap build returned empty calldata"))
	}
	value := big.NewInt(0)
	if resp.Data.Value != "" {
		if v, ok := new(big.Int).SetString(resp.Data.Value, 10); ok {
			value = v
		}
	}

	rcpt, err := e.sender.SendAndWait(ctx, req.Signer, to, data, e.gasLimit, value)
	if err != nil {
		return swap.Fail(SourceName, dexerr.New(SourceName, dexerr.KindExecution, err))
	}
	if rcpt.Status != 1 {
		return swap.Fail(SourceName, dexerr.Newf(SourceName, dexerr.KindExecution,
			"swap reverted in tx %s", rcpt.TxHash.Hex()))
	}

	res := types.SwapResult{
		Success: true,
		TxID:    rcpt.TxHash.Hex(),
		GasUsed: rcpt.GasUsed,
		Source:  SourceName,
	}
	if out, ok := new(big.Int).SetString(resp.Data.OutAmount, 10); ok {
		res.AmountOut = out
	}
	return res
}

func (e *Executor) buildSwap(ctx context.Context, req types.SwapRequest) (*swapResponse, error) {
	if req.Signer == nil {
		return nil, fmt.Errorf("swap request has no signer")
	}
	params := url.Values{}
	params.Set("inTokenAddress", req.TokenIn.Address.Hex())
	params.Set("outTokenAddress", req.TokenOut.Address.Hex())
	params.Set("amountDecimals", req.AmountIn.String())
	params.Set("minOutAmountDecimals", req.MinAmountOut.String())
	params.Set("account", req.Signer.Address().Hex())
	params.Set("deadline", strconv.FormatInt(req.Deadline, 10))

	var resp swapResponse
	if err := e.c.getJSON(ctx, chainPath(req.ChainID)+"/swap", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
