package cowswap

import (
	"context"
	"encoding/hex"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/gabesan21/trading-web3/internal/dexerr"
	"github.com/gabesan21/trading-web3/internal/swap"
	"github.com/gabesan21/trading-web3/internal/types"
)

// Terminal order-book states. Anything else means the order is still open.
const (
	statusFulfilled = "fulfilled"
	statusCancelled = "cancelled"
	statusExpired   = "expired"
)

// Executor signs GPv2 orders off-chain and watches the order book until
// settlement. Both the poll interval and the overall timeout are injected
// so tests can run with near-zero values.
type Executor struct {
	c            *client
	approver     *swap.Approver
	settlement   common.Address
	vaultRelayer common.Address
	appData      [32]byte
	pollInterval time.Duration
	pollTimeout  time.Duration
	log          *zap.Logger
}

func NewExecutor(baseURL string, approver *swap.Approver, settlement, vaultRelayer common.Address, appData [32]byte, pollInterval, pollTimeout time.Duration, log *zap.Logger) (*Executor, error) {
	if baseURL == "" {
		return nil, dexerr.Newf(SourceName, dexerr.KindConfig, "base url is not configured")
	}
	if settlement == (common.Address{}) || vaultRelayer == (common.Address{}) {
		return nil, dexerr.Newf(SourceName, dexerr.KindConfig, "settlement/vault relayer address is not configured")
	}
	return &Executor{
		c:            newClient(baseURL),
		approver:     approver,
		settlement:   settlement,
		vaultRelayer: vaultRelayer,
		appData:      appData,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		log:          log,
	}, nil
}

func (e *Executor) Name() string { return SourceName }

// ApproveToken grants the vault relayer, not the settlement contract; the
// relayer is the one pulling sell tokens at settlement time.
func (e *Executor) ApproveToken(ctx context.Context, token types.Token, amount *big.Int, signer types.Signer) error {
	return e.approver.EnsureAllowance(ctx, token, e.vaultRelayer, amount, signer)
}

// EstimateGas reports zero: settlement gas is paid by the solver and
// charged through the order's fee, not by the trader.
func (e *Executor) EstimateGas(_ context.Context, _ types.SwapRequest) uint64 { return 0 }

type orderSubmission struct {
	SellToken         string `json:"sellToken"`
	BuyToken          string `json:"buyToken"`
	Receiver          string `json:"receiver"`
	SellAmount        string `json:"sellAmount"`
	BuyAmount         string `json:"buyAmount"`
	ValidTo           uint32 `json:"validTo"`
	AppData           string `json:"appData"`
	FeeAmount         string `json:"feeAmount"`
	Kind              string `json:"kind"`
	PartiallyFillable bool   `json:"partiallyFillable"`
	SellTokenBalance  string `json:"sellTokenBalance"`
	BuyTokenBalance   string `json:"buyTokenBalance"`
	SigningScheme     string `json:"signingScheme"`
	Signature         string `json:"signature"`
	From              string `json:"from"`
}

type orderStatus struct {
	Status            string `json:"status"`
	ExecutedBuyAmount string `json:"executedBuyAmount"`
}

// Execute approves the relayer, signs the order, posts it, and polls the
// order book until it settles, is cancelled, expires, or the configured
// timeout elapses. Timeout is a hard failure, never an infinite wait.
func (e *Executor) Execute(ctx context.Context, req types.SwapRequest) types.SwapResult {
	if req.Signer == nil {
		return swap.Fail(SourceName, dexerr.Newf(SourceName, dexerr.KindValidation, "swap request has no signer"))
	}
	if err := e.ApproveToken(ctx, req.TokenIn, req.AmountIn, req.Signer); err != nil {
		return swap.Fail(SourceName, dexerr.New(SourceName, dexerr.KindExecution, err))
	}

	order := Order{
		SellToken:  req.TokenIn.Address,
		BuyToken:   req.TokenOut.Address,
		Receiver:   req.Signer.Address(),
		SellAmount: req.AmountIn,
		BuyAmount:  req.MinAmountOut, // limit price: settle at MinAmountOut or better
		ValidTo:    uint32(req.Deadline),
		AppData:    e.appData,
		FeeAmount:  big.NewInt(0),
	}

	sig, err := req.Signer.SignTypedHash(domainSeparator(req.ChainID, e.settlement), order.structHash())
	if err != nil {
		return swap.Fail(SourceName, dexerr.Newf(SourceName, dexerr.KindExecution, "sign order: %v", err))
	}

	sub := orderSubmission{
		SellToken:        order.SellToken.Hex(),
		BuyToken:         order.BuyToken.Hex(),
		Receiver:         order.Receiver.Hex(),
		SellAmount:       order.SellAmount.String(),
		BuyAmount:        order.BuyAmount.String(),
		ValidTo:          order.ValidTo,
		AppData:          "0x" + hex.EncodeToString(e.appData[:]),
		FeeAmount:        "0",
		Kind:             "sell",
		SellTokenBalance: "erc20",
		BuyTokenBalance:  "erc20",
		SigningScheme:    "eip712",
		Signature:        "0x" + hex.EncodeToString(sig),
		From:             req.Signer.Address().Hex(),
	}

	var uid string
	if err := e.c.doJSON(ctx, http.MethodPost, "/api/v1/orders", sub, &uid); err != nil {
		return swap.Fail(SourceName, dexerr.New(SourceName, dexerr.KindExecution, err))
	}
	e.log.Info("order submitted", zap.String("uid", uid))

	return e.awaitSettlement(ctx, uid)
}

func (e *Executor) awaitSettlement(ctx context.Context, uid string) types.SwapResult {
	deadline := time.Now().Add(e.pollTimeout)
	tick := time.NewTicker(e.pollInterval)
	defer tick.Stop()

	for {
		var st orderStatus
		if err := e.c.doJSON(ctx, http.MethodGet, "/api/v1/orders/"+uid, nil, &st); err != nil {
			// Transient order-book hiccups just mean we poll again.
			e.log.Warn("order status poll failed", zap.String("uid", uid), zap.Error(err))
		} else {
			switch st.Status {
			case statusFulfilled:
				res := types.SwapResult{Success: true, TxID: uid, Source: SourceName}
				if out, ok := new(big.Int).SetString(st.ExecutedBuyAmount, 10); ok {
					res.AmountOut = out
				}
				return res
			case statusCancelled, statusExpired:
				return swap.Fail(SourceName, dexerr.Newf(SourceName, dexerr.KindExecution,
					"order %s terminal state %q", uid, st.Status))
			}
		}

		if time.Now().After(deadline) {
			return swap.Fail(SourceName, dexerr.Newf(SourceName, dexerr.KindExecution,
				"order %s not settled within %s", uid, e.pollTimeout))
		}
		select {
		case <-ctx.Done():
			return swap.Fail(SourceName, dexerr.Newf(SourceName, dexerr.KindExecution,
				"order %s wait aborted: %v", uid, ctx.Err()))
		case <-tick.C:
		}
	}
}
