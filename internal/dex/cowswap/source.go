package cowswap

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gabesan21/trading-web3/internal/dexerr"
	"github.com/gabesan21/trading-web3/internal/metrics"
	"github.com/gabesan21/trading-web3/internal/quote"
	"github.com/gabesan21/trading-web3/internal/types"
)

type Source struct {
	c      *client
	policy dexerr.Policy
	log    *zap.Logger
}

func NewSource(baseURL string, policy dexerr.Policy, log *zap.Logger) (*Source, error) {
	if baseURL == "" {
		return nil, dexerr.Newf(SourceName, dexerr.KindConfig, "base url is not configured")
	}
	return &Source{c: newClient(baseURL), policy: policy, log: log}, nil
}

func (s *Source) Name() string { return SourceName }

type quoteRequestBody struct {
	SellToken           string `json:"sellToken"`
	BuyToken            string `json:"buyToken"`
	SellAmountBeforeFee string `json:"sellAmountBeforeFee"`
	Kind                string `json:"kind"`
	From                string `json:"from"`
}

type quoteResponseBody struct {
	Quote struct {
		BuyAmount string `json:"buyAmount"`
		FeeAmount string `json:"feeAmount"`
		ValidTo   uint32 `json:"validTo"`
	} `json:"quote"`
}

// GetQuote asks the order book how much buy-token a sell order would
// settle for in the next batch auction. The fee the solver would take is
// reported separately in the quote.
func (s *Source) GetQuote(ctx context.Context, req types.QuoteRequest) (types.Quote, error) {
	if err := quote.ValidateRequest(SourceName, req); err != nil {
		return types.Quote{}, err
	}
	start := time.Now()
	defer func() {
		metrics.QuoteLatency.WithLabelValues(SourceName).Observe(time.Since(start).Seconds())
	}()

	body := quoteRequestBody{
		SellToken:           req.TokenIn.Address.Hex(),
		BuyToken:            req.TokenOut.Address.Hex(),
		SellAmountBeforeFee: req.AmountIn.String(),
		Kind:                "sell",
		From:                "0x0000000000000000000000000000000000000000",
	}

	var resp quoteResponseBody
	err := dexerr.Retry(ctx, s.policy, func(ctx context.Context) error {
		return s.c.doJSON(ctx, http.MethodPost, "/api/v1/quote", body, &resp)
	})
	if err != nil {
		return types.Quote{}, err
	}

	out, ok := new(big.Int).SetString(resp.Quote.BuyAmount, 10)
	if !ok || out.Sign() <= 0 {
		return types.Quote{}, dexerr.Newf(SourceName, dexerr.KindBackend,
			"bad buyAmount %q", resp.Quote.BuyAmount)
	}
	fee, ok := new(big.Int).SetString(resp.Quote.FeeAmount, 10)
	if !ok {
		fee = big.NewInt(0)
	}
	return types.Quote{
		Source:    SourceName,
		AmountOut: out,
		FeeAmount: fee,
		CreatedAt: time.Now(),
	}, nil
}
