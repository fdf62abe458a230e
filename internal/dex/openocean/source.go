package openocean

import (
	"context"
	"math/big"
	"net/url"
	"strconv"
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

func NewSource(baseURL, apiKey string, requestsPerSecond float64, policy dexerr.Policy, log *zap.Logger) (*Source, error) {
	if baseURL == "" {
		return nil, dexerr.Newf(SourceName, dexerr.KindConfig, "base url is not configured")
	}
	return &Source{c: newClient(baseURL, apiKey, requestsPerSecond), policy: policy, log: log}, nil
}

func (s *Source) Name() string { return SourceName }

type quoteResponse struct {
	Code int `json:"code"`
	Data struct {
		OutAmount    string `json:"outAmount"`
		EstimatedGas string `json:"estimatedGas"`
	} `json:"data"`
}

func (s *Source) GetQuote(ctx context.Context, req types.QuoteRequest) (types.Quote, error) {
	if err := quote.ValidateRequest(SourceName, req); err != nil {
		return types.Quote{}, err
	}
	start := time.Now()
	defer func() {
		metrics.QuoteLatency.WithLabelValues(SourceName).Observe(time.Since(start).Seconds())
	}()

	params := url.Values{}
	params.Set("inTokenAddress", req.TokenIn.Address.Hex())
	params.Set("outTokenAddress", req.TokenOut.Address.Hex())
	params.Set("amountDecimals", req.AmountIn.String())

	var resp quoteResponse
	err := dexerr.Retry(ctx, s.policy, func(ctx context.Context) error {
		return s.c.getJSON(ctx, chainPath(req.ChainID)+"/quote", params, &resp)
	})
	if err != nil {
		return types.Quote{}, err
	}

	out, ok := new(big.Int).SetString(resp.Data.OutAmount, 10)
	if !ok || out.Sign() <= 0 {
		return types.Quote{}, dexerr.Newf(SourceName, dexerr.KindBackend,
			"bad outAmount %q", resp.Data.OutAmount)
	}
	var gas uint64
	if g, err := strconv.ParseUint(resp.Data.EstimatedGas, 10, 64); err == nil {
		gas = g
	}
	return types.Quote{
		Source:      SourceName,
		AmountOut:   out,
		GasEstimate: gas,
		CreatedAt:   time.Now(),
	}, nil
}
