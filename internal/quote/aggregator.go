package quote

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gabesan21/trading-web3/internal/dexerr"
	"github.com/gabesan21/trading-web3/internal/metrics"
	"github.com/gabesan21/trading-web3/internal/types"
)

// Aggregator fans one request out to every registered source. A broken or
// slow source is logged and dropped; it never fails or blocks the whole
// aggregation. The only state is the append-only source list.
type Aggregator struct {
	log     *zap.Logger
	sources []Source
}

func NewAggregator(log *zap.Logger) *Aggregator {
	return &Aggregator{log: log}
}

func (a *Aggregator) AddProvider(s Source) {
	a.sources = append(a.sources, s)
}

func (a *Aggregator) Providers() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return names
}

// GetQuotes dispatches GetQuote to all sources concurrently and returns the
// successes sorted by output amount descending. Ties keep registration
// order. The call waits for every source to settle, success or failure.
func (a *Aggregator) GetQuotes(ctx context.Context, req types.QuoteRequest) []types.Quote {
	results := make([]*types.Quote, len(a.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		i, src := i, src
		g.Go(func() error {
			q, err := src.GetQuote(gctx, req)
			if err != nil {
				metrics.QuoteErrors.WithLabelValues(src.Name(), dexerr.KindOf(err).String()).Inc()
				a.log.Warn("quote source failed",
					zap.String("source", src.Name()),
					zap.String("kind", dexerr.KindOf(err).String()),
					zap.String("pair", req.TokenIn.Symbol+"/"+req.TokenOut.Symbol),
					zap.Error(err),
				)
				return nil
			}
			metrics.QuotesFetched.WithLabelValues(src.Name()).Inc()
			results[i] = &q
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are isolated above

	quotes := make([]types.Quote, 0, len(results))
	for _, r := range results {
		if r != nil {
			quotes = append(quotes, *r)
		}
	}
	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].AmountOut.Cmp(quotes[j].AmountOut) > 0
	})
	return quotes
}

// GetBestQuote returns the highest-output quote, failing only when every
// source failed.
func (a *Aggregator) GetBestQuote(ctx context.Context, req types.QuoteRequest) (types.Quote, error) {
	quotes := a.GetQuotes(ctx, req)
	if len(quotes) == 0 {
		return types.Quote{}, dexerr.Newf("aggregator", dexerr.KindBackend,
			"all quote sources failed for %s/%s", req.TokenIn.Symbol, req.TokenOut.Symbol)
	}
	return quotes[0], nil
}
