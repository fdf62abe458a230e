// Package report publishes run results to a Redis stream so operators and
// downstream tooling can follow the bot without scraping logs.
package report

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gabesan21/trading-web3/internal/config"
	"github.com/gabesan21/trading-web3/internal/types"
)

type Publisher struct {
	rdb    *redis.Client
	stream string
}

// NewPublisher builds the stream client with a sensible default stream
// name. Returns nil when redis is not configured; a nil Publisher is safe
// to call.
func NewPublisher(cfg *config.Config) *Publisher {
	if cfg.Redis.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	stream := cfg.Redis.Stream
	if stream == "" {
		stream = "arb:results"
	}
	return &Publisher{rdb: rdb, stream: stream}
}

// Publish appends one run's terminal result to the stream.
func (p *Publisher) Publish(ctx context.Context, res types.ArbitrageResult) error {
	if p == nil {
		return nil
	}
	values := map[string]interface{}{
		"attempted": res.Attempted,
		"success":   res.Success,
		"tx":        res.TxID,
		"reason":    res.Reason,
		"ts_ms":     time.Now().UnixMilli(),
	}
	if opp := res.Opportunity; opp != nil {
		values["provider"] = opp.Provider
		values["pair"] = opp.TokenIn.Symbol + "/" + opp.TokenOut.Symbol
		values["profit_bps"] = opp.ProfitBps
		values["amount_in"] = opp.AmountIn.String()
		values["expected_out"] = opp.ExpectedOut.String()
	}
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err()
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.rdb.Close()
}
