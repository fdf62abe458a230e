package dexerr

import (
	"context"
	"time"
)

// Policy bounds the retry loop: exponential backoff from BaseDelay by
// Multiplier, capped at MaxDelay, at most MaxAttempts total attempts.
// Rate-limited failures start from RateLimitDelay instead of BaseDelay.
type Policy struct {
	BaseDelay      time.Duration
	RateLimitDelay time.Duration
	Multiplier     float64
	MaxDelay       time.Duration
	MaxAttempts    int
}

func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:      200 * time.Millisecond,
		RateLimitDelay: time.Second,
		Multiplier:     2.0,
		MaxDelay:       5 * time.Second,
		MaxAttempts:    3,
	}
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. The last error is returned as-is so its
// classification survives.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.delay(err, attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
	}
	return err
}

func (p Policy) delay(err error, attempt int) time.Duration {
	base := p.BaseDelay
	if KindOf(err) == KindRateLimited && p.RateLimitDelay > base {
		base = p.RateLimitDelay
	}
	d := float64(base)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	if max := float64(p.MaxDelay); p.MaxDelay > 0 && d > max {
		d = max
	}
	return time.Duration(d)
}
