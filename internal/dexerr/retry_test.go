package dexerr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		BaseDelay:      time.Microsecond,
		RateLimitDelay: time.Microsecond,
		Multiplier:     2.0,
		MaxDelay:       time.Millisecond,
		MaxAttempts:    3,
	}
}

func TestRetry_TransientEventuallySucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		if calls < 3 {
			return New("uniswap_v3", KindNetwork, errors.New("rpc timeout"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_BudgetExhausted(t *testing.T) {
	calls := 0
	rl := New("openocean", KindRateLimited, errors.New("429"))
	err := Retry(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return rl
	})
	assert.Equal(t, 3, calls)
	assert.Equal(t, KindRateLimited, KindOf(err))
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	for _, kind := range []Kind{KindValidation, KindConfig, KindNoLiquidity, KindExecution, KindBackend} {
		calls := 0
		err := Retry(context.Background(), fastPolicy(), func(context.Context) error {
			calls++
			return New("src", kind, errors.New("boom"))
		})
		assert.Equal(t, 1, calls, "kind=%s", kind)
		assert.Equal(t, kind, KindOf(err))
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, Policy{BaseDelay: time.Hour, MaxAttempts: 3}, func(context.Context) error {
		return New("src", KindNetwork, errors.New("down"))
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorTagging(t *testing.T) {
	inner := errors.New("no pool for fee 500")
	err := New("uniswap_v3", KindNoLiquidity, inner)

	assert.Equal(t, "uniswap_v3", SourceOf(err))
	assert.Equal(t, KindNoLiquidity, KindOf(err))
	assert.ErrorIs(t, err, inner)
	assert.False(t, Retryable(err))

	wrapped := Newf("openocean", KindRateLimited, "status 429").WithHint("use an authenticated API tier")
	assert.Contains(t, wrapped.Error(), "authenticated API tier")
	assert.True(t, Retryable(wrapped))
}

func TestKindOf_Untagged(t *testing.T) {
	assert.Equal(t, KindBackend, KindOf(errors.New("plain")))
	assert.Equal(t, "", SourceOf(errors.New("plain")))
}
