package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testRetryConfig(sleeps *[]time.Duration) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.Sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return cfg
}

func TestWithRetry_FailsTwiceThenSucceeds(t *testing.T) {
	var sleeps []time.Duration
	cfg := testRetryConfig(&sleeps)

	calls := 0
	err := WithRetry(context.Background(), cfg, zaptest.NewLogger(t), "Sol Ring", func(context.Context) error {
		calls++
		if calls <= 2 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, sleeps, 2, "expected exactly one backoff delay per failure before success")
}

func TestWithRetry_AlwaysFails_ReturnsSentinelAfterMaxAttempts(t *testing.T) {
	var sleeps []time.Duration
	cfg := testRetryConfig(&sleeps)
	cfg.MaxAttempts = 5

	calls := 0
	err := WithRetry(context.Background(), cfg, zaptest.NewLogger(t), "Sol Ring", func(context.Context) error {
		calls++
		return errors.New("always")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 5, calls)
}

func TestWithRetry_ContextCancellationStopsWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := DefaultRetryConfig()
	cfg.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := WithRetry(ctx, cfg, zaptest.NewLogger(t), "Sol Ring", func(context.Context) error {
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_ExponentialWithCap(t *testing.T) {
	cfg := RetryConfig{
		BaseDelay: time.Second,
		MaxDelay:  30 * time.Second,
	}

	assert.Equal(t, time.Second, cfg.Backoff(0))
	assert.Equal(t, 1500*time.Millisecond, cfg.Backoff(1))
	assert.Equal(t, 2250*time.Millisecond, cfg.Backoff(2))
	// 1.5^20 seconds is far past the cap.
	assert.Equal(t, 30*time.Second, cfg.Backoff(20))
}

func TestBackoff_JitterBounded(t *testing.T) {
	cfg := RetryConfig{
		BaseDelay: time.Second,
		MaxJitter: 200 * time.Millisecond,
		MaxDelay:  30 * time.Second,
	}

	for i := 0; i < 100; i++ {
		d := cfg.Backoff(0)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, time.Second+200*time.Millisecond)
	}
}
