package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryConfig configures the bounded-retry controller around one remote call.
type RetryConfig struct {
	MaxAttempts int           // total attempts, not extra retries
	BaseDelay   time.Duration // unit for the exponential schedule
	MaxJitter   time.Duration // uniform jitter added to each delay
	MaxDelay    time.Duration // delay ceiling

	// Sleep waits out one backoff delay; overridable in tests.
	Sleep func(context.Context, time.Duration) error
}

// DefaultRetryConfig mirrors the service defaults: five attempts with
// min(1.5^attempt + uniform(0, 0.2s), 30s) between them.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxJitter:   200 * time.Millisecond,
		MaxDelay:    30 * time.Second,
	}
}

// ErrAttemptsExhausted indicates every attempt failed. Callers treat it as
// the "no result" sentinel for the item: the item is dropped and the run
// continues.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// AttemptFunc performs one remote-call attempt, including response parsing.
// Any error counts as a failed attempt; the controller does not distinguish
// failure kinds.
type AttemptFunc func(ctx context.Context) error

// WithRetry invokes fn up to cfg.MaxAttempts times, backing off between
// failures. Every failed attempt is logged with the item label and attempt
// number. It never panics past this boundary; after exhaustion it returns
// ErrAttemptsExhausted wrapping the last failure.
func WithRetry(ctx context.Context, cfg RetryConfig, logger *zap.Logger, label string, fn AttemptFunc) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		logger.Warn("attempt failed",
			zap.String("item", label),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Error(err))

		if attempt < cfg.MaxAttempts-1 {
			if err := sleep(ctx, cfg.Backoff(attempt)); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("%w for %s: %v", ErrAttemptsExhausted, label, lastErr)
}

// Backoff computes the delay after the given zero-based failed attempt:
// min(base * 1.5^attempt + uniform(0, jitter), max).
func (cfg RetryConfig) Backoff(attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(1.5, float64(attempt))
	if cfg.MaxJitter > 0 {
		delay += rand.Float64() * float64(cfg.MaxJitter)
	}
	if ceiling := float64(cfg.MaxDelay); cfg.MaxDelay > 0 && delay > ceiling {
		delay = ceiling
	}
	return time.Duration(delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
