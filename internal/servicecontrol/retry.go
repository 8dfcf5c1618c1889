package servicecontrol

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig bounds the backoff applied to each request.
type RetryConfig struct {
	MaxAttempts  int           // total attempts including the first; <= 0 means 1
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // cap on any single delay
}

// DefaultRetryConfig returns 3 attempts with 100ms to 5s delays.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if c.InitialDelay > 0 {
		b.InitialInterval = c.InitialDelay
	}
	if c.MaxDelay > 0 {
		b.MaxInterval = c.MaxDelay
	}
	b.MaxElapsedTime = 0

	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// withRetry runs fn until it succeeds, fails permanently, or the attempt
// budget is spent. Each retry is logged at Warn.
func withRetry(ctx context.Context, cfg RetryConfig, operation string, fn func() error) error {
	attempt := 0
	op := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		slog.Warn("upstream request failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"kind", Classify(err),
			"delay", delay,
			"error", err,
		)
	}
	return backoff.RetryNotify(op, cfg.backOff(ctx), notify)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var de *requestError
	if errors.As(err, &de) {
		return false
	}
	return true
}
