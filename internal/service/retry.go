package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/confcentral/confcentral/internal/repository"
)

const (
	// DefaultMaxAttempts is the default number of ledger transaction attempts.
	DefaultMaxAttempts = 5

	defaultBaseDelay = 10 * time.Millisecond

	// jitterFactor is the ±percentage of jitter applied to delays.
	jitterFactor = 0.3
)

// retryDelay returns the backoff before the given retry (1-indexed):
// baseDelay * 2^(retry-1) with ±30% jitter.
func retryDelay(base time.Duration, retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	delay := base * time.Duration(1<<(retry-1))
	jitter := (rand.Float64()*2 - 1) * float64(delay) * jitterFactor
	return time.Duration(float64(delay) + jitter)
}

// retryOnConflict runs fn up to maxAttempts times, retrying only when it
// fails with repository.ErrTxConflict. onRetry is called before each retry.
func retryOnConflict(ctx context.Context, maxAttempts int, base time.Duration, onRetry func(), fn func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if onRetry != nil {
				onRetry()
			}
			select {
			case <-time.After(retryDelay(base, attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil || !errors.Is(lastErr, repository.ErrTxConflict) {
			return lastErr
		}
	}
	return lastErr
}
