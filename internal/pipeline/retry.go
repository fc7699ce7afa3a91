package pipeline

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docfill/internal/render"
)

const MaxRetries = 3

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	return render.IsRetryable(err)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	return backoff(time.Second, attempt)
}

func backoff(base time.Duration, attempt int) time.Duration {
	d := base << uint(attempt)
	if d > 30*time.Second || d <= 0 {
		d = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(d)/2 + 1))
	return d + jitter
}

// withRetry calls fn until it succeeds, fails with a non-retryable error or
// MaxRetries attempts are used.
func withRetry(ctx context.Context, base time.Duration, log *slog.Logger, fn func() error) error {
	var lastErr error
	for attempt := range MaxRetries {
		lastErr = fn()
		if lastErr == nil || !IsRetryable(lastErr) || attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(backoff(base, attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
