// Package retry holds the backoff helpers used while connecting to backing services.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Backoff returns exponential backoff duration capped at 16 seconds.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 5 {
		return 16 * time.Second
	}
	return time.Duration(1<<(attempt-1)) * time.Second
}

// Sleep waits for duration or context cancellation. Returns false if cancelled.
func Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// delay is swapped out in tests.
var delay = Backoff

// Do calls fn until it succeeds, at most attempts times, backing off between
// failures. what names the operation in log lines. It returns the number of
// attempts used and the last error.
func Do(ctx context.Context, attempts int, what string, fn func(ctx context.Context) error) (int, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(ctx); lastErr == nil {
			return attempt, nil
		}
		if attempt == attempts {
			break
		}

		wait := delay(attempt)
		slog.Warn(what+" failed, retrying",
			"attempt", attempt,
			"max_attempts", attempts,
			"backoff", wait,
			"error", lastErr,
		)
		if !Sleep(ctx, wait) {
			return attempt, fmt.Errorf("%s cancelled: %w", what, ctx.Err())
		}
	}

	return attempts, fmt.Errorf("%s failed after %d attempts: %w", what, attempts, lastErr)
}
