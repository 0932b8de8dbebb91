// Package retry provides bounded retries with exponential backoff for
// calls to rate-limited external APIs.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be > 0")

// Do runs operation up to maxAttempts times, sleeping baseDelay * 2^(n-1)
// plus jitter between attempts. A non-retryable error (per the retryable
// predicate) aborts immediately; context cancellation aborts the wait.
// Returns the last error if all attempts fail.
func Do(ctx context.Context, maxAttempts int, baseDelay time.Duration, retryable func(error) bool, operation func() error) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}
		// Jitter spreads concurrent retries so they don't re-hit the
		// provider in lockstep.
		delay += time.Duration(rand.Int63n(int64(baseDelay)/2 + 1))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
