// Package retry provides a bounded retry helper for transient
// upstream failures.
package retry

import (
	"context"
	"time"
)

// DelayFunc returns the delay before the given retry attempt (1-based).
type DelayFunc func(attempt int) time.Duration

// Fixed returns the same delay for every attempt.
func Fixed(d time.Duration) DelayFunc {
	return func(int) time.Duration { return d }
}

// Exponential doubles the base delay per attempt: base, 2*base, 4*base...
func Exponential(base time.Duration) DelayFunc {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
		}
		return d
	}
}

// Do runs fn up to maxAttempts times, sleeping delay(attempt) between
// failures. The last error is returned unchanged once the budget is
// exhausted. Context cancellation aborts the wait and returns ctx.Err().
func Do(ctx context.Context, maxAttempts int, delay DelayFunc, fn func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay(attempt)):
		}
	}
	return err
}
