package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy is the single retry/backoff policy used across call sites. The
// Classify hook lets a caller stretch the delay for specific failures
// (rate-limit responses wait longer than transient network errors).
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool                          // multiply delay by attempt number
	Classify    func(err error) time.Duration // optional extra delay per error
}

// Do runs fn until it succeeds, attempts are exhausted, or ctx is canceled.
func Do(ctx context.Context, policy Policy, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			if attempt == policy.MaxAttempts {
				return fmt.Errorf("failed after %d attempts: %w", policy.MaxAttempts, err)
			}

			delay := policy.Delay
			if policy.Backoff {
				delay = time.Duration(attempt) * policy.Delay
			}
			if policy.Classify != nil {
				if extra := policy.Classify(err); extra > 0 {
					delay = extra * time.Duration(attempt)
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
		return nil
	}

	return lastErr
}
