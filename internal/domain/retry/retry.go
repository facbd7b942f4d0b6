// Package retry implements the bounded exponential backoff policy applied to
// transient external failures. Retries happen within a pipeline stage, never
// across stages.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Default policy constants.
const (
	defaultAttempts  = 3
	defaultBaseDelay = 200 * time.Millisecond
	defaultMaxDelay  = 5 * time.Second
)

// Policy bounds a retry loop.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultPolicy returns the stock transient-failure policy.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  defaultAttempts,
		BaseDelay: defaultBaseDelay,
		MaxDelay:  defaultMaxDelay,
	}
}

// Delay computes the backoff before attempt n (1-based first retry).
func (p Policy) Delay(n int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < n; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs op up to p.Attempts times, sleeping the backoff between attempts.
// retryable decides whether an error is worth another attempt; onRetry, when
// non-nil, observes each retry. The last error is returned after exhaustion.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error, retryable func(error) bool, onRetry func(attempt int, err error)) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == p.Attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, lastErr)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ctx.Err(), lastErr)
		case <-time.After(p.Delay(attempt)):
		}
	}
	return lastErr
}
