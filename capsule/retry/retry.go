// Package retry provides the shared exponential-backoff policy wrapped
// around fallible storage operations.
package retry

import (
	"context"
	"time"
)

// Policy retries an operation up to MaxAttempts times, sleeping
// BaseDelay * 2^(attempt-1) between attempts. The zero value retries once
// (no backoff).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy matches the storage client defaults: three attempts with a
// one second base delay (cumulative worst-case wait 1s + 2s).
var DefaultPolicy = Policy{MaxAttempts: 3, BaseDelay: time.Second}

// Do runs fn until it succeeds or attempts are exhausted. The final
// attempt's error is returned unchanged. Context cancellation is honored
// between attempts; in-flight work is fn's responsibility to cancel via ctx.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		delay := p.BaseDelay << (attempt - 1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
