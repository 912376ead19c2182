package ai

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy retries an operation with exponential backoff. The delay
// before attempt n+1 is BaseDelay << (n-1), so with 5 attempts and a 2s
// base the waits are 2s, 4s, 8s, 16s. Only errors accepted by Retryable
// are retried; everything else propagates on the first failure.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retryable   func(error) bool

	// Sleep is overridable for tests; nil means a context-aware
	// time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy matches the provider wrappers: 5 attempts, 2s base.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		Retryable:   IsRetryable,
	}
}

// Do runs fn until it succeeds, fails non-retryably, or exhausts
// MaxAttempts. The last error is returned wrapped with the attempt count.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	delay := p.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		delay *= 2
	}
	return fmt.Errorf("retries exhausted after %d attempts: %w", attempts, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
