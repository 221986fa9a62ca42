// Package confirm implements write-then-confirm: after a write that must
// become visible in another system, re-read with bounded exponential backoff
// until the check passes or attempts run out.
package confirm

import (
	"context"
	"errors"
	"time"
)

// Policy bounds the confirmation loop.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Sleep replaces the timer wait, for tests.
	Sleep func(context.Context, time.Duration) error
}

// Check reports whether the written state is visible. A non-nil error is
// treated like a miss and retried; the last error is returned if every
// attempt fails.
type Check func(ctx context.Context) (bool, error)

// ErrNotConfirmed is returned when every attempt ran without the check passing.
var ErrNotConfirmed = errors.New("write not confirmed")

// Until runs check up to policy.Attempts times. The first check runs
// immediately; each retry waits BaseDelay, doubling up to MaxDelay.
func Until(ctx context.Context, policy Policy, check Check) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ok, err := check(ctx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			lastErr = err
		}
		if attempt == attempts {
			break
		}
		if err := wait(ctx, policy, delay); err != nil {
			return err
		}
		delay = next(delay, policy.MaxDelay)
	}
	if lastErr != nil {
		return errors.Join(ErrNotConfirmed, lastErr)
	}
	return ErrNotConfirmed
}

func next(delay, maxDelay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	doubled := delay * 2
	if maxDelay > 0 && doubled > maxDelay {
		return maxDelay
	}
	return doubled
}

func wait(ctx context.Context, policy Policy, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}
	if policy.Sleep != nil {
		return policy.Sleep(ctx, delay)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
