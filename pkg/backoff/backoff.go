// Package backoff provides the retry delay policies used by verification.
// Policies are pure (attempt number in, delay out) and sleeping is
// abstracted behind a Sleeper, so retry loops are unit-testable without
// wall-clock waiting.
package backoff

import (
	"context"
	"time"
)

// Policy maps a 1-based attempt number to the delay to wait before the
// next attempt. Delays must be monotonically non-decreasing in the attempt
// number.
type Policy interface {
	Delay(attempt int) time.Duration
}

// Linear grows the delay linearly: attempt * Base.
type Linear struct {
	Base time.Duration
}

// Delay implements Policy.
func (l Linear) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * l.Base
}

// Exponential doubles the delay per attempt: 2^(attempt-1) * Base, capped
// at Max when Max is positive.
type Exponential struct {
	Base time.Duration
	Max  time.Duration
}

// Delay implements Policy.
func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := e.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if e.Max > 0 && d >= e.Max {
			return e.Max
		}
	}
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// Sleeper waits for the given duration, returning early with the context's
// error if the context is canceled first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NopSleeper returns immediately without waiting. Tests use it to drive
// retry loops at full speed.
func NopSleeper(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}
