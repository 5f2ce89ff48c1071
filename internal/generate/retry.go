package generate

import (
	"context"
	"math/rand"
	"time"
)

// Policy is an explicit retry policy: attempts = MaxRetries + 1, exponential
// backoff from BaseDelay capped at MaxDelay, with optional jitter. Sleep is
// injectable so unit tests can record the schedule instead of waiting.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Jitter adds up to Jitter*delay of random extra wait. 0 disables it.
	Jitter float64
	// Sleep waits for d or until ctx is done. nil uses the real clock.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the serving policy for the given retry count and base
// delay.
func DefaultPolicy(maxRetries int, baseDelay time.Duration) Policy {
	return Policy{
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		MaxDelay:   8 * time.Second,
		Jitter:     0.2,
	}
}

// Delay returns the backoff before retry attempt n (1-based), without jitter.
func (p Policy) Delay(n int) time.Duration {
	d := p.BaseDelay << (n - 1)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs attempt up to MaxRetries+1 times, retrying only when retryable
// returns true. The last error is returned once the budget is exhausted.
func (p Policy) Do(ctx context.Context, attempt func(ctx context.Context) error, retryable func(error) bool) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = realSleep
	}
	var lastErr error
	for n := 0; n <= p.MaxRetries; n++ {
		if n > 0 {
			d := p.Delay(n)
			if p.Jitter > 0 {
				d += time.Duration(rand.Float64() * p.Jitter * float64(d))
			}
			if err := sleep(ctx, d); err != nil {
				return err
			}
		}
		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func realSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
