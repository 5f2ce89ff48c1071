package generate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPolicy_AttemptCount(t *testing.T) {
	var slept []time.Duration
	p := Policy{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}

	attempts := 0
	transient := errors.New("transient")
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return transient
	}, func(err error) bool { return true })

	if !errors.Is(err, transient) {
		t.Fatalf("err = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want retries+1 = 3", attempts)
	}
	// Exponential schedule: 500ms, 1s.
	if len(slept) != 2 || slept[0] != 500*time.Millisecond || slept[1] != time.Second {
		t.Errorf("backoff schedule = %v", slept)
	}
}

func TestPolicy_NonRetryableStopsImmediately(t *testing.T) {
	p := Policy{MaxRetries: 3, BaseDelay: time.Millisecond, Sleep: func(context.Context, time.Duration) error { return nil }}

	attempts := 0
	fatal := errors.New("auth error")
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return fatal
	}, func(err error) bool { return false })

	if !errors.Is(err, fatal) || attempts != 1 {
		t.Errorf("attempts = %d, err = %v", attempts, err)
	}
}

func TestPolicy_SuccessAfterRetry(t *testing.T) {
	p := Policy{MaxRetries: 2, BaseDelay: time.Millisecond, Sleep: func(context.Context, time.Duration) error { return nil }}

	attempts := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("flaky")
		}
		return nil
	}, func(err error) bool { return true })

	if err != nil || attempts != 2 {
		t.Errorf("attempts = %d, err = %v", attempts, err)
	}
}

func TestPolicy_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{
		MaxRetries: 5,
		BaseDelay:  time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	err := p.Do(ctx, func(ctx context.Context) error {
		return errors.New("transient")
	}, func(err error) bool { return true })

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPolicy_DelayCap(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 3 * time.Second}
	if p.Delay(1) != time.Second {
		t.Errorf("Delay(1) = %v", p.Delay(1))
	}
	if p.Delay(2) != 2*time.Second {
		t.Errorf("Delay(2) = %v", p.Delay(2))
	}
	if p.Delay(3) != 3*time.Second {
		t.Errorf("Delay(3) should cap at MaxDelay, got %v", p.Delay(3))
	}
}
