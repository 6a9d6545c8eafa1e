package usecase

import (
	"context"
	"time"
)

// RetryPolicy bounds how often a job's extraction is attempted.
type RetryPolicy struct {
	// MaxAttempts caps attempts for transient fetch failures, first attempt included.
	MaxAttempts int
	// ParseRetries is how many extra attempts a page that fetched but did not parse gets.
	ParseRetries int
	// Backoff returns the pause after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
}

// DefaultRetryPolicy is three attempts, one parse retry, backoff from 2s up to 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		ParseRetries: 1,
		Backoff:      ExponentialBackoff(2*time.Second, 30*time.Second),
	}
}

// ExponentialBackoff doubles base per attempt and caps the result at max.
func ExponentialBackoff(base, max time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if max > 0 && d >= max {
				return max
			}
		}
		if max > 0 && d > max {
			return max
		}
		return d
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.ParseRetries < 0 {
		p.ParseRetries = 0
	}
	if p.Backoff == nil {
		p.Backoff = func(int) time.Duration { return 0 }
	}
	return p
}

// sleep waits d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
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
