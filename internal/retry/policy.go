package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Policy maps failure kinds to backoff delays and bounds the attempt count.
type Policy struct {
	MaxAttempts int
	// Base and Factor give the exponential delay Base * Factor^attempt used
	// for timeout, transient, and quality failures.
	Base   time.Duration
	Factor float64
	// RateLimitStep is multiplied by the 1-based attempt number.
	RateLimitStep time.Duration
	// FixedDelay applies to api_error and unknown failures.
	FixedDelay time.Duration
	// MaxDelay caps the computed delay. An upstream reset time still wins.
	MaxDelay time.Duration

	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// DefaultPolicy returns three attempts with 1s/2s/4s exponential steps.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		Base:          time.Second,
		Factor:        2,
		RateLimitStep: 5 * time.Second,
		FixedDelay:    time.Second,
		MaxDelay:      60 * time.Second,
	}
}

// Delay returns how long to wait after the given 0-based attempt failed.
func (p Policy) Delay(f *Failure, attempt int, now time.Time) time.Duration {
	var d time.Duration
	switch f.Kind {
	case KindTimeout, KindTransient, KindQualityRejected:
		d = time.Duration(float64(p.Base) * math.Pow(p.Factor, float64(attempt)))
	case KindRateLimited:
		d = p.RateLimitStep * time.Duration(attempt+1)
	default:
		d = p.FixedDelay
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if f.Kind == KindRateLimited && !f.ResetAt.IsZero() {
		if until := f.ResetAt.Sub(now); until > d {
			d = until
		}
	}
	return d
}

// Do calls fn until it succeeds, fails fatally, or runs out of attempts.
// notify, when set, is called before each backoff wait.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error, notify func(f *Failure, attempt int, delay time.Duration)) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var last *Failure
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		last = Classify(err)
		if !last.Retryable() {
			return last
		}
		if attempt == attempts-1 {
			break
		}
		delay := p.Delay(last, attempt, p.now())
		if notify != nil {
			notify(last, attempt, delay)
		}
		if err := p.wait(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, attempts, last)
}

func (p Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p Policy) wait(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
