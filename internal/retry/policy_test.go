package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(slept *[]time.Duration) Policy {
	p := DefaultPolicy()
	p.Sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return p
}

func TestPolicyDelay(t *testing.T) {
	p := DefaultPolicy()
	now := time.Unix(1_700_000_000, 0)

	t.Run("timeout is exponential", func(t *testing.T) {
		f := New(KindTimeout, nil)
		assert.Equal(t, 1*time.Second, p.Delay(f, 0, now))
		assert.Equal(t, 2*time.Second, p.Delay(f, 1, now))
		assert.Equal(t, 4*time.Second, p.Delay(f, 2, now))
	})

	t.Run("quality rejection backs off like transient", func(t *testing.T) {
		assert.Equal(t, p.Delay(New(KindTransient, nil), 2, now), p.Delay(New(KindQualityRejected, nil), 2, now))
	})

	t.Run("rate limit is linear", func(t *testing.T) {
		f := RateLimited(nil, time.Time{})
		assert.Equal(t, 5*time.Second, p.Delay(f, 0, now))
		assert.Equal(t, 10*time.Second, p.Delay(f, 1, now))
		assert.Equal(t, 15*time.Second, p.Delay(f, 2, now))
	})

	t.Run("rate limit reset is a floor", func(t *testing.T) {
		f := RateLimited(nil, now.Add(90*time.Second))
		assert.Equal(t, 90*time.Second, p.Delay(f, 0, now))

		past := RateLimited(nil, now.Add(-time.Minute))
		assert.Equal(t, 5*time.Second, p.Delay(past, 0, now))
	})

	t.Run("other failures use fixed delay", func(t *testing.T) {
		assert.Equal(t, time.Second, p.Delay(New(KindAPIError, nil), 2, now))
		assert.Equal(t, time.Second, p.Delay(New(KindUnknown, nil), 0, now))
	})

	t.Run("max delay caps exponential", func(t *testing.T) {
		assert.Equal(t, p.MaxDelay, p.Delay(New(KindTimeout, nil), 10, now))
	})
}

func TestPolicyDo(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		var slept []time.Duration
		calls := 0
		err := testPolicy(&slept).Do(ctx, func(context.Context, int) error {
			calls++
			if calls < 3 {
				return New(KindTimeout, errors.New("deadline"))
			}
			return nil
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
	})

	t.Run("fatal kinds are not retried", func(t *testing.T) {
		var slept []time.Duration
		calls := 0
		err := testPolicy(&slept).Do(ctx, func(context.Context, int) error {
			calls++
			return New(KindNotFound, errors.New("404"))
		}, nil)
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Empty(t, slept)
		assert.True(t, IsKind(err, KindNotFound))
		assert.False(t, errors.Is(err, ErrExhaustedRetries))
	})

	t.Run("exhaustion wraps last failure", func(t *testing.T) {
		var slept []time.Duration
		var notified []Kind
		err := testPolicy(&slept).Do(ctx, func(context.Context, int) error {
			return errors.New("boom")
		}, func(f *Failure, _ int, _ time.Duration) {
			notified = append(notified, f.Kind)
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrExhaustedRetries)
		assert.Equal(t, KindUnknown, Classify(err).Kind)
		assert.Len(t, slept, 2)
		assert.Equal(t, []Kind{KindUnknown, KindUnknown}, notified)
	})

	t.Run("cancelled wait stops the loop", func(t *testing.T) {
		p := DefaultPolicy()
		p.Sleep = func(context.Context, time.Duration) error { return context.Canceled }
		err := p.Do(ctx, func(context.Context, int) error {
			return New(KindTransient, nil)
		}, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))

	wrapped := errors.Join(errors.New("ctx"), RateLimited(errors.New("429"), time.Time{}))
	assert.Equal(t, KindRateLimited, Classify(wrapped).Kind)

	plain := errors.New("plain")
	f := Classify(plain)
	assert.Equal(t, KindUnknown, f.Kind)
	assert.ErrorIs(t, f, plain)
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, SleepContext(context.Background(), 0))
}
