package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/imageindex/ai"
)

// recorder captures sleeps instead of waiting.
type recorder struct {
	sleeps []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.sleeps = append(r.sleeps, d)
	return nil
}

func testPolicy(r *recorder) Policy {
	p := DefaultPolicy()
	p.Sleep = r.sleep
	return p
}

var throttled = fmt.Errorf("caption: %w", ai.ErrRateLimited)

func TestDo_Success(t *testing.T) {
	rec := &recorder{}
	attempts := 0

	got, err := Do(context.Background(), testPolicy(rec), RateLimited, func(context.Context) (string, error) {
		attempts++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.sleeps)
}

func TestDo_EventualSuccess(t *testing.T) {
	rec := &recorder{}
	attempts := 0

	got, err := Do(context.Background(), testPolicy(rec), RateLimited, func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, throttled
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, attempts)
	assert.Len(t, rec.sleeps, 2)
}

func TestDo_BackoffGrowth(t *testing.T) {
	rec := &recorder{}
	attempts := 0

	_, err := Do(context.Background(), testPolicy(rec), RateLimited, func(context.Context) (struct{}, error) {
		attempts++
		return struct{}{}, throttled
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhaustedRetries)
	assert.ErrorIs(t, err, ai.ErrRateLimited)
	assert.Equal(t, DefaultMaxRetries, attempts)
	require.Len(t, rec.sleeps, DefaultMaxRetries-1)

	for i, d := range rec.sleeps {
		low := time.Duration(1<<i) * time.Second
		high := low + 500*time.Millisecond
		assert.GreaterOrEqual(t, d, low, "sleep %d", i+1)
		assert.Less(t, d, high, "sleep %d", i+1)
	}

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, DefaultMaxRetries, exhausted.Attempts)
}

func TestDo_BudgetCapsCalls(t *testing.T) {
	rec := &recorder{}
	attempts := 0

	// Throttled on every call the budget allows; a further call would succeed.
	_, err := Do(context.Background(), testPolicy(rec), RateLimited, func(context.Context) (int, error) {
		attempts++
		if attempts <= DefaultMaxRetries {
			return 0, throttled
		}
		return 42, nil
	})

	assert.ErrorIs(t, err, ErrExhaustedRetries)
	assert.Equal(t, DefaultMaxRetries, attempts)
	assert.Len(t, rec.sleeps, DefaultMaxRetries-1)
}

func TestDo_FatalShortCircuit(t *testing.T) {
	rec := &recorder{}
	attempts := 0
	boom := &ai.StatusError{Provider: "vision", StatusCode: 503, Body: "unavailable"}

	_, err := Do(context.Background(), testPolicy(rec), RateLimited, func(context.Context) (string, error) {
		attempts++
		return "", boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFatal)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrExhaustedRetries)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.sleeps)
}

func TestDo_FatalAfterRetries(t *testing.T) {
	rec := &recorder{}
	attempts := 0

	_, err := Do(context.Background(), testPolicy(rec), RateLimited, func(context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", throttled
		}
		return "", errors.New("bad request")
	})

	var fatalErr *FatalError
	require.ErrorAs(t, err, &fatalErr)
	assert.Equal(t, 2, fatalErr.Attempt)
	assert.Len(t, rec.sleeps, 1)
}

func TestDo_SingleAttempt(t *testing.T) {
	rec := &recorder{}
	p := testPolicy(rec)
	p.MaxRetries = 1
	attempts := 0

	_, err := Do(context.Background(), p, RateLimited, func(context.Context) (string, error) {
		attempts++
		return "", throttled
	})

	assert.ErrorIs(t, err, ErrExhaustedRetries)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.sleeps)
}

func TestDo_OnRetry(t *testing.T) {
	p := DefaultPolicy()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	p.Jitter = func(time.Duration) time.Duration { return 0 }

	var delays []time.Duration
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		assert.ErrorIs(t, err, ai.ErrRateLimited)
		delays = append(delays, delay)
	}

	_, _ = Do(context.Background(), p, RateLimited, func(context.Context) (string, error) {
		return "", throttled
	})

	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	}, delays)
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := DefaultPolicy()
	p.InitialBackoff = time.Hour
	attempts := 0

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, p, RateLimited, func(context.Context) (string, error) {
		attempts++
		return "", throttled
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextAlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Do(ctx, DefaultPolicy(), RateLimited, func(context.Context) (string, error) {
		called = true
		return "", nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDo_InvalidPolicy(t *testing.T) {
	_, err := Do(context.Background(), Policy{MaxRetries: 1}, RateLimited, func(context.Context) (string, error) {
		return "", nil
	})
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	_, err = Do(context.Background(), Policy{MaxRetries: 0, InitialBackoff: time.Second}, RateLimited, func(context.Context) (string, error) {
		return "", nil
	})
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestRateLimited(t *testing.T) {
	assert.True(t, RateLimited(throttled))
	assert.True(t, RateLimited(&ai.StatusError{StatusCode: 429}))
	assert.False(t, RateLimited(&ai.StatusError{StatusCode: 500}))
	assert.False(t, RateLimited(context.DeadlineExceeded))
}

func TestUniformJitter(t *testing.T) {
	for i := 0; i < 1000; i++ {
		j := uniformJitter(500 * time.Millisecond)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, 500*time.Millisecond)
	}
	assert.Equal(t, time.Duration(0), uniformJitter(0))
}
