package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askmynotes/internal/domain"
)

func fastPolicy() Policy {
	return Policy{MaxRetries: DefaultMaxRetries, BaseDelay: time.Millisecond}
}

func TestRetry_RateLimitedExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		calls++
		return "", domain.ErrRateLimited
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, DefaultMaxRetries+1, calls)
}

func TestRetry_OtherErrorsAreNotRetried(t *testing.T) {
	boom := errors.New("503 upstream")
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(), func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetry_RecoversAfterRateLimit(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", domain.ErrRateLimited
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExponentialWaits(t *testing.T) {
	var waits []time.Duration
	p := Policy{
		MaxRetries: 2,
		BaseDelay:  2 * time.Millisecond,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			assert.Equal(t, len(waits), attempt)
			waits = append(waits, wait)
		},
	}
	_, _ = Retry(context.Background(), p, func(context.Context) (struct{}, error) {
		return struct{}{}, domain.ErrRateLimited
	})
	assert.Equal(t, []time.Duration{2 * time.Millisecond, 4 * time.Millisecond}, waits)
}

func TestRetry_ZeroRetries(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), Policy{BaseDelay: time.Millisecond}, func(context.Context) (string, error) {
		calls++
		return "", domain.ErrRateLimited
	})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxRetries: 5, BaseDelay: time.Hour}
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, p, func(context.Context) (string, error) {
			calls++
			return "", domain.ErrRateLimited
		})
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not stop after cancellation")
	}
}
