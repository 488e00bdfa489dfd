package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")

func TestWithExponentialBackoff_SingleAttemptByDefault(t *testing.T) {
	calls := 0
	result := WithExponentialBackoff(context.Background(), DefaultRetryConfig(), func(ctx context.Context, attempt int) error {
		calls++
		return errTransient
	})

	assert.Equal(t, 1, calls)
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err(), errTransient)
}

func TestWithExponentialBackoff_SucceedsOnRetry(t *testing.T) {
	cfg := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}

	result := WithExponentialBackoff(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		if attempt < 3 {
			return errTransient
		}
		return nil
	})

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.NoError(t, result.Err())
}

func TestWithExponentialBackoff_StopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	cfg := &RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Multiplier:   2,
		Retryable:    func(err error) bool { return !errors.Is(err, permanent) },
	}

	result := WithExponentialBackoff(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		return permanent
	})

	assert.Equal(t, 1, result.Attempts)
	assert.ErrorIs(t, result.Err(), permanent)
}

func TestWithExponentialBackoff_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &RetryConfig{MaxAttempts: 3, InitialDelay: time.Hour, Multiplier: 2}

	result := WithExponentialBackoff(ctx, cfg, func(ctx context.Context, attempt int) error {
		cancel()
		return errTransient
	})

	assert.Equal(t, 1, result.Attempts)
	assert.ErrorIs(t, result.LastError, context.Canceled)
}

func TestCalculateDelay(t *testing.T) {
	cfg := &RetryConfig{InitialDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, calculateDelay(cfg, 1))
	assert.Equal(t, 2*time.Second, calculateDelay(cfg, 2))
	assert.Equal(t, 4*time.Second, calculateDelay(cfg, 3))
	assert.Equal(t, 5*time.Second, calculateDelay(cfg, 4))
}
