package shell

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stacksys/circulation-tracker-go/circstore"
)

func Test_RetryWithExponentialBackoff_Success_NoRetries(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		return nil // Success on the first attempt
	}

	meta, err := RetryWithExponentialBackoff(ctx, fn)

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, 1, meta.Attempts)
	assert.Equal(t, time.Duration(0), meta.TotalDelay)
	assert.Equal(t, "none", meta.LastErrorType)
	assert.False(t, meta.RetriesExhausted)
}

func Test_RetryWithExponentialBackoff_RetryOnConcurrencyConflict(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		if callCount < 3 {
			return circstore.ErrConcurrencyConflict // Fail twice
		}
		return nil // Success on the third attempt
	}

	meta, err := RetryWithExponentialBackoff(ctx, fn)

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
	assert.Equal(t, 3, meta.Attempts)
	assert.Greater(t, meta.TotalDelay, time.Duration(0))
	assert.Equal(t, "none", meta.LastErrorType)
	assert.False(t, meta.RetriesExhausted)
}

func Test_RetryWithExponentialBackoff_NonRetryableErrorFailsFast(t *testing.T) {
	ctx := context.Background()
	callCount := 0
	permanentErr := errors.New("this will not get better")

	fn := func(_ context.Context) error {
		callCount++
		return permanentErr
	}

	meta, err := RetryWithExponentialBackoff(ctx, fn)

	assert.ErrorIs(t, err, permanentErr)
	assert.Equal(t, 1, callCount, "Non-retryable errors should fail on the first attempt")
	assert.Equal(t, 1, meta.Attempts)
	assert.Equal(t, "other", meta.LastErrorType)
	assert.False(t, meta.RetriesExhausted)
}

func Test_RetryWithExponentialBackoff_MaxAttemptsReached(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		return circstore.ErrConcurrencyConflict // Never succeeds
	}

	meta, err := RetryWithExponentialBackoff(ctx, fn,
		WithMaxAttempts(3),
		WithBaseDelay(time.Millisecond),
	)

	assert.ErrorIs(t, err, circstore.ErrConcurrencyConflict)
	assert.Equal(t, 3, callCount)
	assert.Equal(t, 3, meta.Attempts)
	assert.Equal(t, "concurrency_conflict", meta.LastErrorType)
	assert.True(t, meta.RetriesExhausted)
}

func Test_RetryWithExponentialBackoff_WithAllOptions(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		if callCount < 2 {
			return circstore.ErrConcurrencyConflict
		}
		return nil
	}

	meta, err := RetryWithExponentialBackoff(ctx, fn,
		WithMaxAttempts(3),
		WithBaseDelay(5*time.Millisecond),
		WithJitterFactor(0.1),
	)

	assert.NoError(t, err)
	assert.Equal(t, 2, callCount)
	assert.Equal(t, 2, meta.Attempts)
	assert.Greater(t, meta.TotalDelay, time.Duration(0))
	assert.Equal(t, "none", meta.LastErrorType)
}

func Test_RetryWithExponentialBackoff_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		cancel() // Cancel while the retry loop is sleeping
		return circstore.ErrConcurrencyConflict
	}

	meta, err := RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(50*time.Millisecond))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, "context_canceled", meta.LastErrorType)
}

func Test_RetryWithExponentialBackoff_InvalidOptions(t *testing.T) {
	ctx := context.Background()
	fn := func(_ context.Context) error { return nil }

	// Test invalid max attempts
	_, err := RetryWithExponentialBackoff(ctx, fn, WithMaxAttempts(0))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	// Test negative base delay
	_, err = RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(-1*time.Second))
	assert.ErrorIs(t, err, ErrNegativeBaseDelay)

	// Test invalid jitter factor
	_, err = RetryWithExponentialBackoff(ctx, fn, WithJitterFactor(1.5))
	assert.ErrorIs(t, err, ErrInvalidJitterFactor)
}

func Test_RetryWithExponentialBackoff_InvalidMetricsOptions(t *testing.T) {
	ctx := context.Background()
	fn := func(_ context.Context) error { return nil }

	_, err := RetryWithExponentialBackoff(ctx, fn, WithMetrics(nil, "CheckOutItem"))
	assert.ErrorIs(t, err, ErrNilMetricsCollector)
}

func Test_GetErrorType_ClassifiesErrors(t *testing.T) {
	assert.Equal(t, "none", getErrorType(nil))
	assert.Equal(t, "concurrency_conflict", getErrorType(circstore.ErrConcurrencyConflict))
	assert.Equal(t, "context_canceled", getErrorType(context.Canceled))
	assert.Equal(t, "context_deadline_exceeded", getErrorType(context.DeadlineExceeded))
	assert.Equal(t, "other", getErrorType(errors.New("anything else")))
}
