package indexing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("first attempt succeeds", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(ctx, nil, 3, time.Millisecond, func(context.Context) error {
			attempts++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("eventual success", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(ctx, nil, 5, time.Millisecond, func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("temporary error")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("all attempts fail", func(t *testing.T) {
		attempts := 0
		expected := errors.New("persistent error")
		err := RetryWithBackoff(ctx, nil, 3, time.Millisecond, func(context.Context) error {
			attempts++
			return expected
		})
		assert.Equal(t, expected, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("invalid attempts", func(t *testing.T) {
		err := RetryWithBackoff(ctx, nil, 0, time.Millisecond, func(context.Context) error { return nil })
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})

	t.Run("context errors are not retried", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(ctx, nil, 5, time.Millisecond, func(context.Context) error {
			attempts++
			return context.DeadlineExceeded
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, attempts)
	})

	t.Run("cancel during backoff", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		attempts := 0
		err := RetryWithBackoff(cctx, nil, 5, time.Hour, func(context.Context) error {
			attempts++
			cancel()
			return errors.New("fails")
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	})
}
