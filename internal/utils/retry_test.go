package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	var seen []int
	err := Retry(context.Background(), 3, time.Millisecond, func(_ context.Context, attempt int) error {
		seen = append(seen, attempt)
		if attempt < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(context.Context, int) error {
		calls++
		return errors.New("still down")
	})
	require.EqualError(t, err, "still down")
	assert.Equal(t, 3, calls)
}

func TestRetry_LinearBackoff(t *testing.T) {
	start := time.Now()
	_ = Retry(context.Background(), 3, 20*time.Millisecond, func(context.Context, int) error {
		return errors.New("x")
	})
	// 20ms after the first attempt, 40ms after the second
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func(context.Context, int) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
