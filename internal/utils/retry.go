package utils

import (
	"context"
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Retry calls fn up to attempts times, sleeping baseDelay × attempt between tries.
// It stops early when ctx is done and returns the last error otherwise.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func(ctx context.Context, attempt int) error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		delay := baseDelay * time.Duration(attempt)
		fiberlog.Debugf("Attempt %d/%d failed, retrying in %v: %v", attempt, attempts, delay, lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return lastErr
}
