package services

import (
	"context"
	"time"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// maxAttempts caps retries of transient backend failures.
const maxAttempts = 3

// retryBaseDelay is the delay before the first retry; it doubles per attempt.
const retryBaseDelay = 200 * time.Millisecond

// withRetry runs fn, retrying only transient failures up to maxAttempts
// total attempts. Permanent and unclassified errors return immediately.
func withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	delay := retryBaseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || !domain.IsTransient(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		logger.Debug("%s: transient failure (attempt %d/%d): %v", op, attempt, maxAttempts, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return err
}
