package order

import (
	"context"
	"strings"
	"time"

	"github.com/retailops/backoffice/pkg/types"
)

// Default retry tuning for transient store failures
const (
	defaultMaxAttempts       = 3
	defaultBaseBackoffMs     = 50
	defaultMaxBackoffMs      = 1000
	defaultBackoffMultiplier = 2.0
)

// RetryConfig configures exponential backoff retry behavior
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts, including the first
	BaseDelay   time.Duration // Initial delay between attempts
	MaxDelay    time.Duration // Maximum delay between attempts
	Multiplier  float64       // Exponential backoff multiplier
}

// DefaultRetryConfig returns sensible defaults for store retry
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultBaseBackoffMs * time.Millisecond,
		MaxDelay:    defaultMaxBackoffMs * time.Millisecond,
		Multiplier:  defaultBackoffMultiplier,
	}
}

// isRetryable reports whether the error is a transient store condition worth
// retrying. Domain errors are never retried.
func isRetryable(err error) bool {
	if err == nil || types.IsDomainError(err) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// retryWithBackoff executes a function with exponential backoff retry logic.
// Retry happens only for transient store failures and is skipped on context
// cancellation.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var lastErr error
	var zero T
	backoff := config.BaseDelay

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) {
			return zero, err
		}

		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		// Apply exponential backoff before next attempt
		if attempt < config.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
				backoff = time.Duration(float64(backoff) * config.Multiplier)
				if backoff > config.MaxDelay {
					backoff = config.MaxDelay
				}
			}
		}
	}

	return zero, lastErr
}
