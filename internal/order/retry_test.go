package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/backoffice/pkg/types"
)

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.New("database is locked")))
	assert.True(t, isRetryable(errors.New("SQLITE_BUSY: database busy")))

	assert.False(t, isRetryable(nil))
	assert.False(t, isRetryable(errors.New("disk I/O error")))
	assert.False(t, isRetryable(types.ErrProductNotFound))
	assert.False(t, isRetryable(&types.InsufficientStockError{ProductID: 1, Available: 0, Requested: 1}))
}

func TestRetryWithBackoff_RecoversFromContention(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}

	attempts := 0
	result, err := retryWithBackoff(context.Background(), cfg, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("database is locked")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_DomainErrorFailsFast(t *testing.T) {
	cfg := DefaultRetryConfig()

	attempts := 0
	_, err := retryWithBackoff(context.Background(), cfg, func() (*types.Sale, error) {
		attempts++
		return nil, types.ErrAlreadyCancelled
	})
	assert.ErrorIs(t, err, types.ErrAlreadyCancelled)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ExhaustsAttempts(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2.0}

	attempts := 0
	_, err := retryWithBackoff(context.Background(), cfg, func() (int, error) {
		attempts++
		return 0, errors.New("database is locked")
	})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}
