package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailops/backoffice/internal/storage"
)

func fixedClock(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, time.March, 15, 12, 0, 0, 0, time.UTC)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "FAC-2025-000001", Format(2025, 1))
	assert.Equal(t, "FAC-2025-000123", Format(2025, 123))
	assert.Equal(t, "FAC-2026-999999", Format(2026, 999999))
}

func TestNext_Increments(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()

	seq := NewWithClock(fixedClock(2025))
	ctx := context.Background()

	first, err := seq.Next(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "FAC-2025-000001", first)

	second, err := seq.Next(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "FAC-2025-000002", second)
}

func TestNext_ResetsPerYear(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	first, err := NewWithClock(fixedClock(2025)).Next(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "FAC-2025-000001", first)

	nextYear, err := NewWithClock(fixedClock(2026)).Next(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "FAC-2026-000001", nextYear)
}

func TestNext_RollbackReleasesValue(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()

	seq := NewWithClock(fixedClock(2025))
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	aborted, err := seq.Next(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, "FAC-2025-000001", aborted)
	require.NoError(t, tx.Rollback())

	// The aborted allocation is not retained as used
	retried, err := seq.Next(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "FAC-2025-000001", retried)
}
