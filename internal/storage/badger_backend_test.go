package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestBadgerBackend(t *testing.T) *BadgerBackend {
	t.Helper()

	backend := NewBadgerBackend()
	require.NoError(t, backend.Initialize(filepath.Join(t.TempDir(), "badger"), false))
	t.Cleanup(func() { _ = backend.Close() })

	return backend
}

func TestBadgerBackend_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		backend := NewBadgerBackend()
		err := backend.Initialize(filepath.Join(t.TempDir(), "badger"), false)

		assert.NoError(t, err)
		assert.NotNil(t, backend.db)
		assert.True(t, backend.initialized)

		assert.NoError(t, backend.Close())
		assert.False(t, backend.initialized)
	})

	t.Run("ReadOnly", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "badger")

		// First create the DB
		backend1 := NewBadgerBackend()
		require.NoError(t, backend1.Initialize(dbPath, false))
		require.NoError(t, backend1.SaveRun(context.Background(), NewRun(KindInsights, "a.csv")))
		require.NoError(t, backend1.Close())

		backend2 := NewBadgerBackend()
		require.NoError(t, backend2.Initialize(dbPath, true))
		defer backend2.Close()

		runs, err := backend2.ListRuns(context.Background(), "", 0)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})

	t.Run("InvalidPath", func(t *testing.T) {
		backend := NewBadgerBackend()
		err := backend.Initialize("/nonexistent/path/that/does/not/exist", true)

		assert.Error(t, err)
	})

	t.Run("CloseTwice", func(t *testing.T) {
		backend := setupTestBadgerBackend(t)
		assert.NoError(t, backend.Close())
		assert.NoError(t, backend.Close())
	})
}

func TestBadgerBackend_Store(t *testing.T) {
	t.Parallel()

	testStore(t, func(t *testing.T) Store {
		return setupTestBadgerBackend(t)
	})
}

func TestBadgerBackend_Reopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "badger")

	backend := NewBadgerBackend()
	require.NoError(t, backend.Initialize(dbPath, false))
	run := NewRun(KindPriority, "items.json")
	run.Stats["items"] = 3
	require.NoError(t, backend.SaveRun(ctx, run))
	require.NoError(t, backend.Close())

	reopened := NewBadgerBackend()
	require.NoError(t, reopened.Initialize(dbPath, false))
	defer reopened.Close()

	got, err := reopened.LatestRun(ctx, KindPriority)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, 3, got.Stats["items"])
}

func TestBadgerBackend_ListRunsCanceled(t *testing.T) {
	t.Parallel()

	backend := setupTestBadgerBackend(t)
	require.NoError(t, backend.SaveRun(context.Background(), NewRun(KindInsights, "a.csv")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := backend.ListRuns(ctx, "", 0)
	assert.ErrorIs(t, err, context.Canceled)
}
