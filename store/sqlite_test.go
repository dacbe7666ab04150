package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sicko7947/approvalflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLiteStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	runRecordStoreSuite(t, func(t *testing.T) approvalflow.RecordStore {
		return openTestSQLiteStore(t, filepath.Join(t.TempDir(), "submissions.db"))
	})
}

func TestOpenSQLiteStore_RequiresPath(t *testing.T) {
	_, err := OpenSQLiteStore("")
	assert.Error(t, err)
}

func TestSQLiteStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "submissions.db")

	first, err := OpenSQLiteStore(path)
	require.NoError(t, err)

	sub := newTestSubmission("persisted", baseTime, approvalflow.StatusPending)
	sub.ImageReference = "cover.png"
	require.NoError(t, first.Save(ctx, sub))

	rejected := sub.Clone()
	rejected.Status = approvalflow.StatusRejected
	rejected.UpdatedAt = baseTime.Add(time.Minute)
	require.NoError(t, first.Update(ctx, rejected))
	require.NoError(t, first.Close())

	second := openTestSQLiteStore(t, path)
	got, found, err := second.GetByID(ctx, "persisted")
	require.NoError(t, err)
	require.True(t, found)
	assertSameSubmission(t, rejected, got)
}

func TestSQLiteStore_TiesBrokenByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLiteStore(t, filepath.Join(t.TempDir(), "submissions.db"))

	require.NoError(t, store.Save(ctx, newTestSubmission("first", baseTime, approvalflow.StatusPending)))
	require.NoError(t, store.Save(ctx, newTestSubmission("second", baseTime, approvalflow.StatusPending)))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, ids(all))
}

func TestSQLiteStore_WriteAfterCloseIsPersistenceError(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "submissions.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.Save(context.Background(), newTestSubmission("x", baseTime, approvalflow.StatusPending))
	require.Error(t, err)
	assert.True(t, approvalflow.IsPersistenceError(err))
}
