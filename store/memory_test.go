package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sicko7947/approvalflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	runRecordStoreSuite(t, func(t *testing.T) approvalflow.RecordStore {
		return NewMemoryStore()
	})
}

func TestMemoryStore_TiesBrokenByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Save(ctx, newTestSubmission("first", baseTime, approvalflow.StatusPending)))
	require.NoError(t, store.Save(ctx, newTestSubmission("second", baseTime, approvalflow.StatusPending)))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, ids(all))
}

func TestMemoryStore_DeleteKeepsIndexConsistent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(ctx, newTestSubmission(fmt.Sprintf("s%d", i), baseTime, approvalflow.StatusPending)))
	}

	deleted, err := store.Delete(ctx, "s0")
	require.NoError(t, err)
	require.True(t, deleted)

	updated := newTestSubmission("s2", baseTime, approvalflow.StatusApproved)
	require.NoError(t, store.Update(ctx, updated))

	got, found, err := store.GetByID(ctx, "s2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, approvalflow.StatusApproved, got.Status)

	got, found, err = store.GetByID(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, approvalflow.StatusPending, got.Status)
}

func TestMemoryStore_ThreadSafety(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("sub-%d", i)
			_ = store.Save(ctx, newTestSubmission(id, baseTime, approvalflow.StatusPending))
			_, _, _ = store.GetByID(ctx, id)
			_, _ = store.GetAll(ctx)
		}(i)
	}
	wg.Wait()

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, counts.Pending)
	assert.Equal(t, 50, counts.Total)
}
