package store

import (
	"context"
	"testing"
	"time"

	"github.com/sicko7947/approvalflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.UTC)

func newTestSubmission(id string, createdAt time.Time, status approvalflow.Status) *approvalflow.Submission {
	return &approvalflow.Submission{
		ID:        id,
		Title:     "Title " + id,
		Content:   "Content " + id,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// assertSameSubmission compares every field, using time.Equal for timestamps
func assertSameSubmission(t *testing.T, want, got *approvalflow.Submission) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Content, got.Content)
	assert.Equal(t, want.ImageReference, got.ImageReference)
	assert.Equal(t, want.EmbeddedImages, got.EmbeddedImages)
	assert.Equal(t, want.WriterEmail, got.WriterEmail)
	assert.Equal(t, want.Status, got.Status)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt %v != %v", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updatedAt %v != %v", want.UpdatedAt, got.UpdatedAt)
}

func ids(subs []*approvalflow.Submission) []string {
	out := make([]string, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub.ID)
	}
	return out
}

// runRecordStoreSuite checks the behavior every backend must share
func runRecordStoreSuite(t *testing.T, newStore func(t *testing.T) approvalflow.RecordStore) {
	ctx := context.Background()

	t.Run("SaveAndGetAllFields", func(t *testing.T) {
		s := newStore(t)
		sub := newTestSubmission("full", baseTime, approvalflow.StatusPending)
		sub.ImageReference = "images/cover.png"
		sub.EmbeddedImages = []string{"data:image/png;base64,AAA", "data:image/png;base64,BBB"}
		sub.WriterEmail = "writer@example.com"

		require.NoError(t, s.Save(ctx, sub))

		got, found, err := s.GetByID(ctx, "full")
		require.NoError(t, err)
		require.True(t, found)
		assertSameSubmission(t, sub, got)
	})

	t.Run("OptionalFieldsStayAbsent", func(t *testing.T) {
		s := newStore(t)
		sub := newTestSubmission("bare", baseTime, approvalflow.StatusPending)
		require.NoError(t, s.Save(ctx, sub))

		got, found, err := s.GetByID(ctx, "bare")
		require.NoError(t, err)
		require.True(t, found)
		assert.Empty(t, got.ImageReference)
		assert.Nil(t, got.EmbeddedImages)
		assert.Empty(t, got.WriterEmail)
	})

	t.Run("GetByIDUnknown", func(t *testing.T) {
		s := newStore(t)
		got, found, err := s.GetByID(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	})

	t.Run("SaveDuplicateConflicts", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, newTestSubmission("dup", baseTime, approvalflow.StatusPending)))

		err := s.Save(ctx, newTestSubmission("dup", baseTime.Add(time.Minute), approvalflow.StatusApproved))
		require.Error(t, err)
		assert.ErrorIs(t, err, approvalflow.ErrConflict)

		got, _, err := s.GetByID(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, approvalflow.StatusPending, got.Status)
	})

	t.Run("UpdateReplacesRecord", func(t *testing.T) {
		s := newStore(t)
		sub := newTestSubmission("u", baseTime, approvalflow.StatusPending)
		require.NoError(t, s.Save(ctx, sub))

		updated := sub.Clone()
		updated.Status = approvalflow.StatusApproved
		updated.UpdatedAt = baseTime.Add(time.Second)
		require.NoError(t, s.Update(ctx, updated))

		got, found, err := s.GetByID(ctx, "u")
		require.NoError(t, err)
		require.True(t, found)
		assertSameSubmission(t, updated, got)
	})

	t.Run("UpdateUnknownNotFound", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(ctx, newTestSubmission("ghost", baseTime, approvalflow.StatusApproved))
		require.Error(t, err)
		assert.True(t, approvalflow.IsNotFoundError(err))

		_, found, err := s.GetByID(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, found, "update must not upsert")
	})

	t.Run("ReturnedRecordsAreCopies", func(t *testing.T) {
		s := newStore(t)
		sub := newTestSubmission("copy", baseTime, approvalflow.StatusPending)
		sub.EmbeddedImages = []string{"a"}
		require.NoError(t, s.Save(ctx, sub))

		sub.Status = approvalflow.StatusRejected
		sub.EmbeddedImages[0] = "mutated"

		got, _, err := s.GetByID(ctx, "copy")
		require.NoError(t, err)
		got.Title = "mutated"

		again, _, err := s.GetByID(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, approvalflow.StatusPending, again.Status)
		assert.Equal(t, []string{"a"}, again.EmbeddedImages)
		assert.Equal(t, "Title copy", again.Title)
	})

	t.Run("GetAllNewestFirst", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, newTestSubmission("a", baseTime, approvalflow.StatusPending)))
		require.NoError(t, s.Save(ctx, newTestSubmission("c", baseTime.Add(2*time.Second), approvalflow.StatusApproved)))
		require.NoError(t, s.Save(ctx, newTestSubmission("b", baseTime.Add(time.Second), approvalflow.StatusRejected)))

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b", "a"}, ids(all))
	})

	t.Run("GetAllEmpty", func(t *testing.T) {
		s := newStore(t)
		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("GetByStatusFilters", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, newTestSubmission("p1", baseTime, approvalflow.StatusPending)))
		require.NoError(t, s.Save(ctx, newTestSubmission("a1", baseTime.Add(time.Second), approvalflow.StatusApproved)))
		require.NoError(t, s.Save(ctx, newTestSubmission("p2", baseTime.Add(2*time.Second), approvalflow.StatusPending)))

		pending, err := s.GetByStatus(ctx, approvalflow.StatusPending)
		require.NoError(t, err)
		assert.Equal(t, []string{"p2", "p1"}, ids(pending))

		rejected, err := s.GetByStatus(ctx, approvalflow.StatusRejected)
		require.NoError(t, err)
		assert.Empty(t, rejected)
	})

	t.Run("DeleteAnyStatus", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, newTestSubmission("d1", baseTime, approvalflow.StatusApproved)))
		require.NoError(t, s.Save(ctx, newTestSubmission("d2", baseTime.Add(time.Second), approvalflow.StatusPending)))

		deleted, err := s.Delete(ctx, "d1")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.Delete(ctx, "d1")
		require.NoError(t, err)
		assert.False(t, deleted)

		_, found, err := s.GetByID(ctx, "d1")
		require.NoError(t, err)
		assert.False(t, found)

		got, found, err := s.GetByID(ctx, "d2")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "d2", got.ID)
	})

	t.Run("CountByStatus", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, newTestSubmission("a", baseTime, approvalflow.StatusPending)))
		require.NoError(t, s.Save(ctx, newTestSubmission("b", baseTime.Add(time.Second), approvalflow.StatusApproved)))
		require.NoError(t, s.Save(ctx, newTestSubmission("c", baseTime.Add(2*time.Second), approvalflow.StatusRejected)))
		require.NoError(t, s.Save(ctx, newTestSubmission("d", baseTime.Add(3*time.Second), approvalflow.StatusPending)))

		counts, err := s.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, approvalflow.StatusCounts{Pending: 2, Approved: 1, Rejected: 1, Total: 4}, counts)
	})

	t.Run("ClearAll", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, newTestSubmission("a", baseTime, approvalflow.StatusPending)))
		require.NoError(t, s.Save(ctx, newTestSubmission("b", baseTime.Add(time.Second), approvalflow.StatusApproved)))

		n, err := s.ClearAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		counts, err := s.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, approvalflow.StatusCounts{}, counts)
	})
}
