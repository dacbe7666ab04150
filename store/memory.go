package store

import (
	"context"
	"sync"

	"github.com/sicko7947/approvalflow"
)

// MemoryStore implements approvalflow.RecordStore using in-memory storage (for testing)
type MemoryStore struct {
	records []*approvalflow.Submission // insertion order
	index   map[string]int             // id -> position in records
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory record store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[string]int),
	}
}

func (s *MemoryStore) Save(ctx context.Context, sub *approvalflow.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[sub.ID]; exists {
		return approvalflow.NewConflictError(sub.ID)
	}

	s.index[sub.ID] = len(s.records)
	s.records = append(s.records, sub.Clone())

	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*approvalflow.Submission, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, exists := s.index[id]
	if !exists {
		return nil, false, nil
	}

	return s.records[pos].Clone(), true, nil
}

func (s *MemoryStore) GetAll(ctx context.Context) ([]*approvalflow.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subs := reversedClones(s.records)
	sortNewestFirst(subs)
	return subs, nil
}

func (s *MemoryStore) GetByStatus(ctx context.Context, status approvalflow.Status) ([]*approvalflow.Submission, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterByStatus(all, status), nil
}

func (s *MemoryStore) Update(ctx context.Context, sub *approvalflow.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.index[sub.ID]
	if !exists {
		return approvalflow.NewNotFoundError(sub.ID)
	}

	s.records[pos] = sub.Clone()

	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.index[id]
	if !exists {
		return false, nil
	}

	s.records = append(s.records[:pos], s.records[pos+1:]...)
	s.reindex()

	return true, nil
}

func (s *MemoryStore) CountByStatus(ctx context.Context) (approvalflow.StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return countStatuses(s.records), nil
}

func (s *MemoryStore) ClearAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	s.records = nil
	s.index = make(map[string]int)

	return n, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) reindex() {
	s.index = make(map[string]int, len(s.records))
	for i, sub := range s.records {
		s.index[sub.ID] = i
	}
}

var _ approvalflow.RecordStore = (*MemoryStore)(nil)
