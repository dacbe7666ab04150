package approvalflow

import "context"

// RecordStore defines durable keyed storage of submissions.
// Implementations return copies, order listings newest CreatedAt first,
// and report failed writes as PersistenceError.
type RecordStore interface {
	// Save inserts a new record; a duplicate id fails with ConflictError
	Save(ctx context.Context, sub *Submission) error
	// GetByID reports false for a missing id rather than an error
	GetByID(ctx context.Context, id string) (*Submission, bool, error)
	GetAll(ctx context.Context) ([]*Submission, error)
	GetByStatus(ctx context.Context, status Status) ([]*Submission, error)
	// Update replaces the record in full; a missing id fails with NotFoundError
	Update(ctx context.Context, sub *Submission) error
	Delete(ctx context.Context, id string) (bool, error)

	// Queries
	CountByStatus(ctx context.Context) (StatusCounts, error)

	// Administrative
	ClearAll(ctx context.Context) (int, error)
	Close() error
}
