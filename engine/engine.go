package engine

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sicko7947/approvalflow"
)

// Engine owns the submission state machine. It is the only writer of
// status-bearing fields and holds no copy of the collection: every query and
// mutation goes through the record store.
type Engine struct {
	store  approvalflow.RecordStore
	logger zerolog.Logger
	clock  approvalflow.Clock
	ids    approvalflow.IDGenerator
	policy approvalflow.TransitionPolicy

	// mu serializes mutations so a process runs one read-modify-write at a time
	mu sync.Mutex
}

// EngineOption configures the workflow engine
type EngineOption func(*Engine)

// WithLogger sets a custom logger for the engine
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock sets the timestamp source
func WithClock(clock approvalflow.Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithIDGenerator sets the submission id source
func WithIDGenerator(ids approvalflow.IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = ids
	}
}

// WithTransitionPolicy replaces the default any-to-any policy
func WithTransitionPolicy(policy approvalflow.TransitionPolicy) EngineOption {
	return func(e *Engine) {
		e.policy = policy
	}
}

// NewEngine creates a new workflow engine with optional configuration.
// If no logger is provided, a console logger at Info level is used.
func NewEngine(store approvalflow.RecordStore, opts ...EngineOption) *Engine {
	defaultLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger().
		Level(zerolog.InfoLevel)

	eng := &Engine{
		store:  store,
		logger: defaultLogger,
		clock:  approvalflow.SystemClock{},
		ids:    approvalflow.UUIDGenerator{},
		policy: approvalflow.DefaultTransitionPolicy(),
	}

	for _, opt := range opts {
		opt(eng)
	}

	return eng
}

// CreateInput carries a parsed document into the workflow
type CreateInput struct {
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	ImageReference string   `json:"imageReference,omitempty"`
	EmbeddedImages []string `json:"embeddedImages,omitempty"`
	WriterEmail    string   `json:"-"`
}

// CreateSubmission validates and stores a new pending submission
func (e *Engine) CreateSubmission(ctx context.Context, in CreateInput) (*approvalflow.Submission, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, approvalflow.NewValidationError("Title is required")
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, approvalflow.NewValidationError("Content is required")
	}

	var images []string
	if len(in.EmbeddedImages) > 0 {
		images = make([]string, len(in.EmbeddedImages))
		copy(images, in.EmbeddedImages)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now().UTC()
	sub := &approvalflow.Submission{
		ID:             e.ids.NewID(),
		Title:          title,
		Content:        content,
		ImageReference: strings.TrimSpace(in.ImageReference),
		EmbeddedImages: images,
		WriterEmail:    strings.TrimSpace(in.WriterEmail),
		Status:         approvalflow.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.store.Save(ctx, sub); err != nil {
		e.logStoreError(sub.ID, "save", err)
		return nil, err
	}

	approvalflow.LogSubmissionCreated(e.logger, sub)
	return sub, nil
}

// UpdateSubmissionStatus moves a submission to the given status and returns the stored record
func (e *Engine) UpdateSubmissionStatus(ctx context.Context, id string, status approvalflow.Status) (*approvalflow.Submission, error) {
	result, err := e.Transition(ctx, id, status)
	if err != nil {
		return nil, err
	}
	return result.Submission, nil
}

// Transition applies a status change and reports whether it changed anything.
// Re-applying the current status succeeds without touching UpdatedAt.
func (e *Engine) Transition(ctx context.Context, id string, status approvalflow.Status) (*approvalflow.TransitionResult, error) {
	if !status.IsValid() {
		return nil, approvalflow.NewValidationError("Invalid status: " + status.String())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sub, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	return e.apply(ctx, sub, status)
}

// DecidePending applies a manager decision only while the submission is still
// pending. A submission decided earlier is returned unchanged, so the first
// committed decision wins.
func (e *Engine) DecidePending(ctx context.Context, id string, action approvalflow.Action) (*approvalflow.TransitionResult, error) {
	status, err := action.TargetStatus()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sub, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if sub.Status != approvalflow.StatusPending {
		approvalflow.LogDecisionSkipped(e.logger, id, sub.Status, action)
		return &approvalflow.TransitionResult{
			Submission: sub,
			Previous:   sub.Status,
			Changed:    false,
		}, nil
	}

	return e.apply(ctx, sub, status)
}

// ApproveSubmission moves a submission to approved
func (e *Engine) ApproveSubmission(ctx context.Context, id string) (*approvalflow.Submission, error) {
	return e.UpdateSubmissionStatus(ctx, id, approvalflow.StatusApproved)
}

// RejectSubmission moves a submission to rejected
func (e *Engine) RejectSubmission(ctx context.Context, id string) (*approvalflow.Submission, error) {
	return e.UpdateSubmissionStatus(ctx, id, approvalflow.StatusRejected)
}

// GetSubmission retrieves a submission; found is false for an unknown id
func (e *Engine) GetSubmission(ctx context.Context, id string) (*approvalflow.Submission, bool, error) {
	return e.store.GetByID(ctx, id)
}

// GetAllSubmissions lists every submission, newest first
func (e *Engine) GetAllSubmissions(ctx context.Context) ([]*approvalflow.Submission, error) {
	return e.store.GetAll(ctx)
}

// GetPendingSubmissions lists submissions awaiting a decision, newest first
func (e *Engine) GetPendingSubmissions(ctx context.Context) ([]*approvalflow.Submission, error) {
	return e.store.GetByStatus(ctx, approvalflow.StatusPending)
}

// GetApprovedSubmissions lists approved submissions, newest first
func (e *Engine) GetApprovedSubmissions(ctx context.Context) ([]*approvalflow.Submission, error) {
	return e.store.GetByStatus(ctx, approvalflow.StatusApproved)
}

// GetRejectedSubmissions lists rejected submissions, newest first
func (e *Engine) GetRejectedSubmissions(ctx context.Context) ([]*approvalflow.Submission, error) {
	return e.store.GetByStatus(ctx, approvalflow.StatusRejected)
}

// GetSubmissionsByStatus lists submissions in the given status, newest first
func (e *Engine) GetSubmissionsByStatus(ctx context.Context, status approvalflow.Status) ([]*approvalflow.Submission, error) {
	if !status.IsValid() {
		return nil, approvalflow.NewValidationError("Invalid status: " + status.String())
	}
	return e.store.GetByStatus(ctx, status)
}

// GetSubmissionCounts returns per-status totals
func (e *Engine) GetSubmissionCounts(ctx context.Context) (approvalflow.StatusCounts, error) {
	return e.store.CountByStatus(ctx)
}

// DeleteSubmission removes a submission in any status
func (e *Engine) DeleteSubmission(ctx context.Context, id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	deleted, err := e.store.Delete(ctx, id)
	if err != nil {
		e.logStoreError(id, "delete", err)
		return false, err
	}
	if deleted {
		approvalflow.LogSubmissionDeleted(e.logger, id)
	}
	return deleted, nil
}

// ClearSubmissions removes every submission and returns how many were removed
func (e *Engine) ClearSubmissions(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.store.ClearAll(ctx)
	if err != nil {
		e.logStoreError("", "clear", err)
		return 0, err
	}

	e.logger.Warn().
		Str("event", approvalflow.EventSubmissionsCleared).
		Int("count", n).
		Msg("Submissions cleared")
	return n, nil
}

// load fetches a record that must exist
func (e *Engine) load(ctx context.Context, id string) (*approvalflow.Submission, error) {
	sub, found, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, approvalflow.NewNotFoundError(id)
	}
	return sub, nil
}

// apply moves sub to status under the policy; callers hold mu
func (e *Engine) apply(ctx context.Context, sub *approvalflow.Submission, status approvalflow.Status) (*approvalflow.TransitionResult, error) {
	previous := sub.Status

	if previous == status {
		approvalflow.LogStatusUnchanged(e.logger, sub.ID, status)
		return &approvalflow.TransitionResult{
			Submission: sub,
			Previous:   previous,
			Changed:    false,
		}, nil
	}

	if !e.policy.Allows(previous, status) {
		return nil, approvalflow.NewInvalidTransitionError(sub.ID, previous, status)
	}

	updated := sub.Clone()
	updated.Status = status
	updated.UpdatedAt = e.nextUpdatedAt(sub.UpdatedAt)

	if err := e.store.Update(ctx, updated); err != nil {
		e.logStoreError(sub.ID, "update", err)
		return nil, err
	}

	approvalflow.LogStatusChanged(e.logger, sub.ID, previous, status)
	return &approvalflow.TransitionResult{
		Submission: updated,
		Previous:   previous,
		Changed:    true,
	}, nil
}

// nextUpdatedAt returns the current time, nudged forward if the clock has not
// advanced past the previous update
func (e *Engine) nextUpdatedAt(previous time.Time) time.Time {
	now := e.clock.Now().UTC()
	if !now.After(previous) {
		now = previous.Add(time.Nanosecond)
	}
	return now
}

// logStoreError reports write failures; conflicts and missing records are caller errors
func (e *Engine) logStoreError(id, operation string, err error) {
	if approvalflow.IsPersistenceError(err) {
		approvalflow.LogPersistenceError(e.logger, id, operation, err)
	}
}
