package approvalflow

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log event names
const (
	// Submission lifecycle events
	EventSubmissionCreated         = "submission_created"
	EventSubmissionStatusChanged   = "submission_status_changed"
	EventSubmissionStatusUnchanged = "submission_status_unchanged"
	EventSubmissionDecisionSkipped = "submission_decision_skipped"
	EventSubmissionDeleted         = "submission_deleted"
	EventSubmissionsCleared        = "submissions_cleared"

	// Boundary events
	EventEmailActionRejected = "email_action_rejected"
	EventNotificationSent    = "notification_sent"
	EventNotificationRetry   = "notification_retrying"
	EventNotificationFailed  = "notification_failed"

	// Persistence events
	EventPersistenceError  = "persistence_error"
	EventStorageUnreadable = "storage_unreadable"
)

// NewLogger builds the process logger. format "json" writes structured lines,
// anything else writes the console format.
func NewLogger(level, format string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	w := out
	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).
		With().
		Timestamp().
		Logger().
		Level(lvl)
}

// LogSubmissionCreated logs a newly persisted submission
func LogSubmissionCreated(logger zerolog.Logger, sub *Submission) {
	logger.Info().
		Str("event", EventSubmissionCreated).
		Str("submission_id", sub.ID).
		Str("writer_email", sub.WriterEmail).
		Int("embedded_images", len(sub.EmbeddedImages)).
		Msg("Submission created")
}

// LogStatusChanged logs a transition that changed the stored status
func LogStatusChanged(logger zerolog.Logger, id string, from, to Status) {
	logger.Info().
		Str("event", EventSubmissionStatusChanged).
		Str("submission_id", id).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Submission status changed")
}

// LogStatusUnchanged logs a re-applied status that left the record untouched
func LogStatusUnchanged(logger zerolog.Logger, id string, status Status) {
	logger.Debug().
		Str("event", EventSubmissionStatusUnchanged).
		Str("submission_id", id).
		Str("status", status.String()).
		Msg("Submission already in requested status")
}

// LogDecisionSkipped logs a pending-only decision that lost to an earlier one
func LogDecisionSkipped(logger zerolog.Logger, id string, current Status, action Action) {
	logger.Info().
		Str("event", EventSubmissionDecisionSkipped).
		Str("submission_id", id).
		Str("status", current.String()).
		Str("action", action.String()).
		Msg("Submission already processed")
}

// LogSubmissionDeleted logs an explicit removal
func LogSubmissionDeleted(logger zerolog.Logger, id string) {
	logger.Info().
		Str("event", EventSubmissionDeleted).
		Str("submission_id", id).
		Msg("Submission deleted")
}

// LogPersistenceError logs errors during persistence operations
func LogPersistenceError(logger zerolog.Logger, id, operation string, err error) {
	logger.Error().
		Str("event", EventPersistenceError).
		Str("submission_id", id).
		Str("operation", operation).
		Err(err).
		Msg("Persistence error")
}

// SubmissionLogger creates a logger enriched with submission context
func SubmissionLogger(baseLogger zerolog.Logger, id string) zerolog.Logger {
	return baseLogger.With().
		Str("submission_id", id).
		Logger()
}
