package approvalflow

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodePersistence       = "PERSISTENCE_ERROR"
)

// Sentinels for errors.Is; they match any *Error carrying the same code.
var (
	ErrValidation        = &Error{Code: ErrCodeValidation}
	ErrNotFound          = &Error{Code: ErrCodeNotFound}
	ErrConflict          = &Error{Code: ErrCodeConflict}
	ErrInvalidTransition = &Error{Code: ErrCodeInvalidTransition}
	ErrPersistence       = &Error{Code: ErrCodePersistence}
)

// Error is a workflow failure surfaced to the calling boundary
type Error struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	SubmissionID string `json:"submissionId,omitempty"`
	Err          error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.SubmissionID != "" {
		msg += fmt.Sprintf(" (submission: %s)", e.SubmissionID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewValidationError creates an error for input that violates a precondition
func NewValidationError(message string) *Error {
	return &Error{Code: ErrCodeValidation, Message: message}
}

// NewNotFoundError creates an error for an unknown submission id
func NewNotFoundError(id string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: "Submission not found", SubmissionID: id}
}

// NewConflictError creates an error for a duplicate submission id
func NewConflictError(id string) *Error {
	return &Error{Code: ErrCodeConflict, Message: "Submission already exists", SubmissionID: id}
}

// NewInvalidTransitionError creates an error for a transition the policy forbids
func NewInvalidTransitionError(id string, from, to Status) *Error {
	return &Error{
		Code:         ErrCodeInvalidTransition,
		Message:      fmt.Sprintf("Cannot move submission from %s to %s", from, to),
		SubmissionID: id,
	}
}

// NewPersistenceError wraps a failed write; the outcome must be re-queried before retrying
func NewPersistenceError(operation string, err error) *Error {
	return &Error{
		Code:    ErrCodePersistence,
		Message: "Failed to " + operation,
		Err:     err,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFoundError checks if an error is a not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflictError checks if an error is a duplicate-id or invalid-transition error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidTransition)
}

// IsPersistenceError checks if an error is a storage write failure
func IsPersistenceError(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// HTTPStatus maps workflow errors to the response tier a boundary should render
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidationError(err):
		return http.StatusBadRequest
	case IsNotFoundError(err):
		return http.StatusNotFound
	case IsConflictError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns the workflow code for err, or INTERNAL_ERROR for anything else
func ErrorCode(err error) string {
	var we *Error
	if errors.As(err, &we) {
		return we.Code
	}
	return "INTERNAL_ERROR"
}

// PublicMessage returns the human-readable reason safe to show to a caller
func PublicMessage(err error) string {
	var we *Error
	if errors.As(err, &we) && we.Message != "" {
		return we.Message
	}
	return "Internal error"
}
