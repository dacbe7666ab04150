package approvalflow

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  NewValidationError("Title is required"),
			want: "[VALIDATION_ERROR] Title is required",
		},
		{
			name: "with submission",
			err:  NewNotFoundError("abc"),
			want: "[NOT_FOUND] Submission not found (submission: abc)",
		},
		{
			name: "with cause",
			err:  NewPersistenceError("save submission", errors.New("disk full")),
			want: "[PERSISTENCE_ERROR] Failed to save submission: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_IsMatchesCode(t *testing.T) {
	err := fmt.Errorf("engine: %w", NewNotFoundError("abc"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.True(t, IsNotFoundError(err))
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewPersistenceError("update submission", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsPersistenceError(err))
}

func TestIsConflictError(t *testing.T) {
	assert.True(t, IsConflictError(NewConflictError("a")))
	assert.True(t, IsConflictError(NewInvalidTransitionError("a", StatusApproved, StatusPending)))
	assert.False(t, IsConflictError(NewNotFoundError("a")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", NewValidationError("bad"), http.StatusBadRequest},
		{"not found", NewNotFoundError("a"), http.StatusNotFound},
		{"conflict", NewConflictError("a"), http.StatusConflict},
		{"invalid transition", NewInvalidTransitionError("a", StatusPending, StatusApproved), http.StatusConflict},
		{"persistence", NewPersistenceError("save", errors.New("x")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorCodeAndPublicMessage(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, ErrorCode(NewNotFoundError("a")))
	assert.Equal(t, "Submission not found", PublicMessage(NewNotFoundError("a")))

	raw := errors.New("driver: connection reset")
	assert.Equal(t, "INTERNAL_ERROR", ErrorCode(raw))
	assert.Equal(t, "Internal error", PublicMessage(raw))
}
