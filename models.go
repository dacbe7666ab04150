package approvalflow

import (
	"strings"
	"time"
)

// Status represents where a submission sits in the approval workflow
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Statuses lists every valid status in display order
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

// IsValid returns true if the status is one of the known states
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts user input into a Status, ignoring case and surrounding space
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", NewValidationError("Invalid status: " + value)
	}
	return s, nil
}

// Action is a manager decision carried by the web UI or a signed email link
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// TargetStatus returns the status an action moves a submission to
func (a Action) TargetStatus() (Status, error) {
	switch a {
	case ActionApprove:
		return StatusApproved, nil
	case ActionReject:
		return StatusRejected, nil
	}
	return "", NewValidationError("Invalid action: " + string(a))
}

// String returns the string representation
func (a Action) String() string {
	return string(a)
}

// Submission is a document routed through the approval workflow.
// Empty optional fields mean absent and are omitted from every encoding.
type Submission struct {
	ID             string   `json:"id" dynamodbav:"id"`
	Title          string   `json:"title" dynamodbav:"title"`
	Content        string   `json:"content" dynamodbav:"content"`
	ImageReference string   `json:"imageReference,omitempty" dynamodbav:"image_reference,omitempty"`
	EmbeddedImages []string `json:"embeddedImages,omitempty" dynamodbav:"embedded_images,omitempty"`
	WriterEmail    string   `json:"writerEmail,omitempty" dynamodbav:"writer_email,omitempty"`

	Status Status `json:"status" dynamodbav:"status"`

	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// Clone returns a deep copy so callers never share slices with a store
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	c := *s
	if s.EmbeddedImages != nil {
		c.EmbeddedImages = make([]string, len(s.EmbeddedImages))
		copy(c.EmbeddedImages, s.EmbeddedImages)
	}
	return &c
}

// IsOwnedBy reports whether the submission was written by the given address
func (s *Submission) IsOwnedBy(email string) bool {
	return s.WriterEmail != "" && strings.EqualFold(s.WriterEmail, strings.TrimSpace(email))
}

// StatusCounts aggregates submissions per status
type StatusCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

// Add counts one submission in the given status
func (c *StatusCounts) Add(status Status) {
	switch status {
	case StatusPending:
		c.Pending++
	case StatusApproved:
		c.Approved++
	case StatusRejected:
		c.Rejected++
	}
	c.Total++
}

// TransitionResult describes the outcome of a status change request
type TransitionResult struct {
	Submission *Submission `json:"submission"`
	Previous   Status      `json:"previous"`
	Changed    bool        `json:"changed"`
}
