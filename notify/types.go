package notify

import (
	"time"

	"github.com/sicko7947/approvalflow"
)

// Kind identifies which notification template applies
type Kind string

const (
	KindApprovalRequest Kind = "approval_request"
	KindApproved        Kind = "approved"
	KindRejected        Kind = "rejected"
)

// KindForStatus returns the decision notification for a status
func KindForStatus(status approvalflow.Status) (Kind, bool) {
	switch status {
	case approvalflow.StatusApproved:
		return KindApproved, true
	case approvalflow.StatusRejected:
		return KindRejected, true
	}
	return "", false
}

// Message describes an outbound notification request
type Message struct {
	Kind       Kind                     `json:"kind"`
	Recipient  string                   `json:"recipient"`
	Submission *approvalflow.Submission `json:"submission"`
	ApproveURL string                   `json:"approveUrl,omitempty"`
	RejectURL  string                   `json:"rejectUrl,omitempty"`
}

// Delivery is the rendered payload handed to a recipient
type Delivery struct {
	Kind      Kind      `json:"kind"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sentAt"`
}
