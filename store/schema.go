package store

import (
	"fmt"
	"time"

	"github.com/sicko7947/approvalflow"
)

// DynamoDB schema constants for single-table design
const (
	// Table attributes
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrGSI1PK     = "GSI1PK"
	AttrGSI1SK     = "GSI1SK"
	AttrEntityType = "entity_type"

	// Entity types
	EntityTypeSubmission = "Submission"

	// Index names
	IndexStatusIndex = "GSI1"
)

// sortKeyTimeFormat is fixed width so lexical order matches chronological order
const sortKeyTimeFormat = "2006-01-02T15:04:05.000000000Z"

// Key builders for single-table design

// Submission keys: PK=SUBMISSION#{id}, SK=META
func submissionPK(id string) string {
	return fmt.Sprintf("SUBMISSION#%s", id)
}

func submissionSK() string {
	return "META"
}

// Status index keys: GSI1PK=STATUS#{status}, GSI1SK={createdAt}#{id}.
// The index serves operator reporting; store reads use the consistent base table.
func submissionGSI1PK(status approvalflow.Status) string {
	return fmt.Sprintf("STATUS#%s", status)
}

func submissionGSI1SK(createdAt time.Time, id string) string {
	return fmt.Sprintf("%s#%s", createdAt.UTC().Format(sortKeyTimeFormat), id)
}
