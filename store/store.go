// Package store provides RecordStore implementations for the approval workflow.
// The RecordStore interface is defined in the parent approvalflow package
// (../store_interface.go) so the engine and the stores share one contract.
//
// This package contains concrete implementations:
//   - MemoryStore: process-local backend for tests and ephemeral runs
//   - FileStore: JSON file rewritten in full on every mutation
//   - SQLiteStore: embedded SQLite database (modernc.org/sqlite)
//   - DynamoDBStore: AWS DynamoDB single-table backend
//
// DynamoDB schema design follows the single-table patterns defined in schema.go.
package store

import (
	"sort"

	"github.com/sicko7947/approvalflow"
)

// sortNewestFirst orders by CreatedAt descending. The sort is stable, so callers
// pass records newest-insertion first to break timestamp ties the same way.
func sortNewestFirst(subs []*approvalflow.Submission) {
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
}

// filterByStatus returns the records in the given status, preserving order
func filterByStatus(subs []*approvalflow.Submission, status approvalflow.Status) []*approvalflow.Submission {
	out := make([]*approvalflow.Submission, 0, len(subs))
	for _, sub := range subs {
		if sub.Status == status {
			out = append(out, sub)
		}
	}
	return out
}

// countStatuses aggregates a collection
func countStatuses(subs []*approvalflow.Submission) approvalflow.StatusCounts {
	var counts approvalflow.StatusCounts
	for _, sub := range subs {
		counts.Add(sub.Status)
	}
	return counts
}

// reversedClones copies a collection in reverse insertion order
func reversedClones(subs []*approvalflow.Submission) []*approvalflow.Submission {
	out := make([]*approvalflow.Submission, 0, len(subs))
	for i := len(subs) - 1; i >= 0; i-- {
		out = append(out, subs[i].Clone())
	}
	return out
}
