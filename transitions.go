package approvalflow

// Transition is a directed move between two statuses
type Transition struct {
	From Status
	To   Status
}

// TransitionPolicy records which status moves are allowed
type TransitionPolicy map[Transition]bool

// DefaultTransitionPolicy lets a manager move a submission between any two states,
// including reversing an earlier decision.
func DefaultTransitionPolicy() TransitionPolicy {
	return TransitionPolicy{
		{From: StatusPending, To: StatusApproved}:  true,
		{From: StatusPending, To: StatusRejected}:  true,
		{From: StatusApproved, To: StatusRejected}: true,
		{From: StatusRejected, To: StatusApproved}: true,
		{From: StatusApproved, To: StatusPending}:  true,
		{From: StatusRejected, To: StatusPending}:  true,
	}
}

// Allows reports whether from -> to is permitted. Re-applying the current status is always allowed.
func (p TransitionPolicy) Allows(from, to Status) bool {
	if from == to {
		return true
	}
	return p[Transition{From: from, To: to}]
}
