// Package lifecycle defines the academic lesson state machine: the state
// enum, the display-status projection, and the table of allowed transitions
// per operation.
//
// A lesson carries a single State. The "status" shown in listings and used
// for filtering is never stored independently; it is always derived with
// DisplayStatus so the two can not drift apart.
package lifecycle

// State is the lifecycle position of an academic lesson.
type State string

const (
	Draft             State = "draft"
	Proposed          State = "proposed"
	InDevelopment     State = "in_development"
	ReviewRequested   State = "review_requested"
	UnderReview       State = "under_review"
	Approved          State = "approved"
	Rejected          State = "rejected"
	Completed         State = "completed"
	Graded            State = "graded"
	ReadyForMigration State = "ready_for_migration"
)

// validTargets is the enum accepted by the generic state update. Graded is
// deliberately absent: only the grade operation can produce it.
var validTargets = map[State]struct{}{
	Draft:             {},
	Proposed:          {},
	InDevelopment:     {},
	ReviewRequested:   {},
	UnderReview:       {},
	Approved:          {},
	Rejected:          {},
	Completed:         {},
	ReadyForMigration: {},
}

var known = map[State]struct{}{
	Draft: {}, Proposed: {}, InDevelopment: {}, ReviewRequested: {}, UnderReview: {},
	Approved: {}, Rejected: {}, Completed: {}, Graded: {}, ReadyForMigration: {},
}

// ParseTarget validates a user-supplied target state for the generic update.
func ParseTarget(s string) (State, bool) {
	st := State(s)
	_, ok := validTargets[st]
	return st, ok
}

func isValidTarget(s State) bool {
	_, ok := validTargets[s]
	return ok
}

// IsKnown reports whether s is any lifecycle state, including graded.
func IsKnown(s State) bool {
	_, ok := known[s]
	return ok
}

// ValidTargets returns the generic-update enum in lifecycle order.
func ValidTargets() []State {
	return []State{
		Draft, Proposed, InDevelopment, ReviewRequested, UnderReview,
		Approved, Rejected, Completed, ReadyForMigration,
	}
}

// DisplayStatus projects a state onto the coarser status vocabulary used
// for display and filtering. Review sub-states are still "in development"
// from the group's point of view.
func DisplayStatus(s State) string {
	switch s {
	case ReviewRequested, UnderReview:
		return string(InDevelopment)
	default:
		return string(s)
	}
}

// StatusesFor returns the states whose display status equals status.
// Used to translate a status filter into a state query.
func StatusesFor(status string) []State {
	var out []State
	for _, s := range AllStates() {
		if DisplayStatus(s) == status {
			out = append(out, s)
		}
	}
	return out
}

// AllStates returns every state, graded included, in lifecycle order.
func AllStates() []State {
	return []State{
		Draft, Proposed, InDevelopment, ReviewRequested, UnderReview,
		Approved, Rejected, Completed, Graded, ReadyForMigration,
	}
}
