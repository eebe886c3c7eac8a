package lifecycle

import "fmt"

// Op names the operation attempting a transition. Scoped operations
// (propose, approve, reject, grade, request export) each own exactly one
// edge. The generic update may move a lesson to any valid target state.
type Op string

const (
	OpPropose       Op = "propose"
	OpApprove       Op = "approve"
	OpReject        Op = "reject"
	OpUpdate        Op = "update"
	OpGrade         Op = "grade"
	OpRequestExport Op = "request_export"
)

// Transition is a single allowed edge.
type Transition struct {
	From State
	To   State
	Op   Op
}

// transitionsTable is the lesson's working path. OpUpdate appears only for
// the leader's in_development → completed step; Check does not consult the
// table for OpUpdate.
var transitionsTable = []Transition{
	{From: Draft, To: Proposed, Op: OpPropose},
	{From: Proposed, To: InDevelopment, Op: OpApprove},
	{From: Proposed, To: Draft, Op: OpReject},
	{From: InDevelopment, To: Completed, Op: OpUpdate},
	{From: Completed, To: Graded, Op: OpGrade},
	{From: Graded, To: ReadyForMigration, Op: OpRequestExport},
}

// Reasons attached to a TransitionError.
const (
	CodeInvalidState      = "invalid_state"
	CodeInvalidTransition = "invalid_transition"
	CodeWrongState        = "wrong_state"
)

// TransitionError is returned when a transition is not allowed. All of its
// causes map to HTTP 400.
type TransitionError struct {
	Code    string `json:"code"`
	From    State  `json:"from"`
	To      State  `json:"to"`
	Op      Op     `json:"op"`
	Message string `json:"message"`
}

func (e *TransitionError) Error() string {
	return e.Message
}

// Check validates moving from → to through op. OpUpdate accepts any target
// in ValidTargets; scoped operations must match their table edge.
func Check(from, to State, op Op) error {
	if !IsKnown(to) || (op == OpUpdate && !isValidTarget(to)) {
		return &TransitionError{
			Code: CodeInvalidState, From: from, To: to, Op: op,
			Message: fmt.Sprintf("estado inválido: %q", to),
		}
	}
	if op == OpUpdate {
		return nil
	}
	for _, t := range transitionsTable {
		if t.Op == op && t.From == from && t.To == to {
			return nil
		}
	}
	// For scoped operations the caller is asking "is the lesson in the
	// state this operation needs?", so report the expected source.
	if exp, ok := sourceFor(op); ok && from != exp {
		return &TransitionError{
			Code: CodeWrongState, From: from, To: to, Op: op,
			Message: fmt.Sprintf("la lección debe estar en estado %q (actual: %q)", exp, from),
		}
	}
	return &TransitionError{
		Code: CodeInvalidTransition, From: from, To: to, Op: op,
		Message: fmt.Sprintf("no se permite pasar de %q a %q", from, to),
	}
}

// TargetFor returns the single destination of a scoped operation.
func TargetFor(op Op) (State, bool) {
	if op == OpUpdate {
		return "", false
	}
	var (
		to    State
		found bool
	)
	for _, t := range transitionsTable {
		if t.Op != op {
			continue
		}
		if found && t.To != to {
			return "", false
		}
		to, found = t.To, true
	}
	return to, found
}

func sourceFor(op Op) (State, bool) {
	if op == OpUpdate {
		return "", false
	}
	for _, t := range transitionsTable {
		if t.Op == op {
			return t.From, true
		}
	}
	return "", false
}

// AllowedFrom lists the next states on the working path from s, without
// duplicates.
func AllowedFrom(s State) []State {
	seen := map[State]bool{}
	var out []State
	for _, t := range transitionsTable {
		if t.From == s && !seen[t.To] {
			seen[t.To] = true
			out = append(out, t.To)
		}
	}
	return out
}

// Reachable returns every state reachable from s along the working path
// (excluding s itself unless a cycle leads back to it).
func Reachable(s State) map[State]bool {
	out := map[State]bool{}
	queue := []State{s}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range AllowedFrom(cur) {
			if !out[next] {
				out[next] = true
				queue = append(queue, next)
			}
		}
	}
	return out
}
