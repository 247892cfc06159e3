// Package lifecycle defines the per-resource state machines that gate record
// mutation. Each resource kind instantiates a Table; handlers consult it
// before applying generic updates or status transitions.
package lifecycle

import "errors"

var (
	// ErrLocked means the record's current state rejects general field updates.
	ErrLocked = errors.New("record state does not permit updates")
	// ErrBadTransition means the requested state change is not in the table.
	ErrBadTransition = errors.New("invalid status transition")
	// ErrUnknownState means the state is not part of the resource's table.
	ErrUnknownState = errors.New("unknown status")
)

// State is one lifecycle state of a resource.
type State string

// Table is a resource's transition table. Initial is assigned at creation and
// never chosen by the caller. Locked states reject generic updates; narrow
// allowlisted transition operations remain permitted.
type Table struct {
	Initial     State
	Transitions map[State][]State
	Locked      map[State]bool
}

// Valid reports whether s appears in the table.
func (t Table) Valid(s State) bool {
	if s == t.Initial {
		return true
	}
	if _, ok := t.Transitions[s]; ok {
		return true
	}
	for _, targets := range t.Transitions {
		for _, target := range targets {
			if target == s {
				return true
			}
		}
	}
	return false
}

// IsLocked reports whether s rejects general field updates.
func (t Table) IsLocked(s State) bool {
	return t.Locked[s]
}

// GuardUpdate returns ErrLocked when a generic update against state s must be
// rejected.
func (t Table) GuardUpdate(s State) error {
	if t.IsLocked(s) {
		return ErrLocked
	}
	return nil
}

// GuardTransition validates a state change through a dedicated operation.
// Reversals and skips not present in the table are rejected.
func (t Table) GuardTransition(from, to State) error {
	if !t.Valid(from) {
		return ErrUnknownState
	}
	for _, target := range t.Transitions[from] {
		if target == to {
			return nil
		}
	}
	return ErrBadTransition
}
