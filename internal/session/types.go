package session

import (
	"time"
)

// Action is the kind of a log event.
type Action string

const (
	ActionStart Action = "Start"
	ActionEnd   Action = "End"
)

// ParseAction maps the literal action token of a log line to an Action.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionStart:
		return ActionStart, true
	case ActionEnd:
		return ActionEnd, true
	}
	return "", false
}

// Event is one parsed log line.
type Event struct {
	Time     time.Time
	Username string
	Action   Action
}

// Entry is an event stripped of its username, as stored in a user's log.
type Entry struct {
	Time   time.Time
	Action Action
}

// Log holds one user's entries in arrival order.
type Log []Entry

// Bounds are the earliest and latest timestamps seen across all users.
type Bounds struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// Summary is the reconciled result for a single user.
type Summary struct {
	Sessions     int     `json:"sessions" yaml:"sessions"`
	TotalSeconds float64 `json:"total_seconds" yaml:"total_seconds"`

	Matched        int `json:"matched,omitempty" yaml:"matched,omitempty"`
	DanglingStarts int `json:"dangling_starts,omitempty" yaml:"dangling_starts,omitempty"`
	DanglingEnds   int `json:"dangling_ends,omitempty" yaml:"dangling_ends,omitempty"`
}

// Report maps usernames to their summaries. Only users with at least one
// session are present.
type Report map[string]Summary
