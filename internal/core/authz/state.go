package authz

import (
	"errors"
	"time"
)

// State is the authorization lifecycle of the current session.
type State string

const (
	// StateAnonymous means no identity is present.
	StateAnonymous State = "anonymous"
	// StateAuthenticating means an identity is present but its role is unknown.
	StateAuthenticating State = "authenticating"
	// StateResolved means the role query answered.
	StateResolved State = "resolved"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions defines allowed state transitions.
// Key is the current state, value is the list of valid next states.
var ValidTransitions = map[State][]State{
	StateAnonymous:      {StateAuthenticating},
	StateAuthenticating: {StateResolved, StateAnonymous},
	StateResolved:       {StateAnonymous, StateAuthenticating},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	validTargets, ok := ValidTransitions[from]
	if !ok {
		return false
	}

	for _, target := range validTargets {
		if target == to {
			return true
		}
	}
	return false
}

// Transition represents a state change with metadata.
type Transition struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to State, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// IsValid returns true if this transition is allowed by the state machine.
func (t Transition) IsValid() bool {
	return CanTransition(t.From, t.To)
}

// StateDescription returns a human-readable description of a state.
func StateDescription(s State) string {
	switch s {
	case StateAnonymous:
		return "Anonymous - no identity, public surface only"
	case StateAuthenticating:
		return "Authenticating - identity present, role not yet resolved"
	case StateResolved:
		return "Resolved - role known for this session"
	default:
		return "Unknown state"
	}
}

// View is the terminal screen a session state maps to.
type View string

const (
	ViewLoginRequired View = "login-required"
	ViewPending       View = "pending"
	ViewAccessDenied  View = "access-denied"
	ViewAdmin         View = "admin"
)
