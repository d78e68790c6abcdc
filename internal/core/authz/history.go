package authz

import "sync"

// historySize bounds the number of retained transitions.
const historySize = 10

// History keeps the most recent state transitions of a gate.
type History struct {
	mu          sync.Mutex
	transitions []Transition
}

// Record appends t, dropping the oldest entry when full.
func (h *History) Record(t Transition) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.transitions) >= historySize {
		copy(h.transitions, h.transitions[1:])
		h.transitions[len(h.transitions)-1] = t
	} else {
		h.transitions = append(h.transitions, t)
	}
}

// Transitions returns a copy of the retained transitions, oldest first.
func (h *History) Transitions() []Transition {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Transition, len(h.transitions))
	copy(out, h.transitions)
	return out
}

// Reset clears the history.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transitions = h.transitions[:0]
}
