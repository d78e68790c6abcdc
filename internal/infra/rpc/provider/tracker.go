package provider

import (
	"sync"
	"time"
)

// trackerWindow is how many recent transport outcomes the health figures
// are computed over.
const trackerWindow = 20

// unavailableRate marks an endpoint unavailable once more than half of the
// recent calls failed at the transport level.
const unavailableRate = 0.5

// latencyWeight is the smoothing factor of the latency average.
const latencyWeight = 0.2

// Tracker records transport outcomes of one endpoint. The figures cover a
// sliding window of recent calls, so an endpoint that answers again becomes
// available again without a restart.
type Tracker struct {
	name string

	mu          sync.RWMutex
	failed      [trackerWindow]bool
	samples     int
	next        int
	latency     time.Duration
	lastSuccess time.Time
	lastFailure time.Time
}

func NewTracker(name string) *Tracker {
	return &Tracker{name: name}
}

func (t *Tracker) GetName() string {
	return t.name
}

// GetHealth summarizes the window. An endpoint without samples counts as
// available.
func (t *Tracker) GetHealth() HealthStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	failures := 0
	for i := 0; i < t.samples; i++ {
		if t.failed[i] {
			failures++
		}
	}
	h := HealthStatus{
		Available:     true,
		Latency:       t.latency,
		Samples:       t.samples,
		LastSuccessAt: t.lastSuccess,
		LastFailureAt: t.lastFailure,
	}
	if t.samples > 0 {
		h.ErrorRate = float64(failures) / float64(t.samples)
		h.Available = h.ErrorRate <= unavailableRate
	}
	return h
}

// RecordSuccess records an answered call. Faults raised by the service are
// answers too.
func (t *Tracker) RecordSuccess(latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.push(false)
	t.lastSuccess = time.Now()
	if t.latency == 0 {
		t.latency = latency
	} else {
		t.latency += time.Duration(latencyWeight * float64(latency-t.latency))
	}
}

// RecordFailure records a call that never reached an answer.
func (t *Tracker) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.push(true)
	t.lastFailure = time.Now()
}

func (t *Tracker) push(failed bool) {
	t.failed[t.next] = failed
	t.next = (t.next + 1) % trackerWindow
	if t.samples < trackerWindow {
		t.samples++
	}
}
