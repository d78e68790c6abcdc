package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/cemetery/internal/indexing/metrics"
	"github.com/vietddude/cemetery/internal/infra/rpc/provider"
	"github.com/vietddude/cemetery/internal/infra/rpc/routing"
)

// CheckAttempts bounds the retries of a single probe.
const CheckAttempts = 2

// minCheckInterval rate-limits probes triggered by HTTP requests.
const minCheckInterval = 10 * time.Second

// checkFunc adapts a function to provider.HealthChecker.
type checkFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (c checkFunc) GetName() string                 { return c.name }
func (c checkFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// CheckFunc wraps fn as a named health checker.
func CheckFunc(name string, fn func(ctx context.Context) error) provider.HealthChecker {
	return checkFunc{name: name, fn: fn}
}

// transportStats is implemented by checkers that know their endpoint's
// recent call record, like the gRPC health provider.
type transportStats interface {
	GetHealth() provider.HealthStatus
}

type trackedCheck struct {
	checkFunc
	stats func() provider.HealthStatus
}

func (c trackedCheck) GetHealth() provider.HealthStatus { return c.stats() }

// TrackedCheck is CheckFunc for a check that travels over a transport whose
// call record stats returns.
func TrackedCheck(name string, fn func(ctx context.Context) error, stats func() provider.HealthStatus) provider.HealthChecker {
	return trackedCheck{checkFunc: checkFunc{name: name, fn: fn}, stats: stats}
}

// Monitor probes the registry and tracks the connection state.
type Monitor struct {
	checkers  []provider.HealthChecker
	scheduler *routing.Scheduler
	onChange  func(ConnectionState)

	lastCheck  time.Time
	lastReport HealthReport
	mu         sync.RWMutex
}

// NewMonitor creates a new health monitor. scheduler may be nil.
func NewMonitor(scheduler *routing.Scheduler, checkers ...provider.HealthChecker) *Monitor {
	if scheduler == nil {
		scheduler = routing.NewScheduler(routing.DefaultRetryConfig)
	}
	return &Monitor{
		checkers:  checkers,
		scheduler: scheduler,
		lastReport: HealthReport{
			SystemStatus: StatusDegraded,
			Connection:   ConnectionChecking,
			Services:     make(map[string]ServiceHealth),
		},
	}
}

// SetChangeCallback registers fn for connection state changes.
func (m *Monitor) SetChangeCallback(fn func(ConnectionState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Connection returns the current connection state.
func (m *Monitor) Connection() ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastReport.Connection
}

// CheckHealth returns the last report, probing again when it is older than
// the minimum interval.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.RLock()
	fresh := !m.lastCheck.IsZero() && time.Since(m.lastCheck) < minCheckInterval
	report := m.lastReport
	m.mu.RUnlock()
	if fresh {
		return report
	}
	return m.Probe(ctx)
}

// Probe runs every checker now.
func (m *Monitor) Probe(ctx context.Context) HealthReport {
	m.setChecking()

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Connection:   ConnectionConnected,
		Services:     make(map[string]ServiceHealth, len(m.checkers)),
	}
	for _, c := range m.checkers {
		h := m.probe(ctx, c)
		report.Services[h.Name] = h

		switch h.Status {
		case StatusCritical:
			report.SystemStatus = StatusCritical
			report.Connection = ConnectionDisconnected
		case StatusDegraded:
			if report.SystemStatus == StatusHealthy {
				report.SystemStatus = StatusDegraded
			}
		}
	}
	if len(m.checkers) == 0 {
		report.SystemStatus = StatusCritical
		report.Connection = ConnectionDisconnected
	}

	if report.Connection == ConnectionConnected {
		metrics.ServiceUp.Set(1)
	} else {
		metrics.ServiceUp.Set(0)
	}

	m.mu.Lock()
	m.lastCheck = time.Now()
	m.lastReport = report
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(report.Connection)
	}
	return report
}

func (m *Monitor) probe(ctx context.Context, c provider.HealthChecker) ServiceHealth {
	h := ServiceHealth{Name: c.GetName(), CheckedAt: time.Now()}
	start := time.Now()
	err := m.scheduler.ExecuteN(ctx, routing.Operation{
		Name: "health-check",
		Invoke: func(ctx context.Context) error {
			h.Attempts++
			return c.Check(ctx)
		},
	}, CheckAttempts)
	h.Latency = time.Since(start)

	var transport *provider.HealthStatus
	if ts, ok := c.(transportStats); ok {
		st := ts.GetHealth()
		transport = &st
		h.Transport = &TransportHealth{
			Available:  st.Available,
			ErrorRate:  st.ErrorRate,
			AvgLatency: st.Latency,
			Samples:    st.Samples,
		}
	}

	switch {
	case err != nil:
		h.Status = StatusCritical
		h.Connection = ConnectionDisconnected
		h.LastError = err.Error()
		slog.Warn("Registry health check failed", "checker", h.Name, "attempts", h.Attempts, "error", err)
	case h.Attempts > 1, transport != nil && !transport.Available:
		// Answering, but recent calls mostly failed.
		h.Status = StatusDegraded
		h.Connection = ConnectionConnected
	default:
		h.Status = StatusHealthy
		h.Connection = ConnectionConnected
	}
	return h
}

func (m *Monitor) setChecking() {
	m.mu.Lock()
	changed := m.lastReport.Connection != ConnectionChecking
	m.lastReport.Connection = ConnectionChecking
	cb := m.onChange
	m.mu.Unlock()
	if changed && cb != nil {
		cb(ConnectionChecking)
	}
}

// Run probes every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}
