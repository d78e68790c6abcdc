// Package health provides registry connectivity monitoring and status reporting.
package health

import "time"

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ConnectionState is the connection indicator shown to users.
type ConnectionState string

const (
	ConnectionChecking     ConnectionState = "checking"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionDisconnected ConnectionState = "disconnected"
)

// ServiceHealth contains the last probe result for one checker.
type ServiceHealth struct {
	Name       string          `json:"name"`
	Status     SystemStatus    `json:"status"`
	Connection ConnectionState `json:"connection"`
	Attempts   int             `json:"attempts"`
	Latency    time.Duration   `json:"latency_ns"`
	LastError  string          `json:"last_error,omitempty"`
	CheckedAt  time.Time       `json:"checked_at"`
	// Transport is set for checkers that track their own call outcomes.
	Transport *TransportHealth `json:"transport,omitempty"`
}

// TransportHealth is the recent call record of the endpoint behind a checker.
type TransportHealth struct {
	Available  bool          `json:"available"`
	ErrorRate  float64       `json:"error_rate"`
	AvgLatency time.Duration `json:"avg_latency_ns"`
	Samples    int           `json:"samples"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus             `json:"system_status"`
	Connection   ConnectionState          `json:"connection"`
	Services     map[string]ServiceHealth `json:"services"`
}
