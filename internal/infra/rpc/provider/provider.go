// Package provider implements transports to the remote registry service.
//
// This package contains:
//   - Provider interface: core abstraction for a registry endpoint
//   - HTTPProvider: JSON-RPC over HTTP implementation
//   - GRPCHealthProvider: gRPC health-check transport
//   - Fault: a call failure raised by the service outside the typed result channel
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrServiceUnavailable is returned when the registry handle has not been
// initialized yet or has been closed.
var ErrServiceUnavailable = errors.New("registry service not available")

// Provider defines the core interface for a registry endpoint.
type Provider interface {
	// GetName returns provider identifier (e.g., "registry-http")
	GetName() string

	// GetHealth summarizes recent transport outcomes
	GetHealth() HealthStatus

	// Call invokes a registry method and returns the raw result payload
	Call(ctx context.Context, method string, params []any) (json.RawMessage, error)

	// Close cleans up resources
	Close() error
}

// HealthChecker is implemented by transports that can probe liveness.
type HealthChecker interface {
	GetName() string
	Check(ctx context.Context) error
}

// Fault is a failure the service raised instead of returning a value. Its
// message carries the authorization text (e.g. "Unauthorized: Only the Boss
// can perform this action") that callers pattern-match on.
type Fault struct {
	Code    int
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("registry fault %d: %s", f.Code, f.Message)
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available bool
	// Latency is a moving average over answered calls.
	Latency       time.Duration
	ErrorRate     float64
	Samples       int
	LastSuccessAt time.Time
	LastFailureAt time.Time
}
