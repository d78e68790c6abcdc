// Package rpc provides the transport client for the remote cemetery registry.
//
// This package offers:
//   - A single registry endpoint behind the Provider interface
//   - Failure classification (connectivity, domain, authorization)
//   - Retry scheduling with capped exponential backoff
//   - Call metrics per method and failure class
//
// # Quick Start
//
//	import "github.com/vietddude/cemetery/internal/infra/rpc"
//
//	p := rpc.NewHTTPProvider("registry", endpoint, 30*time.Second)
//	client := rpc.NewClient(p)
//	scheduler := rpc.NewScheduler(rpc.DefaultRetryConfig)
//
//	var alleys []domain.Alley
//	err := scheduler.Execute(ctx, client.Operation("getAlleys", nil, &alleys))
//
// # Package Structure
//
//   - provider/ - Provider implementations (HTTPProvider, GRPCHealthProvider)
//   - routing/  - Failure classification, retry scheduling, presentation
//
// Most types are re-exported at the root level for convenience.
package rpc

import (
	"time"

	"github.com/vietddude/cemetery/internal/infra/rpc/provider"
	"github.com/vietddude/cemetery/internal/infra/rpc/routing"
)

// =============================================================================
// Re-exported types from provider package
// =============================================================================

// Provider is the core interface for registry endpoints.
type Provider = provider.Provider

// HTTPProvider implements Provider for JSON-RPC over HTTP.
type HTTPProvider = provider.HTTPProvider

// GRPCHealthProvider probes the gRPC health service.
type GRPCHealthProvider = provider.GRPCHealthProvider

// HealthStatus represents the health state of a provider.
type HealthStatus = provider.HealthStatus

// Fault is a failure raised by the service outside the result union.
type Fault = provider.Fault

// ErrServiceUnavailable is returned before the registry handle is ready.
var ErrServiceUnavailable = provider.ErrServiceUnavailable

// NewHTTPProvider creates a new HTTP-based registry provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return provider.NewHTTPProvider(name, endpoint, timeout)
}

// =============================================================================
// Re-exported types from routing package
// =============================================================================

// Operation is a unit of remote work the scheduler may re-invoke.
type Operation = routing.Operation

// Scheduler retries connectivity failures.
type Scheduler = routing.Scheduler

// RetryConfig defines retry behavior.
type RetryConfig = routing.RetryConfig

// FailureClass is the result of Classify.
type FailureClass = routing.FailureClass

// DefaultRetryConfig provides sensible retry defaults.
var DefaultRetryConfig = routing.DefaultRetryConfig

// NewScheduler creates a retry scheduler.
func NewScheduler(config RetryConfig) *Scheduler {
	return routing.NewScheduler(config)
}

// Classify assigns a failure to exactly one class.
var Classify = routing.Classify
