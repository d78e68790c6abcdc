package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCCallsTotal tracks registry calls per method
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_rpc_calls_total",
			Help: "Total number of registry calls",
		},
		[]string{"provider", "method"},
	)

	// RPCErrorsTotal tracks registry failures per method and failure class
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_rpc_errors_total",
			Help: "Total number of failed registry calls",
		},
		[]string{"provider", "method", "class"},
	)

	// RPCLatency tracks registry call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registry_rpc_latency_seconds",
			Help:    "Registry call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "method"},
	)

	// RetriesTotal counts connectivity retries scheduled per operation
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_retries_total",
			Help: "Total number of retries scheduled after connectivity failures",
		},
		[]string{"operation"},
	)

	// CacheRequestsTotal tracks cache lookups by category and outcome (hit, miss, shared)
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_cache_requests_total",
			Help: "Total number of cache lookups",
		},
		[]string{"category", "result"},
	)

	// CacheInvalidationsTotal tracks invalidations triggered by mutations
	CacheInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_cache_invalidations_total",
			Help: "Total number of cache category invalidations",
		},
		[]string{"mutation", "category"},
	)

	// IndexBuildsTotal tracks search index maintenance by surface and mode
	IndexBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_search_index_builds_total",
			Help: "Total number of search index builds",
		},
		[]string{"surface", "mode"},
	)

	// AuthTransitionsTotal tracks authorization state changes
	AuthTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_auth_transitions_total",
			Help: "Total number of authorization state transitions",
		},
		[]string{"from", "to"},
	)

	// ServiceUp is 1 while the last health check succeeded
	ServiceUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_service_up",
			Help: "Whether the last registry health check succeeded",
		},
	)
)
