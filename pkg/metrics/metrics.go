// Package metrics exposes prometheus instrumentation for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles the engine's prometheus collectors around a single
// prometheus registry so tests can create isolated instances.
type Registry struct {
	registry *prometheus.Registry

	// AnalysesTotal counts incident analyses by outcome
	// (ok, not_found, store_unavailable, error).
	AnalysesTotal *prometheus.CounterVec

	// AnalysisDuration tracks end-to-end analysis latency.
	AnalysisDuration prometheus.Histogram

	// StoreErrorsTotal counts entity store failures by operation.
	StoreErrorsTotal *prometheus.CounterVec

	// MalformedTopologyTotal counts non-fatal topology defects observed
	// during traversal (self_loop, type_mismatch, unknown_relationship).
	MalformedTopologyTotal *prometheus.CounterVec

	// HTTPRequestsTotal counts API requests by method, path pattern and status.
	HTTPRequestsTotal *prometheus.CounterVec
}

// NewRegistry creates a Registry with all collectors registered on a fresh
// prometheus registry.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.AnalysesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextgraph_incident_analyses_total",
			Help: "Total incident analyses by outcome",
		},
		[]string{"outcome"},
	)

	r.AnalysisDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contextgraph_incident_analysis_duration_seconds",
			Help:    "Duration of incident analyses in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)

	r.StoreErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextgraph_store_errors_total",
			Help: "Total entity store failures by operation",
		},
		[]string{"operation"},
	)

	r.MalformedTopologyTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextgraph_malformed_topology_total",
			Help: "Non-fatal topology defects observed during traversal",
		},
		[]string{"kind"},
	)

	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "contextgraph_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	return r
}

// Prometheus returns the underlying registry for handler exposition.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}
