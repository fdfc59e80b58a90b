// Package metrics holds the Prometheus instruments for the connection engine.
// A nil *Registry is valid everywhere and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the engine
type Registry struct {
	// Registry (connection store) metrics
	ConnectionsTotal          prometheus.Gauge
	RegistryOperationsTotal   *prometheus.CounterVec
	RegistryOperationDuration *prometheus.HistogramVec
	ValidationRejectionsTotal *prometheus.CounterVec

	// Drag session metrics
	DragSessionsTotal     *prometheus.CounterVec
	SnapSearchDuration    prometheus.Histogram
	SnapCandidatesScanned prometheus.Histogram

	// Geometry and event metrics
	GeometryRequestsTotal *prometheus.CounterVec
	EventsEmittedTotal    *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized.
// Each call uses its own Prometheus registry, so engines never share series.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initRegistryMetrics()
	r.initSessionMetrics()
	r.initGeometryMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
