package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRegistryMetrics() {
	r.ConnectionsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowlink_connections_total",
			Help: "Current number of connections in the registry",
		},
	)

	r.RegistryOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowlink_registry_operations_total",
			Help: "Total number of registry operations",
		},
		[]string{"operation", "status"},
	)

	r.RegistryOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowlink_registry_operation_duration_seconds",
			Help:    "Registry operation duration in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
		[]string{"operation"},
	)

	r.ValidationRejectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowlink_validation_rejections_total",
			Help: "Total number of rejected connection proposals by reason code",
		},
		[]string{"reason"},
	)
}
