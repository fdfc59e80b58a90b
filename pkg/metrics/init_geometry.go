package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGeometryMetrics() {
	r.GeometryRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowlink_geometry_requests_total",
			Help: "Total number of connection path computations",
		},
		[]string{"style", "status"},
	)

	r.EventsEmittedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowlink_events_emitted_total",
			Help: "Total number of lifecycle events emitted by kind",
		},
		[]string{"kind"},
	)
}
