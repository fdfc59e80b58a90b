package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSessionMetrics() {
	r.DragSessionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowlink_drag_sessions_total",
			Help: "Total number of finished drag sessions by outcome",
		},
		[]string{"outcome"},
	)

	r.SnapSearchDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowlink_snap_search_duration_seconds",
			Help:    "Nearest-port search duration per pointer move",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		},
	)

	r.SnapCandidatesScanned = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowlink_snap_candidates_scanned",
			Help:    "Ports whose exact distance was computed per pointer move",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 64, 256},
		},
	)
}
