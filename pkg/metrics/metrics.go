package metrics

import (
	"io"
	"time"

	"github.com/prometheus/common/expfmt"
)

// Status label values.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusError    = "error"
	StatusNoop     = "noop"
)

// RecordRegistryOperation records a registry mutation or query.
func (r *Registry) RecordRegistryOperation(operation, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.RegistryOperationsTotal.WithLabelValues(operation, status).Inc()
	r.RegistryOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRejection counts a failed validation by reason code.
func (r *Registry) RecordRejection(reason string) {
	if r == nil {
		return
	}
	r.ValidationRejectionsTotal.WithLabelValues(reason).Inc()
}

// SetConnections sets the live connection count.
func (r *Registry) SetConnections(n int) {
	if r == nil {
		return
	}
	r.ConnectionsTotal.Set(float64(n))
}

// RecordDragSession counts a finished drag session. outcome is "completed"
// or the cancel reason.
func (r *Registry) RecordDragSession(outcome string) {
	if r == nil {
		return
	}
	r.DragSessionsTotal.WithLabelValues(outcome).Inc()
}

// RecordSnapSearch records one nearest-port search.
func (r *Registry) RecordSnapSearch(duration time.Duration, scanned int) {
	if r == nil {
		return
	}
	r.SnapSearchDuration.Observe(duration.Seconds())
	r.SnapCandidatesScanned.Observe(float64(scanned))
}

// RecordGeometryRequest records a path computation.
func (r *Registry) RecordGeometryRequest(style, status string) {
	if r == nil {
		return
	}
	r.GeometryRequestsTotal.WithLabelValues(style, status).Inc()
}

// RecordEvent counts an emitted event.
func (r *Registry) RecordEvent(kind string) {
	if r == nil {
		return
	}
	r.EventsEmittedTotal.WithLabelValues(kind).Inc()
}

// WriteText writes every metric in the Prometheus text exposition format.
func (r *Registry) WriteText(w io.Writer) error {
	if r == nil {
		return nil
	}
	families, err := r.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
