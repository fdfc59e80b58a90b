package health

import (
	"fmt"
	"sync"
)

// EventDeliveryCheck reports degraded when asynchronous event subscribers
// missed events since the previous run. dropped must be a running total.
func EventDeliveryCheck(dropped func() uint64) CheckFunc {
	var (
		mu   sync.Mutex
		last uint64
	)
	return func() Check {
		n := dropped()

		mu.Lock()
		missed := n - last
		if n < last {
			missed = n
		}
		last = n
		mu.Unlock()

		details := map[string]any{"dropped_total": n}
		if missed > 0 {
			return Check{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("subscribers missed %d events since last check", missed),
				Details: details,
			}
		}
		return Check{Status: StatusHealthy, Message: "events delivered", Details: details}
	}
}

// Stats is a point-in-time count of the diagram a server holds.
type Stats struct {
	Nodes       int
	Ports       int
	Connections int
	Cyclic      bool
	DragPhase   string
}

// DiagramCheck reports the diagram's size. It is unhealthy only when stats
// cannot be read.
func DiagramCheck(stats func() (Stats, error)) CheckFunc {
	return func() Check {
		s, err := stats()
		if err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{
			Status: StatusHealthy,
			Details: map[string]any{
				"nodes":       s.Nodes,
				"ports":       s.Ports,
				"connections": s.Connections,
				"cyclic":      s.Cyclic,
				"drag_phase":  s.DragPhase,
			},
		}
	}
}

// ErrorCheck is unhealthy while check returns an error.
func ErrorCheck(check func() error) CheckFunc {
	return func() Check {
		if err := check(); err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{Status: StatusHealthy}
	}
}
