package constraints

import (
	"fmt"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

// CapacityConstraint enforces the target port's MaxConnections
// (0 = unlimited).
type CapacityConstraint struct{}

// Name returns the constraint name
func (CapacityConstraint) Name() string { return "Capacity" }

// Check compares the target's current incoming count against its limit.
func (cc CapacityConstraint) Check(graph GraphReader, c *Candidate) *Violation {
	if c.Target.IsUnbounded() {
		return nil
	}
	count := graph.IncomingCount(c.Target.ID)
	if count < c.Target.MaxConnections {
		return nil
	}
	return &Violation{
		Reason:     diagram.ReasonCapacityExceeded,
		Constraint: cc.Name(),
		Message: fmt.Sprintf("input %q already has %d of %d connection(s)",
			c.Target.ID, count, c.Target.MaxConnections),
	}
}
