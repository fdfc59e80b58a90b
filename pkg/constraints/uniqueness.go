package constraints

import (
	"fmt"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

// UniqueEdgeConstraint forbids a second connection between the same pair of
// ports.
type UniqueEdgeConstraint struct{}

// Name returns the constraint name
func (UniqueEdgeConstraint) Name() string { return "UniqueEdge" }

func (uc UniqueEdgeConstraint) Check(graph GraphReader, c *Candidate) *Violation {
	if !graph.HasConnection(c.Source.ID, c.Target.ID) {
		return nil
	}
	return &Violation{
		Reason:     diagram.ReasonDuplicateEdge,
		Constraint: uc.Name(),
		Message:    fmt.Sprintf("%q is already connected to %q", c.Source.ID, c.Target.ID),
	}
}
