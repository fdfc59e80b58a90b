package constraints

import (
	"fmt"

	"github.com/dd0wney/cluso-flowlink/pkg/algorithms"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

// AcyclicConstraint rejects edges that would close a cycle in the node graph.
type AcyclicConstraint struct{}

// Name returns the constraint name
func (AcyclicConstraint) Name() string { return "Acyclic" }

// Check walks from the target node looking for the source node.
func (ac AcyclicConstraint) Check(graph GraphReader, c *Candidate) *Violation {
	if !algorithms.WouldCreateCycle(graph, c.SourceNode.ID, c.TargetNode.ID) {
		return nil
	}
	return &Violation{
		Reason:     diagram.ReasonCycleDetected,
		Constraint: ac.Name(),
		Message:    fmt.Sprintf("node %q already reaches node %q", c.TargetNode.ID, c.SourceNode.ID),
	}
}
