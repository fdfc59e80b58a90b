package constraints

import (
	"fmt"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

// EndpointsConstraint requires both ports to exist and to belong to existing
// nodes. It fills in the candidate for the constraints that follow.
type EndpointsConstraint struct{}

// Name returns the constraint name
func (EndpointsConstraint) Name() string { return "Endpoints" }

// Check looks up both ports and their nodes.
func (ec EndpointsConstraint) Check(graph GraphReader, c *Candidate) *Violation {
	for _, end := range []struct {
		role string
		id   string
		port **diagram.Port
		node **diagram.Node
	}{
		{"source", c.Proposal.SourcePortID, &c.Source, &c.SourceNode},
		{"target", c.Proposal.TargetPortID, &c.Target, &c.TargetNode},
	} {
		port, ok := graph.Port(end.id)
		if !ok {
			return ec.violation(fmt.Sprintf("%s port %q does not exist", end.role, end.id))
		}
		node, ok := graph.Node(port.NodeID)
		if !ok {
			return ec.violation(fmt.Sprintf("%s port %q belongs to missing node %q", end.role, end.id, port.NodeID))
		}
		*end.port, *end.node = port, node
	}
	return nil
}

func (ec EndpointsConstraint) violation(msg string) *Violation {
	return &Violation{Reason: diagram.ReasonPortNotFound, Constraint: ec.Name(), Message: msg}
}

// SelfLoopConstraint forbids connecting a node to itself unless Allow is set.
type SelfLoopConstraint struct {
	Allow bool
}

// Name returns the constraint name
func (SelfLoopConstraint) Name() string { return "SelfLoop" }

func (sc SelfLoopConstraint) Check(_ GraphReader, c *Candidate) *Violation {
	if sc.Allow || c.SourceNode.ID != c.TargetNode.ID {
		return nil
	}
	return &Violation{
		Reason:     diagram.ReasonSelfLoop,
		Constraint: sc.Name(),
		Message:    fmt.Sprintf("ports %q and %q are both on node %q", c.Source.ID, c.Target.ID, c.SourceNode.ID),
	}
}

// DirectionConstraint requires an output source and an input target.
type DirectionConstraint struct{}

// Name returns the constraint name
func (DirectionConstraint) Name() string { return "Direction" }

func (dc DirectionConstraint) Check(_ GraphReader, c *Candidate) *Violation {
	if c.Source.Direction == diagram.DirectionOutput && c.Target.Direction == diagram.DirectionInput {
		return nil
	}
	return &Violation{
		Reason:     diagram.ReasonDirectionMismatch,
		Constraint: dc.Name(),
		Message: fmt.Sprintf("source %q is %s and target %q is %s; want output to input",
			c.Source.ID, c.Source.Direction, c.Target.ID, c.Target.Direction),
	}
}

// DataTypeConstraint requires equal data types, or "any" on either side.
type DataTypeConstraint struct{}

// Name returns the constraint name
func (DataTypeConstraint) Name() string { return "DataType" }

func (tc DataTypeConstraint) Check(_ GraphReader, c *Candidate) *Violation {
	if c.Source.AcceptsType(c.Target) {
		return nil
	}
	return &Violation{
		Reason:     diagram.ReasonTypeMismatch,
		Constraint: tc.Name(),
		Message:    fmt.Sprintf("cannot connect %s output to %s input", c.Source.DataType, c.Target.DataType),
	}
}
