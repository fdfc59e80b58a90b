// Package constraints decides whether a proposed connection is legal.
package constraints

import (
	"github.com/dd0wney/cluso-flowlink/pkg/algorithms"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

// GraphReader defines the read-only operations needed to validate a proposal.
// The registry implements it over its live state; tests use small fakes.
type GraphReader interface {
	Node(id string) (*diagram.Node, bool)
	Port(id string) (*diagram.Port, bool)

	// IncomingCount is the number of connections targeting portID.
	IncomingCount(portID string) int
	// HasConnection reports whether source→target is already connected.
	HasConnection(sourcePortID, targetPortID string) bool

	// Node-level adjacency for cycle checks.
	algorithms.Adjacency
}

// Candidate is the proposal being checked with its endpoints looked up.
// The first constraint fills in the ports and nodes; later ones read them.
type Candidate struct {
	Proposal   diagram.Proposal
	Source     *diagram.Port
	Target     *diagram.Port
	SourceNode *diagram.Node
	TargetNode *diagram.Node
}

// Violation is a failed constraint.
type Violation struct {
	Reason     diagram.ReasonCode
	Constraint string
	Message    string
}

// Constraint is one rule in the validator's ordered list.
type Constraint interface {
	// Check returns nil when the candidate passes.
	Check(graph GraphReader, c *Candidate) *Violation

	// Name returns a human-readable name for the constraint
	Name() string
}

// Result is the outcome of a validation query.
type Result struct {
	Valid      bool               `json:"valid"`
	Reason     diagram.ReasonCode `json:"reason,omitempty"`
	Message    string             `json:"message,omitempty"`
	Constraint string             `json:"constraint,omitempty"`
}

// Err converts an invalid result into a *diagram.ReasonError; valid results
// return nil.
func (r *Result) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	return &diagram.ReasonError{Code: r.Reason, Message: r.Message}
}

func valid() *Result {
	return &Result{Valid: true}
}
