package constraints

import (
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

// Options toggles the configurable rules.
type Options struct {
	AllowSelfLoop  bool
	EnforceAcyclic bool
}

// Validator runs an ordered list of constraints; the first violation wins.
type Validator struct {
	constraints []Constraint
}

// NewValidator creates a validator with the standard rule order. The cycle
// rule is only included when opts.EnforceAcyclic is set.
func NewValidator(opts Options) *Validator {
	v := &Validator{
		constraints: []Constraint{
			EndpointsConstraint{},
			SelfLoopConstraint{Allow: opts.AllowSelfLoop},
			DirectionConstraint{},
			DataTypeConstraint{},
			CapacityConstraint{},
			UniqueEdgeConstraint{},
		},
	}
	if opts.EnforceAcyclic {
		v.constraints = append(v.constraints, AcyclicConstraint{})
	}
	return v
}

// AddConstraint appends a host-specific constraint after the built-in rules.
func (v *Validator) AddConstraint(constraint Constraint) {
	v.constraints = append(v.constraints, constraint)
}

// GetConstraints returns all constraints in the validator
func (v *Validator) GetConstraints() []Constraint {
	return v.constraints
}

// Validate checks p against graph. It never mutates graph.
func (v *Validator) Validate(graph GraphReader, p diagram.Proposal) *Result {
	c := &Candidate{Proposal: p}
	for _, constraint := range v.constraints {
		if violation := constraint.Check(graph, c); violation != nil {
			return &Result{
				Valid:      false,
				Reason:     violation.Reason,
				Message:    violation.Message,
				Constraint: violation.Constraint,
			}
		}
	}
	return valid()
}
