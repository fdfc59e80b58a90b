// Package geometry computes renderer-agnostic connector paths between two
// anchor points and positions along them. Every function is pure.
package geometry

import (
	"math"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

// DefaultCurvature is the bezier control-point factor k.
const DefaultCurvature = 0.5

// Default parameters for decorations placed along a path.
const (
	LabelT     = 0.5
	ConditionT = 0.25
)

// PathDescriptor describes a connection's route.
//
// For straight and orthogonal styles Points is a polyline. For bezier it is
// the cubic's [start, cp1, cp2, end].
type PathDescriptor struct {
	Style  diagram.Style   `json:"style"`
	Points []diagram.Point `json:"points"`
}

// Start returns the first point of the path.
func (d PathDescriptor) Start() diagram.Point {
	if len(d.Points) == 0 {
		return diagram.Point{}
	}
	return d.Points[0]
}

// End returns the last point of the path.
func (d PathDescriptor) End() diagram.Point {
	if len(d.Points) == 0 {
		return diagram.Point{}
	}
	return d.Points[len(d.Points)-1]
}

// Options tune path construction.
type Options struct {
	Curvature float64
}

// Option mutates Options.
type Option func(*Options)

// WithCurvature overrides the bezier factor k.
func WithCurvature(k float64) Option {
	return func(o *Options) {
		o.Curvature = k
	}
}

// Path builds the descriptor for style between start and end. An empty style
// means bezier.
func Path(start, end diagram.Point, style diagram.Style, opts ...Option) (PathDescriptor, error) {
	o := Options{Curvature: DefaultCurvature}
	for _, opt := range opts {
		opt(&o)
	}

	if !start.IsFinite() || !end.IsFinite() {
		return PathDescriptor{}, diagram.NewReasonError(diagram.ReasonInvalidGeometry,
			"non-finite endpoint (%v, %v) -> (%v, %v)", start.X, start.Y, end.X, end.Y)
	}
	if math.IsNaN(o.Curvature) || math.IsInf(o.Curvature, 0) || o.Curvature < 0 {
		return PathDescriptor{}, diagram.NewReasonError(diagram.ReasonInvalidGeometry,
			"curvature must be a finite non-negative number, got %v", o.Curvature)
	}

	switch style.OrDefault() {
	case diagram.StyleStraight:
		return PathDescriptor{
			Style:  diagram.StyleStraight,
			Points: []diagram.Point{start, end},
		}, nil

	case diagram.StyleOrthogonal:
		mid := (start.X + end.X) / 2
		return PathDescriptor{
			Style: diagram.StyleOrthogonal,
			Points: []diagram.Point{
				start,
				{X: mid, Y: start.Y},
				{X: mid, Y: end.Y},
				end,
			},
		}, nil

	case diagram.StyleBezier:
		offset := o.Curvature * math.Abs(end.X-start.X)
		return PathDescriptor{
			Style: diagram.StyleBezier,
			Points: []diagram.Point{
				start,
				{X: start.X + offset, Y: start.Y},
				{X: end.X - offset, Y: end.Y},
				end,
			},
		}, nil

	default:
		return PathDescriptor{}, diagram.NewReasonError(diagram.ReasonInvalidGeometry,
			"unknown connection style %q", style)
	}
}

// ControlPoints returns the bezier control points of d.
func (d PathDescriptor) ControlPoints() (cp1, cp2 diagram.Point, ok bool) {
	if d.Style != diagram.StyleBezier || len(d.Points) != 4 {
		return diagram.Point{}, diagram.Point{}, false
	}
	return d.Points[1], d.Points[2], true
}
