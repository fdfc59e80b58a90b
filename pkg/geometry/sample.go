package geometry

import (
	"math"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

// bezierSegments is the sampling resolution used to measure curve length.
const bezierSegments = 32

// PointAt returns the point at parameter t along d. Polylines are
// parameterised by arc length, bezier curves by the cubic's own parameter.
// t is clamped to [0, 1].
func PointAt(d PathDescriptor, t float64) (diagram.Point, error) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return diagram.Point{}, diagram.NewReasonError(diagram.ReasonInvalidGeometry, "non-finite parameter %v", t)
	}
	if err := checkDescriptor(d); err != nil {
		return diagram.Point{}, err
	}
	t = clamp01(t)

	if d.Style == diagram.StyleBezier {
		return cubic(d.Points[0], d.Points[1], d.Points[2], d.Points[3], t), nil
	}
	return alongPolyline(d.Points, t), nil
}

// LabelPoint is PointAt with the label parameter.
func LabelPoint(d PathDescriptor) (diagram.Point, error) {
	return PointAt(d, LabelT)
}

// ConditionPoint is PointAt with the condition-marker parameter.
func ConditionPoint(d PathDescriptor) (diagram.Point, error) {
	return PointAt(d, ConditionT)
}

// Length returns the path length. Bezier length is approximated by sampling.
func Length(d PathDescriptor) (float64, error) {
	if err := checkDescriptor(d); err != nil {
		return 0, err
	}
	if d.Style != diagram.StyleBezier {
		return polylineLength(d.Points), nil
	}

	total := 0.0
	prev := d.Points[0]
	for i := 1; i <= bezierSegments; i++ {
		next := cubic(d.Points[0], d.Points[1], d.Points[2], d.Points[3], float64(i)/bezierSegments)
		total += prev.Distance(next)
		prev = next
	}
	return total, nil
}

// Bounds returns the axis-aligned box containing d. For bezier paths the box
// of the control polygon is returned, which always contains the curve.
func Bounds(d PathDescriptor) (min, max diagram.Point, err error) {
	if err := checkDescriptor(d); err != nil {
		return diagram.Point{}, diagram.Point{}, err
	}
	min, max = d.Points[0], d.Points[0]
	for _, p := range d.Points[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max, nil
}

func checkDescriptor(d PathDescriptor) error {
	if len(d.Points) < 2 {
		return diagram.NewReasonError(diagram.ReasonInvalidGeometry, "path needs at least 2 points, got %d", len(d.Points))
	}
	if d.Style == diagram.StyleBezier && len(d.Points) != 4 {
		return diagram.NewReasonError(diagram.ReasonInvalidGeometry, "bezier path needs 4 points, got %d", len(d.Points))
	}
	for _, p := range d.Points {
		if !p.IsFinite() {
			return diagram.NewReasonError(diagram.ReasonInvalidGeometry, "non-finite point (%v, %v)", p.X, p.Y)
		}
	}
	return nil
}

func cubic(p0, p1, p2, p3 diagram.Point, t float64) diagram.Point {
	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t
	return diagram.Point{
		X: b0*p0.X + b1*p1.X + b2*p2.X + b3*p3.X,
		Y: b0*p0.Y + b1*p1.Y + b2*p2.Y + b3*p3.Y,
	}
}

func polylineLength(pts []diagram.Point) float64 {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += pts[i-1].Distance(pts[i])
	}
	return total
}

func alongPolyline(pts []diagram.Point, t float64) diagram.Point {
	total := polylineLength(pts)
	if total == 0 {
		return pts[0]
	}

	remaining := t * total
	for i := 1; i < len(pts); i++ {
		seg := pts[i-1].Distance(pts[i])
		if seg == 0 {
			continue
		}
		if remaining <= seg {
			f := remaining / seg
			return lerp(pts[i-1], pts[i], f)
		}
		remaining -= seg
	}
	return pts[len(pts)-1]
}

func lerp(a, b diagram.Point, f float64) diagram.Point {
	return diagram.Point{
		X: a.X + (b.X-a.X)*f,
		Y: a.Y + (b.Y-a.Y)*f,
	}
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
