package diagram

import (
	"math"
	"time"
)

// Point is an absolute canvas coordinate. Pointer input is normalised to a
// Point before it reaches the engine.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// IsFinite reports whether neither coordinate is NaN or infinite.
func (p Point) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// Distance returns the Euclidean distance between two points.
func (p Point) Distance(o Point) float64 {
	return math.Hypot(o.X-p.X, o.Y-p.Y)
}

// Size is a node's width and height.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Node is a host-owned box on the canvas. The engine only reads it.
type Node struct {
	ID       string `json:"id" yaml:"id"`
	Position Point  `json:"position" yaml:"position"`
	Size     Size   `json:"size" yaml:"size"`
}

// Direction is the data-flow direction of a port.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Opposite returns the direction a compatible peer port must have.
func (d Direction) Opposite() Direction {
	if d == DirectionInput {
		return DirectionOutput
	}
	return DirectionInput
}

// IsValid reports whether d is one of the known directions.
func (d Direction) IsValid() bool {
	return d == DirectionInput || d == DirectionOutput
}

// Anchor names the side of the owning node a port is attached to.
type Anchor string

const (
	AnchorTop    Anchor = "top"
	AnchorRight  Anchor = "right"
	AnchorBottom Anchor = "bottom"
	AnchorLeft   Anchor = "left"
)

// IsValid reports whether a is one of the four sides.
func (a Anchor) IsValid() bool {
	switch a {
	case AnchorTop, AnchorRight, AnchorBottom, AnchorLeft:
		return true
	default:
		return false
	}
}

// AnyDataType is compatible with every other data type.
const AnyDataType = "any"

// Unbounded is the MaxConnections value for ports without a capacity limit.
const Unbounded = 0

// Port is a typed, directional attachment point on a node.
type Port struct {
	ID        string    `json:"id" yaml:"id"`
	NodeID    string    `json:"nodeId" yaml:"nodeId"`
	Direction Direction `json:"direction" yaml:"direction"`
	DataType  string    `json:"dataType" yaml:"dataType"`
	Anchor    Anchor    `json:"anchor" yaml:"anchor"`
	// MaxConnections limits incoming connections on input ports (0 = unlimited).
	MaxConnections int `json:"maxConnections,omitempty" yaml:"maxConnections,omitempty"`
}

// IsUnbounded reports whether the port accepts any number of connections.
func (p *Port) IsUnbounded() bool {
	return p.MaxConnections <= Unbounded
}

// AcceptsType reports whether data of the other port's type may flow into or
// out of this port.
func (p *Port) AcceptsType(other *Port) bool {
	return p.DataType == other.DataType || p.DataType == AnyDataType || other.DataType == AnyDataType
}

// Style selects how a connection's path is drawn.
type Style string

const (
	StyleBezier     Style = "bezier"
	StyleStraight   Style = "straight"
	StyleOrthogonal Style = "orthogonal"
)

// DefaultStyle is used when neither the connection nor the config picks one.
const DefaultStyle = StyleBezier

// IsValid reports whether s is a known style. The empty style is valid and
// means DefaultStyle.
func (s Style) IsValid() bool {
	switch s {
	case "", StyleBezier, StyleStraight, StyleOrthogonal:
		return true
	default:
		return false
	}
}

// OrDefault returns s, or DefaultStyle when s is empty.
func (s Style) OrDefault() Style {
	if s == "" {
		return DefaultStyle
	}
	return s
}

// Status is the visual run state of a connection, set by the host.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusActive Status = "active"
	StatusError  Status = "error"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusIdle || s == StatusActive || s == StatusError
}

// Connection is a directed edge from an output port to an input port.
// Endpoints and ID never change after creation.
type Connection struct {
	ID           string    `json:"id" yaml:"id"`
	SourcePortID string    `json:"sourcePortId" yaml:"sourcePortId"`
	TargetPortID string    `json:"targetPortId" yaml:"targetPortId"`
	Status       Status    `json:"status" yaml:"status"`
	Label        string    `json:"label,omitempty" yaml:"label,omitempty"`
	Condition    string    `json:"condition,omitempty" yaml:"condition,omitempty"`
	Style        Style     `json:"style" yaml:"style"`
	CreatedAt    time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"-"`
}

// Clone returns a copy safe to hand to callers outside the registry.
func (c *Connection) Clone() *Connection {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Proposal is a candidate edge, not yet validated.
type Proposal struct {
	SourcePortID string `json:"sourcePortId" yaml:"sourcePortId"`
	TargetPortID string `json:"targetPortId" yaml:"targetPortId"`
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
