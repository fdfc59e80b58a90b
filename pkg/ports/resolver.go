// Package ports derives absolute connector anchor positions from the host
// layout and finds the nearest compatible port around a pointer.
package ports

import (
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

// Resolve computes the absolute anchor of port on node.
func Resolve(node *diagram.Node, port *diagram.Port) (diagram.Point, error) {
	if node == nil {
		return diagram.Point{}, diagram.NewReasonError(diagram.ReasonNodeNotFound, "port %q has no node", portID(port))
	}
	if port == nil {
		return diagram.Point{}, diagram.NewReasonError(diagram.ReasonPortNotFound, "nil port on node %q", node.ID)
	}

	x, y := node.Position.X, node.Position.Y
	w, h := node.Size.Width, node.Size.Height

	var p diagram.Point
	switch port.Anchor {
	case diagram.AnchorTop:
		p = diagram.Point{X: x + w/2, Y: y}
	case diagram.AnchorBottom:
		p = diagram.Point{X: x + w/2, Y: y + h}
	case diagram.AnchorLeft:
		p = diagram.Point{X: x, Y: y + h/2}
	case diagram.AnchorRight:
		p = diagram.Point{X: x + w, Y: y + h/2}
	default:
		return diagram.Point{}, diagram.NewReasonError(diagram.ReasonInvalidGeometry,
			"port %q has unknown anchor %q", port.ID, port.Anchor)
	}

	if !p.IsFinite() {
		return diagram.Point{}, diagram.NewReasonError(diagram.ReasonInvalidGeometry,
			"node %q has non-finite geometry", node.ID)
	}
	return p, nil
}

func portID(p *diagram.Port) string {
	if p == nil {
		return ""
	}
	return p.ID
}

// LayoutReader is the read-only view of the host layout the resolver needs.
type LayoutReader interface {
	Node(id string) (*diagram.Node, bool)
	Port(id string) (*diagram.Port, bool)
}

// Resolver looks ports up in the live layout on every call, so anchors always
// follow the latest node position and size.
type Resolver struct {
	layout LayoutReader
}

// NewResolver creates a resolver over layout.
func NewResolver(layout LayoutReader) *Resolver {
	return &Resolver{layout: layout}
}

// ResolvePort returns the anchor of the port with the given ID.
func (r *Resolver) ResolvePort(id string) (diagram.Point, error) {
	port, ok := r.layout.Port(id)
	if !ok {
		return diagram.Point{}, diagram.NewReasonError(diagram.ReasonPortNotFound, "port %q not found", id)
	}
	node, ok := r.layout.Node(port.NodeID)
	if !ok {
		return diagram.Point{}, diagram.NewReasonError(diagram.ReasonNodeNotFound,
			"node %q of port %q not found", port.NodeID, id)
	}
	return Resolve(node, port)
}

// Lookup returns the port and its owning node.
func (r *Resolver) Lookup(id string) (*diagram.Port, *diagram.Node, error) {
	port, ok := r.layout.Port(id)
	if !ok {
		return nil, nil, diagram.NewReasonError(diagram.ReasonPortNotFound, "port %q not found", id)
	}
	node, ok := r.layout.Node(port.NodeID)
	if !ok {
		return port, nil, diagram.NewReasonError(diagram.ReasonNodeNotFound,
			"node %q of port %q not found", port.NodeID, id)
	}
	return port, node, nil
}
