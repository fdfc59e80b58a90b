package diagram

import (
	"slices"
)

// Layout is the host-supplied node and port set. Only the host changes it,
// through the engine; the validator, resolver and session read it.
type Layout struct {
	nodes       map[string]*Node
	ports       map[string]*Port
	portsByNode map[string][]string // node ID -> port IDs, declaration order
	version     uint64
}

// NewLayout creates an empty layout.
func NewLayout() *Layout {
	return &Layout{
		nodes:       make(map[string]*Node),
		ports:       make(map[string]*Port),
		portsByNode: make(map[string][]string),
	}
}

// Version increases on every change. Sessions compare it to decide whether
// their spatial index is stale.
func (l *Layout) Version() uint64 {
	return l.version
}

// UpsertNode adds a node or replaces its position and size.
func (l *Layout) UpsertNode(n Node) {
	cp := n
	l.nodes[n.ID] = &cp
	l.version++
}

// RemoveNode deletes a node together with the ports declared on it and
// returns the IDs of those ports. Removing an unknown node is a no-op.
func (l *Layout) RemoveNode(nodeID string) []string {
	if _, ok := l.nodes[nodeID]; !ok && len(l.portsByNode[nodeID]) == 0 {
		return nil
	}
	delete(l.nodes, nodeID)

	removed := l.portsByNode[nodeID]
	for _, portID := range removed {
		delete(l.ports, portID)
	}
	delete(l.portsByNode, nodeID)
	l.version++
	return removed
}

// UpsertPort declares a port or replaces its declaration. A port may name a
// node the host has not supplied yet; it just will not resolve until it does.
func (l *Layout) UpsertPort(p Port) {
	if old, ok := l.ports[p.ID]; ok && old.NodeID != p.NodeID {
		l.unlinkPort(old.NodeID, p.ID)
	}
	if _, ok := l.ports[p.ID]; !ok || !slices.Contains(l.portsByNode[p.NodeID], p.ID) {
		l.portsByNode[p.NodeID] = append(l.portsByNode[p.NodeID], p.ID)
	}
	cp := p
	l.ports[p.ID] = &cp
	l.version++
}

// RemovePort deletes a port declaration. It reports whether the port existed.
func (l *Layout) RemovePort(portID string) bool {
	p, ok := l.ports[portID]
	if !ok {
		return false
	}
	l.unlinkPort(p.NodeID, portID)
	delete(l.ports, portID)
	l.version++
	return true
}

func (l *Layout) unlinkPort(nodeID, portID string) {
	ids := l.portsByNode[nodeID]
	if i := slices.Index(ids, portID); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	}
	if len(ids) == 0 {
		delete(l.portsByNode, nodeID)
		return
	}
	l.portsByNode[nodeID] = ids
}

// Node returns the node with the given ID.
func (l *Layout) Node(id string) (*Node, bool) {
	n, ok := l.nodes[id]
	return n, ok
}

// Port returns the port with the given ID.
func (l *Layout) Port(id string) (*Port, bool) {
	p, ok := l.ports[id]
	return p, ok
}

// PortsOfNode returns the port IDs declared on a node in declaration order.
func (l *Layout) PortsOfNode(nodeID string) []string {
	return slices.Clone(l.portsByNode[nodeID])
}

// Nodes returns all nodes sorted by ID.
func (l *Layout) Nodes() []*Node {
	out := make([]*Node, 0, len(l.nodes))
	for _, n := range l.nodes {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b *Node) int { return compareStrings(a.ID, b.ID) })
	return out
}

// Ports returns all ports sorted by ID.
func (l *Layout) Ports() []*Port {
	out := make([]*Port, 0, len(l.ports))
	for _, p := range l.ports {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Port) int { return compareStrings(a.ID, b.ID) })
	return out
}

// NodeCount returns the number of nodes.
func (l *Layout) NodeCount() int {
	return len(l.nodes)
}

// PortCount returns the number of ports.
func (l *Layout) PortCount() int {
	return len(l.ports)
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
