package registry

import (
	"slices"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

// The methods below implement constraints.GraphReader over live state.

// Node looks a node up in the host layout.
func (r *Registry) Node(id string) (*diagram.Node, bool) {
	return r.layout.Node(id)
}

// Port looks a port up in the host layout.
func (r *Registry) Port(id string) (*diagram.Port, bool) {
	return r.layout.Port(id)
}

// IncomingCount returns the number of connections targeting portID.
func (r *Registry) IncomingCount(portID string) int {
	return r.incoming[portID]
}

// HasConnection reports whether source→target is already connected.
func (r *Registry) HasConnection(sourcePortID, targetPortID string) bool {
	_, ok := r.byPair[pair{sourcePortID, targetPortID}]
	return ok
}

// NodeIDs returns every node that is an endpoint of some connection, sorted.
func (r *Registry) NodeIDs() []string {
	seen := make(map[string]struct{}, len(r.succ))
	for u, targets := range r.succ {
		seen[u] = struct{}{}
		for v := range targets {
			seen[v] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Successors returns the nodes nodeID has connections into, sorted.
func (r *Registry) Successors(nodeID string) []string {
	targets := r.succ[nodeID]
	if len(targets) == 0 {
		return nil
	}
	out := make([]string, 0, len(targets))
	for v := range targets {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) index(rec *record) {
	c := rec.conn
	for _, portID := range []string{c.SourcePortID, c.TargetPortID} {
		if r.byPort[portID] == nil {
			r.byPort[portID] = make(map[string]struct{})
		}
		r.byPort[portID][c.ID] = struct{}{}
	}
	r.byPair[pair{c.SourcePortID, c.TargetPortID}] = c.ID
	r.incoming[c.TargetPortID]++
	r.link(rec.sourceNode, rec.targetNode)
}

func (r *Registry) unindex(rec *record) {
	c := rec.conn
	for _, portID := range []string{c.SourcePortID, c.TargetPortID} {
		delete(r.byPort[portID], c.ID)
		if len(r.byPort[portID]) == 0 {
			delete(r.byPort, portID)
		}
	}
	delete(r.byPair, pair{c.SourcePortID, c.TargetPortID})
	if r.incoming[c.TargetPortID]--; r.incoming[c.TargetPortID] <= 0 {
		delete(r.incoming, c.TargetPortID)
	}
	r.unlink(rec.sourceNode, rec.targetNode)
}

func (r *Registry) link(u, v string) {
	if r.succ[u] == nil {
		r.succ[u] = make(map[string]int)
	}
	r.succ[u][v]++
}

func (r *Registry) unlink(u, v string) {
	if r.succ[u][v]--; r.succ[u][v] <= 0 {
		delete(r.succ[u], v)
	}
	if len(r.succ[u]) == 0 {
		delete(r.succ, u)
	}
}
