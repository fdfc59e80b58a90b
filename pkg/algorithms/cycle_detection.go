// Package algorithms holds directed-graph queries over the node graph induced
// by connections (an edge u→v exists when some output port on u is connected
// to an input port on v).
package algorithms

// Adjacency is the read view the algorithms walk. NodeIDs must be returned in
// a stable order so results are deterministic.
type Adjacency interface {
	NodeIDs() []string
	Successors(nodeID string) []string
}

// Cycle represents a detected cycle as a sequence of node IDs
type Cycle []string

const (
	white = iota // unvisited
	gray         // on the DFS stack
	black        // finished
)

// Reachable reports whether to can be reached from from by following edges.
// A node always reaches itself.
func Reachable(g Adjacency, from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.Successors(n) {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// WouldCreateCycle reports whether adding the edge from→to closes a cycle,
// i.e. to already reaches from.
func WouldCreateCycle(g Adjacency, from, to string) bool {
	return Reachable(g, to, from)
}

// DetectCycles finds cycles using DFS with three-colour marking. Every back
// edge yields one cycle; a self-loop is reported as a cycle of length one.
func DetectCycles(g Adjacency) []Cycle {
	color := make(map[string]int)
	parent := make(map[string]string)
	cycles := make([]Cycle, 0)

	for _, id := range g.NodeIDs() {
		if color[id] == white {
			dfsDetectCycle(g, id, color, parent, &cycles)
		}
	}
	return cycles
}

func dfsDetectCycle(g Adjacency, nodeID string, color map[string]int, parent map[string]string, cycles *[]Cycle) {
	color[nodeID] = gray

	for _, next := range g.Successors(nodeID) {
		if next == nodeID {
			*cycles = append(*cycles, Cycle{nodeID})
			continue
		}
		switch color[next] {
		case white:
			parent[next] = nodeID
			dfsDetectCycle(g, next, color, parent, cycles)
		case gray:
			*cycles = append(*cycles, extractCycle(next, nodeID, parent))
		}
	}

	color[nodeID] = black
}

// extractCycle walks parent pointers back from end to start for the back
// edge end→start.
func extractCycle(start, end string, parent map[string]string) Cycle {
	cycle := Cycle{start}
	for current := end; current != start; {
		cycle = append(cycle, current)
		p, ok := parent[current]
		if !ok {
			break
		}
		current = p
	}
	return cycle
}

// HasCycle stops at the first back edge.
func HasCycle(g Adjacency) bool {
	color := make(map[string]int)
	for _, id := range g.NodeIDs() {
		if color[id] == white && hasCycleDFS(g, id, color) {
			return true
		}
	}
	return false
}

func hasCycleDFS(g Adjacency, nodeID string, color map[string]int) bool {
	color[nodeID] = gray
	for _, next := range g.Successors(nodeID) {
		switch color[next] {
		case gray:
			return true
		case white:
			if hasCycleDFS(g, next, color) {
				return true
			}
		}
	}
	color[nodeID] = black
	return false
}

// CycleStats summarises a set of cycles.
type CycleStats struct {
	TotalCycles   int     `json:"totalCycles"`
	ShortestCycle int     `json:"shortestCycle"`
	LongestCycle  int     `json:"longestCycle"`
	AverageLength float64 `json:"averageLength"`
	SelfLoops     int     `json:"selfLoops"`
}

// AnalyzeCycles computes statistics about detected cycles
func AnalyzeCycles(cycles []Cycle) CycleStats {
	if len(cycles) == 0 {
		return CycleStats{}
	}

	stats := CycleStats{
		TotalCycles:   len(cycles),
		ShortestCycle: len(cycles[0]),
		LongestCycle:  len(cycles[0]),
	}
	total := 0
	for _, c := range cycles {
		n := len(c)
		total += n
		if n == 1 {
			stats.SelfLoops++
		}
		stats.ShortestCycle = min(stats.ShortestCycle, n)
		stats.LongestCycle = max(stats.LongestCycle, n)
	}
	stats.AverageLength = float64(total) / float64(len(cycles))
	return stats
}
