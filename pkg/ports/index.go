package ports

import (
	"math"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

// Entry is a resolved port held by an Index.
type Entry struct {
	PortID    string
	NodeID    string
	Direction diagram.Direction
	Point     diagram.Point
}

type cellKey struct {
	x, y int64
}

// Index is a uniform grid over resolved port anchors. It is built once per
// drag gesture and answers radius queries by visiting only the cells that
// overlap the query's bounding box.
type Index struct {
	cellSize float64
	cells    map[cellKey][]int
	entries  []Entry
}

// PortSource lists ports and their nodes.
type PortSource interface {
	LayoutReader
	Ports() []*diagram.Port
}

// BuildIndex resolves every port accepted by filter and buckets it by cell.
// Ports that do not resolve (missing node, bad geometry) are left out. A
// non-positive cellSize falls back to 1.
func BuildIndex(src PortSource, cellSize float64, filter func(*diagram.Port) bool) *Index {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = 1
	}
	ix := &Index{
		cellSize: cellSize,
		cells:    make(map[cellKey][]int),
	}

	for _, port := range src.Ports() {
		if filter != nil && !filter(port) {
			continue
		}
		node, ok := src.Node(port.NodeID)
		if !ok {
			continue
		}
		p, err := Resolve(node, port)
		if err != nil {
			continue
		}
		ix.add(Entry{PortID: port.ID, NodeID: port.NodeID, Direction: port.Direction, Point: p})
	}
	return ix
}

func (ix *Index) add(e Entry) {
	i := len(ix.entries)
	ix.entries = append(ix.entries, e)
	k := ix.keyOf(e.Point)
	ix.cells[k] = append(ix.cells[k], i)
}

func (ix *Index) keyOf(p diagram.Point) cellKey {
	return cellKey{
		x: int64(math.Floor(p.X / ix.cellSize)),
		y: int64(math.Floor(p.Y / ix.cellSize)),
	}
}

// Len returns the number of indexed ports.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Nearest returns the closest entry within radius of p that accept admits.
// Equal distances resolve to the smaller port ID. scanned is the number of
// entries whose exact distance was computed.
func (ix *Index) Nearest(p diagram.Point, radius float64, accept func(*Entry) bool) (best Entry, found bool, scanned int) {
	if ix == nil || len(ix.entries) == 0 || radius < 0 || !p.IsFinite() {
		return Entry{}, false, 0
	}

	minX, maxX := p.X-radius, p.X+radius
	minY, maxY := p.Y-radius, p.Y+radius
	lo := ix.keyOf(diagram.Point{X: minX, Y: minY})
	hi := ix.keyOf(diagram.Point{X: maxX, Y: maxY})

	bestDist := math.Inf(1)
	consider := func(i int) {
		e := &ix.entries[i]
		// Bounding-box rejection before the exact distance.
		if e.Point.X < minX || e.Point.X > maxX || e.Point.Y < minY || e.Point.Y > maxY {
			return
		}
		if accept != nil && !accept(e) {
			return
		}
		scanned++
		d := p.Distance(e.Point)
		if d > radius {
			return
		}
		if d < bestDist || (d == bestDist && e.PortID < best.PortID) {
			bestDist = d
			best = *e
			found = true
		}
	}

	// A radius far larger than the cell size would visit more cells than
	// there are ports; walk the entries directly in that case.
	span := (hi.x - lo.x + 1) * (hi.y - lo.y + 1)
	if span <= 0 || span > int64(len(ix.entries)) {
		for i := range ix.entries {
			consider(i)
		}
		return best, found, scanned
	}

	for cx := lo.x; cx <= hi.x; cx++ {
		for cy := lo.y; cy <= hi.y; cy++ {
			for _, i := range ix.cells[cellKey{x: cx, y: cy}] {
				consider(i)
			}
		}
	}
	return best, found, scanned
}
