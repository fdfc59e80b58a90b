package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/geometry"
)

// One terminal cell covers cellW x cellH diagram units. Cells are roughly
// twice as tall as they are wide.
const (
	cellW = 10.0
	cellH = 20.0
)

func toCell(p diagram.Point) (col, row int) {
	return int(math.Round(p.X / cellW)), int(math.Round(p.Y / cellH))
}

func toPoint(col, row int) diagram.Point {
	return diagram.Point{X: float64(col) * cellW, Y: float64(row) * cellH}
}

type paint uint8

const (
	paintNone paint = iota
	paintNode
	paintNodeLabel
	paintPath
	paintPathActive
	paintPathError
	paintLabel
	paintInput
	paintOutput
	paintDrag
	paintDragValid
	paintDragInvalid
)

var palette = map[paint]lipgloss.Style{
	paintNode:        lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF")),
	paintNodeLabel:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true),
	paintPath:        lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	paintPathActive:  lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
	paintPathError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
	paintLabel:       lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
	paintInput:       lipgloss.NewStyle().Foreground(lipgloss.Color("#FF00FF")).Bold(true),
	paintOutput:      lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true),
	paintDrag:        lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
	paintDragValid:   lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true),
	paintDragInvalid: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
}

func statusPaint(s diagram.Status) paint {
	switch s {
	case diagram.StatusActive:
		return paintPathActive
	case diagram.StatusError:
		return paintPathError
	default:
		return paintPath
	}
}

// canvas is a fixed-size grid of styled runes. Writes outside the grid are
// dropped.
type canvas struct {
	width, height int
	runes         [][]rune
	paints        [][]paint
}

func newCanvas(width, height int) *canvas {
	c := &canvas{
		width:  width,
		height: height,
		runes:  make([][]rune, height),
		paints: make([][]paint, height),
	}
	for row := range c.runes {
		c.runes[row] = []rune(strings.Repeat(" ", width))
		c.paints[row] = make([]paint, width)
	}
	return c
}

func (c *canvas) set(col, row int, r rune, p paint) {
	if col < 0 || row < 0 || col >= c.width || row >= c.height {
		return
	}
	c.runes[row][col] = r
	c.paints[row][col] = p
}

func (c *canvas) plot(pt diagram.Point, r rune, p paint) {
	col, row := toCell(pt)
	c.set(col, row, r, p)
}

func (c *canvas) text(col, row int, s string, p paint) {
	for i, r := range []rune(s) {
		c.set(col+i, row, r, p)
	}
}

// trace samples d about twice per cell and plots every sample.
func (c *canvas) trace(d geometry.PathDescriptor, r rune, p paint) {
	length, err := geometry.Length(d)
	if err != nil {
		return
	}
	steps := int(length/(cellW/2)) + 1
	for i := 0; i <= steps; i++ {
		pt, err := geometry.PointAt(d, float64(i)/float64(steps))
		if err != nil {
			return
		}
		c.plot(pt, r, p)
	}
}

func (c *canvas) box(n diagram.Node) {
	left, top := toCell(n.Position)
	right, bottom := toCell(diagram.Point{
		X: n.Position.X + n.Size.Width,
		Y: n.Position.Y + n.Size.Height,
	})
	for col := left + 1; col < right; col++ {
		c.set(col, top, '─', paintNode)
		c.set(col, bottom, '─', paintNode)
	}
	for row := top + 1; row < bottom; row++ {
		c.set(left, row, '│', paintNode)
		c.set(right, row, '│', paintNode)
		for col := left + 1; col < right; col++ {
			c.set(col, row, ' ', paintNone)
		}
	}
	c.set(left, top, '┌', paintNode)
	c.set(right, top, '┐', paintNode)
	c.set(left, bottom, '└', paintNode)
	c.set(right, bottom, '┘', paintNode)

	if bottom-top > 1 {
		label := n.ID
		if room := right - left - 1; len(label) > room && room > 0 {
			label = label[:room]
		}
		c.text(left+1, top+1, label, paintNodeLabel)
	}
}

// String renders the grid, styling each run of equal paint once.
func (c *canvas) String() string {
	var s strings.Builder
	for row := range c.runes {
		if row > 0 {
			s.WriteByte('\n')
		}
		start := 0
		for col := 1; col <= c.width; col++ {
			if col < c.width && c.paints[row][col] == c.paints[row][start] {
				continue
			}
			run := string(c.runes[row][start:col])
			if style, ok := palette[c.paints[row][start]]; ok {
				run = style.Render(run)
			}
			s.WriteString(run)
			start = col
		}
	}
	return s.String()
}
