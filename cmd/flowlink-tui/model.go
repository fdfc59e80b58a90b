package main

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/engine"
	"github.com/dd0wney/cluso-flowlink/pkg/events"
	"github.com/dd0wney/cluso-flowlink/pkg/geometry"
	"github.com/dd0wney/cluso-flowlink/pkg/registry"
	"github.com/dd0wney/cluso-flowlink/pkg/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	feedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

const (
	// canvasTop is the number of terminal rows above the canvas.
	canvasTop = 1
	// footerLines is message, event feed and help.
	footerLines = 3
	// hitRadius is how close, in diagram units, a press must land to a port
	// to start a drag from it.
	hitRadius = cellH
	feedSize  = 4
)

// eventFeed keeps the most recent lifecycle events for display.
type eventFeed struct {
	lines []string
}

func (f *eventFeed) add(e events.Event) {
	if e.Kind == events.DragSessionUpdated {
		return
	}
	line := fmt.Sprintf("#%d %s", e.Seq, e.Kind)
	switch {
	case e.ConnectionID != "":
		line += " " + e.ConnectionID
	case e.PortID != "":
		line += " " + e.PortID
	}
	if e.Reason != "" {
		line += " (" + string(e.Reason) + ")"
	}
	f.lines = append(f.lines, line)
	if len(f.lines) > feedSize {
		f.lines = f.lines[len(f.lines)-feedSize:]
	}
}

type model struct {
	engine     *engine.Engine
	feed       *eventFeed
	keys       keyMap
	help       help.Model
	width      int
	height     int
	message    string
	messageErr bool
}

func newModel(e *engine.Engine) model {
	feed := &eventFeed{}
	e.OnEvent(feed.add)
	return model{
		engine: e,
		feed:   feed,
		keys:   keys,
		help:   help.New(),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	s := m.engine.Session()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.BlurMsg:
		if s.State() == session.StateDragging {
			s.Blur()
			m.setError("drag cancelled: terminal lost focus")
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Cancel):
			if err := s.Cancel(session.CancelExplicit); err == nil {
				m.setError("drag cancelled")
			}

		case key.Matches(msg, m.keys.DeleteLast):
			m.deleteLast()

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}

	return m, nil
}

func (m *model) handleMouse(msg tea.MouseMsg) {
	s := m.engine.Session()
	p := toPoint(msg.X, msg.Y-canvasTop)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		id, ok := m.portAt(p)
		if !ok {
			return
		}
		if err := s.Start(id); err != nil {
			m.setError(err.Error())
			return
		}
		m.message = ""
		_ = s.PointerMove(p)

	case tea.MouseActionMotion:
		if s.State() != session.StateDragging {
			return
		}
		if err := s.PointerMove(p); err != nil {
			m.setError(err.Error())
		}

	case tea.MouseActionRelease:
		if s.State() != session.StateDragging {
			return
		}
		_ = s.PointerMove(p)
		conn, err := s.Complete()
		switch {
		case errors.Is(err, session.ErrCancelled):
			m.setError("not connected: " + err.Error())
		case err != nil:
			m.setError(err.Error())
		case conn != nil:
			m.setSuccess(fmt.Sprintf("connected %s -> %s (%s)", conn.SourcePortID, conn.TargetPortID, conn.ID))
		}
	}
}

// portAt returns the port closest to p within hitRadius.
func (m *model) portAt(p diagram.Point) (string, bool) {
	best, bestDist := "", math.Inf(1)
	for _, port := range m.engine.Ports("") {
		pt, err := m.engine.ResolvePort(port.ID)
		if err != nil {
			continue
		}
		if d := math.Hypot(pt.X-p.X, pt.Y-p.Y); d <= hitRadius && d < bestDist {
			best, bestDist = port.ID, d
		}
	}
	return best, best != ""
}

func (m *model) deleteLast() {
	conns := m.engine.Registry().Query(registry.Filter{})
	if len(conns) == 0 {
		m.setError("nothing to delete")
		return
	}
	last := conns[len(conns)-1]
	m.engine.Registry().Delete(last.ID)
	m.setSuccess("deleted " + last.ID)
}

func (m *model) setError(msg string) {
	m.message, m.messageErr = msg, true
}

func (m *model) setSuccess(msg string) {
	m.message, m.messageErr = msg, false
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	snap := m.engine.Session().Snapshot()
	var s strings.Builder

	status := fmt.Sprintf("  %s  connections: %d", snap.Phase(), m.engine.Registry().Len())
	if snap.IsSnapped() {
		status += "  -> " + snap.CandidatePortID
		if !snap.CandidateValid {
			status += " " + string(snap.CandidateReason)
		}
	}
	s.WriteString(titleStyle.Render("flowlink") + statusStyle.Render(status))
	s.WriteString("\n")

	s.WriteString(m.renderCanvas(snap))
	s.WriteString("\n")

	switch {
	case m.message == "":
	case m.messageErr:
		s.WriteString(errorStyle.Render("✗ " + m.message))
	default:
		s.WriteString(successStyle.Render("✓ " + m.message))
	}
	s.WriteString("\n")
	s.WriteString(feedStyle.Render(strings.Join(m.feed.lines, "  ")))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))

	return s.String()
}

func (m model) renderCanvas(snap session.Snapshot) string {
	c := newCanvas(m.width, max(m.height-canvasTop-footerLines, 1))

	for _, n := range m.engine.Nodes() {
		c.box(n)
	}

	for _, r := range m.engine.Renderables() {
		c.trace(r.Path, '·', statusPaint(r.Connection.Status))
		if r.Connection.Label != "" {
			col, row := toCell(r.LabelPoint)
			c.text(col-len(r.Connection.Label)/2, row, r.Connection.Label, paintLabel)
		}
	}

	if snap.State == session.StateDragging {
		end, p := snap.Pointer, paintDrag
		if snap.IsSnapped() {
			end, p = snap.CandidatePoint, paintDragInvalid
			if snap.CandidateValid {
				p = paintDragValid
			}
		}
		if d, err := geometry.Path(snap.Origin, end, diagram.StyleStraight); err == nil {
			c.trace(d, '•', p)
		}
	}

	for _, port := range m.engine.Ports("") {
		pt, err := m.engine.ResolvePort(port.ID)
		if err != nil {
			continue
		}
		if port.Direction == diagram.DirectionOutput {
			c.plot(pt, '●', paintOutput)
		} else {
			c.plot(pt, '○', paintInput)
		}
	}

	return c.String()
}
