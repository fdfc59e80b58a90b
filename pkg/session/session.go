// Package session implements the drag-to-connect state machine:
//
//	Idle -> Dragging{Unsnapped|Snapped} -> Completed|Cancelled -> Idle
//
// A Session is owned by a single caller and is not safe for concurrent use.
// Hosts must call Blur, VisibilityHidden or CaptureLost when they lose the
// pointer so a gesture never outlives its input.
package session

import (
	"fmt"
	"slices"
	"time"

	"github.com/dd0wney/cluso-flowlink/pkg/constraints"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/events"
	"github.com/dd0wney/cluso-flowlink/pkg/logging"
	"github.com/dd0wney/cluso-flowlink/pkg/metrics"
	"github.com/dd0wney/cluso-flowlink/pkg/ports"
)

// DefaultSnapRadius is the magnetic snap distance in canvas units.
const DefaultSnapRadius = 30

// Layout is the host layout as the session reads it. Version must change
// whenever a node or port changes.
type Layout interface {
	ports.PortSource
	Version() uint64
}

// Creator commits a completed drag. The registry's Create is the usual
// implementation.
type Creator func(p diagram.Proposal) (*diagram.Connection, *constraints.Result)

// Session is one drag-connect interaction surface.
type Session struct {
	layout    Layout
	graph     constraints.GraphReader
	validator *constraints.Validator
	create    Creator
	resolver  *ports.Resolver

	snapRadius float64
	emitter    events.Emitter
	logger     logging.Logger
	metrics    *metrics.Registry

	state     State
	sub       SubState
	origin    diagram.Port
	originAt  diagram.Point
	pointer   diagram.Point
	candidate ports.Entry
	valid     bool
	reason    diagram.ReasonCode

	index        *ports.Index
	indexVersion uint64
}

// Option configures a Session.
type Option func(*Session)

// WithSnapRadius sets the snap radius. Zero or negative values disable
// snapping, so every drag stays unsnapped and Complete cancels.
func WithSnapRadius(r float64) Option {
	return func(s *Session) { s.snapRadius = r }
}

// WithEmitter sets where drag events go.
func WithEmitter(e events.Emitter) Option {
	return func(s *Session) { s.emitter = e }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Session) { s.metrics = m }
}

// WithCreator sets the commit target. Without one, Complete only emits the
// connection-create-requested event and leaves creation to the host.
func WithCreator(c Creator) Option {
	return func(s *Session) { s.create = c }
}

// New creates an idle session. graph is the live connection state the
// validator dry-runs against; it is usually the registry.
func New(layout Layout, graph constraints.GraphReader, validator *constraints.Validator, opts ...Option) *Session {
	s := &Session{
		layout:     layout,
		graph:      graph,
		validator:  validator,
		resolver:   ports.NewResolver(layout),
		snapRadius: DefaultSnapRadius,
		emitter:    events.Discard,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = constraints.NewValidator(constraints.Options{})
	}
	if s.emitter == nil {
		s.emitter = events.Discard
	}
	s.logger = logging.OrNop(s.logger).With(logging.Component("session"))
	return s
}

// State returns the current top-level state.
func (s *Session) State() State {
	return s.state
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{State: s.state, SubState: s.sub}
	if s.state != StateDragging {
		return snap
	}
	snap.OriginPortID = s.origin.ID
	snap.Origin = s.originAt
	snap.Pointer = s.pointer
	if s.sub == SubStateSnapped {
		snap.CandidatePortID = s.candidate.PortID
		snap.CandidatePoint = s.candidate.Point
		snap.CandidateValid = s.valid
		snap.CandidateReason = s.reason
	}
	return snap
}

// Start begins a drag from originPortID. It is a no-op returning
// ErrSessionActive while another drag is live, and returns the resolver's
// reason error (leaving the session idle) if the origin does not resolve.
func (s *Session) Start(originPortID string) error {
	if s.state == StateDragging {
		return ErrSessionActive
	}
	port, node, err := s.resolver.Lookup(originPortID)
	if err != nil {
		return fmt.Errorf("start drag: %w", err)
	}
	at, err := ports.Resolve(node, port)
	if err != nil {
		return fmt.Errorf("start drag: %w", err)
	}

	s.state = StateDragging
	s.sub = SubStateUnsnapped
	s.origin = *port
	s.originAt = at
	s.pointer = at
	s.clearCandidate()
	s.index = nil

	s.logger.Debug("drag started", logging.PortID(port.ID), logging.Point("origin", at))
	s.emit(events.DragSessionStarted, "")
	return nil
}

// PointerMove updates the pointer and re-runs the snap search. Non-finite
// coordinates are rejected with INVALID_GEOMETRY and change nothing.
func (s *Session) PointerMove(p diagram.Point) error {
	if s.state != StateDragging {
		return ErrNotDragging
	}
	if !p.IsFinite() {
		return diagram.NewReasonError(diagram.ReasonInvalidGeometry, "pointer (%v, %v) is not finite", p.X, p.Y)
	}
	s.pointer = p

	var (
		best  ports.Entry
		found bool
	)
	if s.snapRadius > 0 {
		var start time.Time
		if s.metrics != nil {
			start = time.Now()
		}
		var scanned int
		best, found, scanned = s.searchIndex().Nearest(p, s.snapRadius, nil)
		if s.metrics != nil {
			s.metrics.RecordSnapSearch(time.Since(start), scanned)
		}
	}

	if !found {
		s.sub = SubStateUnsnapped
		s.clearCandidate()
	} else {
		s.sub = SubStateSnapped
		s.candidate = best
		res := s.validator.Validate(s.graph, s.proposal())
		s.valid = res.Valid
		s.reason = res.Reason
	}

	s.emit(events.DragSessionUpdated, "")
	return nil
}

// Complete ends the drag. From Snapped with a valid candidate it emits
// connection-create-requested, commits through the Creator and emits
// drag-session-completed. Anywhere else in Dragging it cancels with
// CancelInvalidTarget. A commit the Creator rejects cancels with
// CancelRejected. Cancelled completions return an error wrapping
// ErrCancelled.
func (s *Session) Complete() (*diagram.Connection, error) {
	if s.state != StateDragging {
		return nil, ErrNotDragging
	}
	if s.sub != SubStateSnapped || !s.valid {
		s.cancel(CancelInvalidTarget, s.reason, "")
		return nil, fmt.Errorf("%w: %s", ErrCancelled, CancelInvalidTarget)
	}

	p := s.proposal()
	s.emitter.Emit(events.Event{
		Kind:         events.ConnectionCreateRequested,
		SourcePortID: p.SourcePortID,
		TargetPortID: p.TargetPortID,
	})

	var conn *diagram.Connection
	if s.create != nil {
		var res *constraints.Result
		conn, res = s.create(p)
		if res != nil && !res.Valid {
			s.cancel(CancelRejected, res.Reason, res.Message)
			return nil, fmt.Errorf("%w: %w", ErrCancelled, res.Err())
		}
	}

	s.state = StateCompleted
	ev := s.dragEvent(events.DragSessionCompleted, "")
	ev.SourcePortID = p.SourcePortID
	ev.TargetPortID = p.TargetPortID
	if conn != nil {
		ev.ConnectionID = conn.ID
		ev.Connection = conn.Clone()
	}
	// Idle before the terminal event goes out, so a listener may start the
	// next drag.
	s.reset()
	s.emitter.Emit(ev)
	s.metrics.RecordDragSession(OutcomeCompleted)
	s.logger.Debug("drag completed", logging.PortID(p.SourcePortID), logging.String("target_port_id", p.TargetPortID))
	return conn, nil
}

// Cancel ends the drag without creating anything. It returns ErrNotDragging
// when there is nothing to cancel.
func (s *Session) Cancel(reason CancelReason) error {
	if s.state != StateDragging {
		return ErrNotDragging
	}
	s.cancel(reason, diagram.ReasonNone, "")
	return nil
}

// Blur cancels a live drag after the host window lost focus.
func (s *Session) Blur() { _ = s.Cancel(CancelBlur) }

// VisibilityHidden cancels a live drag after the host view was hidden.
func (s *Session) VisibilityHidden() { _ = s.Cancel(CancelVisibilityHidden) }

// CaptureLost cancels a live drag after the host lost pointer capture.
func (s *Session) CaptureLost() { _ = s.Cancel(CancelCaptureLost) }

// Invalidate drops the spatial index. The next PointerMove rebuilds it.
func (s *Session) Invalidate() {
	s.index = nil
}

// ForceCancelIfReferences cancels the live drag if its origin or snapped
// candidate is on nodeID or is one of portIDs. It reports whether it
// cancelled.
func (s *Session) ForceCancelIfReferences(nodeID string, portIDs []string) bool {
	s.Invalidate()
	if s.state != StateDragging {
		return false
	}
	hit := (nodeID != "" && s.origin.NodeID == nodeID) || slices.Contains(portIDs, s.origin.ID)
	if s.sub == SubStateSnapped {
		hit = hit || (nodeID != "" && s.candidate.NodeID == nodeID) || slices.Contains(portIDs, s.candidate.PortID)
	}
	if !hit {
		return false
	}
	s.cancel(CancelEntityRemoved, diagram.ReasonNone, "")
	return true
}

// searchIndex returns the spatial index for the current gesture, rebuilding
// it when the layout changed since it was built.
func (s *Session) searchIndex() *ports.Index {
	if s.index != nil && s.indexVersion == s.layout.Version() {
		return s.index
	}
	want := s.origin.Direction.Opposite()
	originID := s.origin.ID
	s.index = ports.BuildIndex(s.layout, s.snapRadius, func(p *diagram.Port) bool {
		return p.Direction == want && p.ID != originID
	})
	s.indexVersion = s.layout.Version()
	s.logger.Debug("snap index built", logging.Count(s.index.Len()))
	return s.index
}

// proposal orders origin and candidate as (output, input) so reverse drags
// from an input validate and commit the same edge.
func (s *Session) proposal() diagram.Proposal {
	if s.origin.Direction == diagram.DirectionInput {
		return diagram.Proposal{SourcePortID: s.candidate.PortID, TargetPortID: s.origin.ID}
	}
	return diagram.Proposal{SourcePortID: s.origin.ID, TargetPortID: s.candidate.PortID}
}

func (s *Session) cancel(reason CancelReason, code diagram.ReasonCode, msg string) {
	s.state = StateCancelled
	ev := s.dragEvent(events.DragSessionCancelled, reason)
	ev.Reason = code
	ev.Message = msg
	s.reset()
	s.emitter.Emit(ev)
	s.metrics.RecordDragSession(string(reason))
	s.logger.Debug("drag cancelled", logging.PortID(ev.PortID), logging.String("cancel_reason", string(reason)))
}

func (s *Session) reset() {
	s.state = StateIdle
	s.sub = SubStateNone
	s.origin = diagram.Port{}
	s.originAt = diagram.Point{}
	s.pointer = diagram.Point{}
	s.clearCandidate()
	s.index = nil
}

func (s *Session) clearCandidate() {
	s.candidate = ports.Entry{}
	s.valid = false
	s.reason = diagram.ReasonNone
}

func (s *Session) emit(kind events.Kind, reason CancelReason) {
	s.emitter.Emit(s.dragEvent(kind, reason))
}

func (s *Session) dragEvent(kind events.Kind, reason CancelReason) events.Event {
	d := &events.Drag{
		State:        s.phase(),
		OriginPortID: s.origin.ID,
		Pointer:      s.pointer,
		CancelReason: string(reason),
	}
	if s.sub == SubStateSnapped {
		d.CandidatePortID = s.candidate.PortID
		d.CandidateValid = s.valid
		d.CandidateReason = s.reason
	}
	return events.Event{Kind: kind, PortID: s.origin.ID, Drag: d}
}

func (s *Session) phase() string {
	if s.state != StateDragging {
		return string(s.state)
	}
	return Snapshot{State: s.state, SubState: s.sub}.Phase()
}
