package session

import (
	"errors"
	"math"
	"testing"

	"github.com/dd0wney/cluso-flowlink/pkg/constraints"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/events"
	"github.com/dd0wney/cluso-flowlink/pkg/metrics"
	"github.com/dd0wney/cluso-flowlink/pkg/registry"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture lays out three nodes in a row:
//
//	src [0,0 100x40]  out right (100,20)
//	dst [200,0 100x40] in left (200,20), out right (300,20)
//	str [200,100 100x40] in left (200,120) typed string
type fixture struct {
	layout   *diagram.Layout
	registry *registry.Registry
	session  *Session
	rec      *events.Recorder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	l := diagram.NewLayout()
	node := func(id string, x, y float64) {
		l.UpsertNode(diagram.Node{ID: id, Position: diagram.Point{X: x, Y: y}, Size: diagram.Size{Width: 100, Height: 40}})
	}
	port := func(id, nodeID string, dir diagram.Direction, typ string, anchor diagram.Anchor) {
		l.UpsertPort(diagram.Port{ID: id, NodeID: nodeID, Direction: dir, DataType: typ, Anchor: anchor})
	}
	node("src", 0, 0)
	node("dst", 200, 0)
	node("str", 200, 100)
	port("src.out", "src", diagram.DirectionOutput, "number", diagram.AnchorRight)
	port("dst.in", "dst", diagram.DirectionInput, "number", diagram.AnchorLeft)
	port("dst.out", "dst", diagram.DirectionOutput, "number", diagram.AnchorRight)
	port("str.in", "str", diagram.DirectionInput, "string", diagram.AnchorLeft)

	rec := &events.Recorder{}
	reg := registry.New(l, registry.WithEmitter(rec))
	base := []Option{
		WithEmitter(rec),
		WithCreator(func(p diagram.Proposal) (*diagram.Connection, *constraints.Result) { return reg.Create(p) }),
	}
	s := New(l, reg, constraints.NewValidator(constraints.Options{}), append(base, opts...)...)
	return &fixture{layout: l, registry: reg, session: s, rec: rec}
}

func TestDragSnapComplete(t *testing.T) {
	f := newFixture(t)
	s := f.session

	require.NoError(t, s.Start("src.out"))
	snap := s.Snapshot()
	assert.Equal(t, "dragging/unsnapped", snap.Phase())
	assert.Equal(t, diagram.Point{X: 100, Y: 20}, snap.Origin)

	require.NoError(t, s.PointerMove(diagram.Point{X: 150, Y: 20}))
	assert.Equal(t, SubStateUnsnapped, s.Snapshot().SubState)

	require.NoError(t, s.PointerMove(diagram.Point{X: 190, Y: 25}))
	snap = s.Snapshot()
	require.True(t, snap.IsSnapped())
	assert.Equal(t, "dst.in", snap.CandidatePortID)
	assert.True(t, snap.CandidateValid)

	conn, err := s.Complete()
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, "src.out", conn.SourcePortID)
	assert.Equal(t, "dst.in", conn.TargetPortID)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 1, f.registry.Len())

	assert.Equal(t, []events.Kind{
		events.DragSessionStarted,
		events.DragSessionUpdated,
		events.DragSessionUpdated,
		events.ConnectionCreateRequested,
		events.ConnectionCreated,
		events.DragSessionCompleted,
	}, f.rec.Kinds())
	last, _ := f.rec.Last()
	assert.Equal(t, conn.ID, last.ConnectionID)
	assert.Equal(t, "completed", last.Drag.State)
}

func TestReverseDragNormalisesProposal(t *testing.T) {
	f := newFixture(t)
	s := f.session

	require.NoError(t, s.Start("dst.in"))
	require.NoError(t, s.PointerMove(diagram.Point{X: 105, Y: 18}))
	snap := s.Snapshot()
	require.True(t, snap.IsSnapped())
	assert.Equal(t, "src.out", snap.CandidatePortID)
	assert.True(t, snap.CandidateValid)

	conn, err := s.Complete()
	require.NoError(t, err)
	assert.Equal(t, "src.out", conn.SourcePortID)
	assert.Equal(t, "dst.in", conn.TargetPortID)
}

func TestSnapOnlyToOppositeDirection(t *testing.T) {
	f := newFixture(t)
	s := f.session

	require.NoError(t, s.Start("src.out"))
	// dst.out at (300,20) is an output like the origin and never snaps.
	require.NoError(t, s.PointerMove(diagram.Point{X: 300, Y: 20}))
	assert.Equal(t, SubStateUnsnapped, s.Snapshot().SubState)
}

func TestInvalidSnapCompleteCancels(t *testing.T) {
	f := newFixture(t)
	s := f.session

	require.NoError(t, s.Start("src.out"))
	require.NoError(t, s.PointerMove(diagram.Point{X: 200, Y: 120}))
	snap := s.Snapshot()
	require.True(t, snap.IsSnapped())
	assert.False(t, snap.CandidateValid)
	assert.Equal(t, diagram.ReasonTypeMismatch, snap.CandidateReason)

	conn, err := s.Complete()
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, StateIdle, s.State())
	assert.Zero(t, f.registry.Len())

	last, _ := f.rec.Last()
	assert.Equal(t, events.DragSessionCancelled, last.Kind)
	assert.Equal(t, string(CancelInvalidTarget), last.Drag.CancelReason)
	assert.Equal(t, diagram.ReasonTypeMismatch, last.Reason)
}

func TestUnsnappedCompleteCancels(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start("src.out"))
	_, err := f.session.Complete()
	assert.ErrorIs(t, err, ErrCancelled)
	assert.NotContains(t, f.rec.Kinds(), events.ConnectionCreateRequested)
}

func TestRejectedCommitCancels(t *testing.T) {
	f := newFixture(t)
	s := f.session

	require.NoError(t, s.Start("src.out"))
	require.NoError(t, s.PointerMove(diagram.Point{X: 200, Y: 20}))
	require.True(t, s.Snapshot().CandidateValid)

	// The edge appears between the snap and the pointer-up.
	_, res := f.registry.Create(diagram.Proposal{SourcePortID: "src.out", TargetPortID: "dst.in"})
	require.True(t, res.Valid)

	_, err := s.Complete()
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, diagram.ErrDuplicateEdge)
	last, _ := f.rec.Last()
	assert.Equal(t, events.DragSessionCancelled, last.Kind)
	assert.Equal(t, string(CancelRejected), last.Drag.CancelReason)
	assert.Equal(t, diagram.ReasonDuplicateEdge, last.Reason)
	assert.Equal(t, 1, f.registry.Len())
}

func TestStartIsExclusive(t *testing.T) {
	f := newFixture(t)
	s := f.session

	require.NoError(t, s.Start("src.out"))
	require.NoError(t, s.PointerMove(diagram.Point{X: 150, Y: 30}))
	before := s.Snapshot()

	assert.ErrorIs(t, s.Start("dst.out"), ErrSessionActive)
	assert.Equal(t, before, s.Snapshot())
}

func TestStartErrors(t *testing.T) {
	f := newFixture(t)
	s := f.session

	err := s.Start("nope")
	assert.ErrorIs(t, err, diagram.ErrPortNotFound)
	assert.Equal(t, StateIdle, s.State())

	f.layout.UpsertPort(diagram.Port{ID: "lost", NodeID: "ghost", Direction: diagram.DirectionOutput, Anchor: diagram.AnchorTop})
	err = s.Start("lost")
	assert.Equal(t, diagram.ReasonNodeNotFound, diagram.ReasonOf(err))
	assert.Empty(t, f.rec.Events)
}

func TestOperationsWhileIdle(t *testing.T) {
	s := newFixture(t).session
	assert.ErrorIs(t, s.PointerMove(diagram.Point{}), ErrNotDragging)
	_, err := s.Complete()
	assert.ErrorIs(t, err, ErrNotDragging)
	assert.ErrorIs(t, s.Cancel(CancelExplicit), ErrNotDragging)
	s.Blur()
	assert.False(t, s.ForceCancelIfReferences("src", nil))
	assert.Equal(t, StateIdle, s.State())
}

func TestNonFinitePointerIgnored(t *testing.T) {
	f := newFixture(t)
	s := f.session
	require.NoError(t, s.Start("src.out"))
	require.NoError(t, s.PointerMove(diagram.Point{X: 195, Y: 20}))
	before := s.Snapshot()

	err := s.PointerMove(diagram.Point{X: math.NaN(), Y: 0})
	assert.Equal(t, diagram.ReasonInvalidGeometry, diagram.ReasonOf(err))
	err = s.PointerMove(diagram.Point{X: 0, Y: math.Inf(-1)})
	assert.Equal(t, diagram.ReasonInvalidGeometry, diagram.ReasonOf(err))
	assert.Equal(t, before, s.Snapshot())
}

func TestSafetyNetCancels(t *testing.T) {
	tests := []struct {
		name   string
		call   func(*Session)
		reason CancelReason
	}{
		{"blur", (*Session).Blur, CancelBlur},
		{"visibility", (*Session).VisibilityHidden, CancelVisibilityHidden},
		{"capture", (*Session).CaptureLost, CancelCaptureLost},
		{"explicit", func(s *Session) { _ = s.Cancel(CancelExplicit) }, CancelExplicit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.session.Start("src.out"))
			tt.call(f.session)

			assert.Equal(t, StateIdle, f.session.State())
			last, _ := f.rec.Last()
			assert.Equal(t, events.DragSessionCancelled, last.Kind)
			assert.Equal(t, string(tt.reason), last.Drag.CancelReason)
			assert.Zero(t, f.registry.Len())
		})
	}
}

func TestForceCancelIfReferences(t *testing.T) {
	f := newFixture(t)
	s := f.session

	require.NoError(t, s.Start("src.out"))
	assert.False(t, s.ForceCancelIfReferences("str", []string{"str.in"}))
	assert.Equal(t, StateDragging, s.State())

	require.NoError(t, s.PointerMove(diagram.Point{X: 200, Y: 20}))
	assert.True(t, s.ForceCancelIfReferences("", []string{"dst.in"}))
	assert.Equal(t, StateIdle, s.State())
	last, _ := f.rec.Last()
	assert.Equal(t, string(CancelEntityRemoved), last.Drag.CancelReason)

	require.NoError(t, s.Start("src.out"))
	assert.True(t, s.ForceCancelIfReferences("src", nil))
}

func TestIndexFollowsLayoutChanges(t *testing.T) {
	f := newFixture(t)
	s := f.session

	require.NoError(t, s.Start("src.out"))
	require.NoError(t, s.PointerMove(diagram.Point{X: 200, Y: 220}))
	assert.Equal(t, SubStateUnsnapped, s.Snapshot().SubState)

	// Moving dst under the pointer must be picked up mid-drag.
	f.layout.UpsertNode(diagram.Node{ID: "dst", Position: diagram.Point{X: 200, Y: 200}, Size: diagram.Size{Width: 100, Height: 40}})
	require.NoError(t, s.PointerMove(diagram.Point{X: 200, Y: 220}))
	assert.Equal(t, "dst.in", s.Snapshot().CandidatePortID)
}

func TestSnapRadius(t *testing.T) {
	f := newFixture(t, WithSnapRadius(5))
	s := f.session
	require.NoError(t, s.Start("src.out"))
	require.NoError(t, s.PointerMove(diagram.Point{X: 190, Y: 20}))
	assert.Equal(t, SubStateUnsnapped, s.Snapshot().SubState)
	require.NoError(t, s.PointerMove(diagram.Point{X: 197, Y: 20}))
	assert.Equal(t, SubStateSnapped, s.Snapshot().SubState)
}

func TestZeroSnapRadiusNeverSnaps(t *testing.T) {
	f := newFixture(t, WithSnapRadius(0))
	s := f.session
	require.NoError(t, s.Start("src.out"))
	require.NoError(t, s.PointerMove(diagram.Point{X: 200, Y: 20}))
	assert.Equal(t, SubStateUnsnapped, s.Snapshot().SubState)

	_, err := s.Complete()
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Zero(t, f.registry.Len())
}

func TestListenerCanStartNextDragFromTerminalEvent(t *testing.T) {
	tests := map[string]struct {
		terminal events.Kind
		finish   func(s *Session) error
	}{
		"completed": {
			terminal: events.DragSessionCompleted,
			finish: func(s *Session) error {
				if err := s.PointerMove(diagram.Point{X: 200, Y: 20}); err != nil {
					return err
				}
				_, err := s.Complete()
				return err
			},
		},
		"cancelled": {
			terminal: events.DragSessionCancelled,
			finish:   func(s *Session) error { return s.Cancel(CancelExplicit) },
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			bus := events.NewBus()
			defer bus.Close()

			var (
				s        *Session
				restart  error
				restarts int
				kinds    []events.Kind
			)
			bus.OnEvent(func(e events.Event) {
				kinds = append(kinds, e.Kind)
				if e.Kind == tt.terminal && restarts == 0 {
					restarts++
					restart = s.Start("dst.out")
				}
			})
			s = newFixture(t, WithEmitter(bus)).session

			require.NoError(t, s.Start("src.out"))
			require.NoError(t, tt.finish(s))
			require.NoError(t, restart)

			assert.Equal(t, StateDragging, s.State())
			assert.Equal(t, "dst.out", s.Snapshot().OriginPortID)
			assert.Equal(t, events.DragSessionStarted, kinds[len(kinds)-1])

			require.NoError(t, s.Cancel(CancelExplicit))
			assert.Equal(t, StateIdle, s.State())
		})
	}
}

func TestHostOwnedCreation(t *testing.T) {
	f := newFixture(t, WithCreator(nil))
	s := f.session
	require.NoError(t, s.Start("src.out"))
	require.NoError(t, s.PointerMove(diagram.Point{X: 200, Y: 20}))

	conn, err := s.Complete()
	require.NoError(t, err)
	assert.Nil(t, conn)
	assert.Zero(t, f.registry.Len())
	assert.Contains(t, f.rec.Kinds(), events.ConnectionCreateRequested)
}

func TestSessionMetrics(t *testing.T) {
	m := metrics.NewRegistry()
	f := newFixture(t, WithMetrics(m))
	s := f.session

	require.NoError(t, s.Start("src.out"))
	require.NoError(t, s.PointerMove(diagram.Point{X: 200, Y: 20}))
	_, err := s.Complete()
	require.NoError(t, err)
	require.NoError(t, s.Start("src.out"))
	s.Blur()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DragSessionsTotal.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DragSessionsTotal.WithLabelValues(string(CancelBlur))))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SnapSearchDuration))
}

type step struct {
	op   int
	x, y float64
}

// TestSessionAlwaysEndsIdle drives random gestures and checks that every
// start is matched by exactly one terminal event and the session returns to
// Idle after complete or any cancel.
func TestSessionAlwaysEndsIdle(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	origins := []string{"src.out", "dst.in", "dst.out", "str.in", "missing"}
	genStep := gopter.CombineGens(
		gen.IntRange(0, 7),
		gen.Float64Range(-50, 350),
		gen.Float64Range(-50, 250),
	).Map(func(v []interface{}) step {
		return step{op: v[0].(int), x: v[1].(float64), y: v[2].(float64)}
	})

	properties.Property("drag ends idle", prop.ForAll(
		func(steps []step) bool {
			f := newFixture(t)
			s := f.session
			for _, st := range steps {
				switch st.op {
				case 0:
					_ = s.Start(origins[int(math.Abs(st.x))%len(origins)])
				case 1, 2, 3:
					_ = s.PointerMove(diagram.Point{X: st.x, Y: st.y})
				case 4:
					_, _ = s.Complete()
				case 5:
					s.Blur()
				case 6:
					_ = s.Cancel(CancelExplicit)
				case 7:
					s.CaptureLost()
				}
				if state := s.State(); state != StateIdle && state != StateDragging {
					return false
				}
			}
			_, _ = s.Complete()
			s.Blur()
			if s.State() != StateIdle {
				return false
			}

			var started, ended int
			for _, k := range f.rec.Kinds() {
				switch k {
				case events.DragSessionStarted:
					started++
				case events.DragSessionCompleted, events.DragSessionCancelled:
					ended++
				}
			}
			return started == ended
		},
		gen.SliceOf(genStep),
	))

	properties.TestingRun(t)
}

func TestErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrCancelled, ErrNotDragging))
	assert.False(t, errors.Is(ErrSessionActive, ErrNotDragging))
}
