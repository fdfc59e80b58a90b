package registry

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/dd0wney/cluso-flowlink/pkg/constraints"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/events"
	"github.com/dd0wney/cluso-flowlink/pkg/metrics"
	"github.com/dd0wney/cluso-flowlink/pkg/validation"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addNode(l *diagram.Layout, id string, x, y float64) {
	l.UpsertNode(diagram.Node{ID: id, Position: diagram.Point{X: x, Y: y}, Size: diagram.Size{Width: 100, Height: 40}})
}

func addPort(l *diagram.Layout, id, nodeID string, dir diagram.Direction, max int) {
	anchor := diagram.AnchorRight
	if dir == diagram.DirectionInput {
		anchor = diagram.AnchorLeft
	}
	l.UpsertPort(diagram.Port{ID: id, NodeID: nodeID, Direction: dir, DataType: "number", Anchor: anchor, MaxConnections: max})
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}
}

func newTestRegistry(t *testing.T, l *diagram.Layout, opts ...Option) (*Registry, *events.Recorder) {
	t.Helper()
	rec := &events.Recorder{}
	base := []Option{WithEmitter(rec), WithIDGenerator(sequentialIDs())}
	return New(l, append(base, opts...)...), rec
}

func proposal(src, dst string) diagram.Proposal {
	return diagram.Proposal{SourcePortID: src, TargetPortID: dst}
}

// TestCapacityExample walks p1 -> p2 (max 1), a duplicate, a competing p3 and
// the cascade that frees p2 again.
func TestCapacityExample(t *testing.T) {
	l := diagram.NewLayout()
	addNode(l, "n1", 0, 0)
	addNode(l, "n2", 300, 0)
	addPort(l, "p1", "n1", diagram.DirectionOutput, 0)
	addPort(l, "p2", "n2", diagram.DirectionInput, 1)
	r, rec := newTestRegistry(t, l)

	require.True(t, r.Validate(proposal("p1", "p2")).Valid)

	c1, res := r.Create(proposal("p1", "p2"))
	require.True(t, res.Valid)
	require.NotNil(t, c1)
	assert.Equal(t, "c1", c1.ID)
	assert.Equal(t, diagram.StatusIdle, c1.Status)

	_, res = r.Create(proposal("p1", "p2"))
	assert.Equal(t, diagram.ReasonDuplicateEdge, res.Reason)

	addNode(l, "n3", 0, 200)
	addPort(l, "p3", "n3", diagram.DirectionOutput, 0)
	c, res := r.Create(proposal("p3", "p2"))
	assert.Nil(t, c)
	assert.Equal(t, diagram.ReasonCapacityExceeded, res.Reason)

	removed := r.DeleteByNode("n1")
	require.Len(t, removed, 1)
	assert.Equal(t, c1.ID, removed[0].ID)
	assert.Equal(t, 0, r.IncomingCount("p2"))

	_, res = r.Create(proposal("p3", "p2"))
	assert.True(t, res.Valid)

	assert.Equal(t, []events.Kind{
		events.ConnectionCreated,
		events.ConnectionRejected,
		events.ConnectionRejected,
		events.ConnectionDeleted,
		events.ConnectionCreated,
	}, rec.Kinds())
}

func chain(t *testing.T) (*diagram.Layout, *Registry, *events.Recorder) {
	t.Helper()
	l := diagram.NewLayout()
	for i, id := range []string{"a", "b", "c"} {
		addNode(l, id, float64(i)*200, 0)
		addPort(l, id+".in", id, diagram.DirectionInput, 0)
		addPort(l, id+".out", id, diagram.DirectionOutput, 0)
	}
	r, rec := newTestRegistry(t, l)
	return l, r, rec
}

func TestCreateRejectionLeavesStateUntouched(t *testing.T) {
	_, r, rec := chain(t)

	tests := []struct {
		name   string
		p      diagram.Proposal
		opts   []CreateOption
		reason diagram.ReasonCode
	}{
		{"empty ids", proposal("", ""), nil, diagram.ReasonPortNotFound},
		{"unknown port", proposal("a.out", "zz"), nil, diagram.ReasonPortNotFound},
		{"self loop", proposal("a.out", "a.in"), nil, diagram.ReasonSelfLoop},
		{"reversed", proposal("b.in", "a.out"), nil, diagram.ReasonDirectionMismatch},
		{"bad style", proposal("a.out", "b.in"), []CreateOption{WithStyle("wavy")}, diagram.ReasonInvalidGeometry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec.Reset()
			c, res := r.Create(tt.p, tt.opts...)
			assert.Nil(t, c)
			assert.False(t, res.Valid)
			assert.Equal(t, tt.reason, res.Reason)
			assert.NotEmpty(t, res.Message)
			assert.Zero(t, r.Len())

			last, ok := rec.Last()
			require.True(t, ok)
			assert.Equal(t, events.ConnectionRejected, last.Kind)
			assert.Equal(t, tt.reason, last.Reason)
		})
	}
}

func TestCreateOptions(t *testing.T) {
	_, r, rec := chain(t)
	r.now = func() time.Time { return time.Unix(100, 0) }

	c, res := r.Create(proposal("a.out", "b.in"),
		WithLabel("yes"), WithCondition("x > 1"), WithStyle(diagram.StyleOrthogonal))
	require.True(t, res.Valid)
	assert.Equal(t, "yes", c.Label)
	assert.Equal(t, "x > 1", c.Condition)
	assert.Equal(t, diagram.StyleOrthogonal, c.Style)
	assert.Equal(t, time.Unix(100, 0), c.CreatedAt)

	ev, _ := rec.Last()
	assert.Equal(t, c.ID, ev.ConnectionID)
	require.NotNil(t, ev.Connection)
	assert.Equal(t, "yes", ev.Connection.Label)

	// Returned copies do not alias the stored connection.
	c.Label = "changed"
	stored, _ := r.Get(c.ID)
	assert.Equal(t, "yes", stored.Label)
}

func TestDefaultStyle(t *testing.T) {
	l, _, _ := chain(t)
	r := New(l, WithDefaultStyle(diagram.StyleStraight))
	c, _ := r.Create(proposal("a.out", "b.in"))
	assert.Equal(t, diagram.StyleStraight, c.Style)
}

func TestUpdate(t *testing.T) {
	_, r, rec := chain(t)
	c, _ := r.Create(proposal("a.out", "b.in"))

	label := "done"
	status := diagram.StatusActive
	got, err := r.Update(c.ID, Patch{Label: &label, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "done", got.Label)
	assert.Equal(t, diagram.StatusActive, got.Status)
	assert.Equal(t, c.SourcePortID, got.SourcePortID)
	ev, _ := rec.Last()
	assert.Equal(t, events.ConnectionUpdated, ev.Kind)

	rec.Reset()
	_, err = r.Update(c.ID, Patch{})
	require.NoError(t, err)
	assert.Empty(t, rec.Events, "empty patch should not emit")

	bad := diagram.Status("running")
	_, err = r.Update(c.ID, Patch{Status: &bad})
	assert.ErrorIs(t, err, validation.ErrInvalidInput)

	_, err = r.Update("missing", Patch{Label: &label})
	assert.True(t, errors.Is(err, ErrConnectionNotFound))
	assert.Empty(t, rec.Events)
}

func TestDeleteIsIdempotent(t *testing.T) {
	_, r, rec := chain(t)
	c, _ := r.Create(proposal("a.out", "b.in"))
	rec.Reset()

	assert.True(t, r.Delete(c.ID))
	assert.False(t, r.Delete(c.ID))
	assert.Equal(t, []events.Kind{events.ConnectionDeleted}, rec.Kinds())
	_, ok := r.Get(c.ID)
	assert.False(t, ok)
}

func TestCascadesInCreationOrder(t *testing.T) {
	_, r, rec := chain(t)
	c1, _ := r.Create(proposal("a.out", "b.in"))
	c2, _ := r.Create(proposal("c.out", "b.in"))
	c3, _ := r.Create(proposal("b.out", "c.in"))
	rec.Reset()

	removed := r.DeleteByPort("b.in")
	require.Len(t, removed, 2)
	assert.Equal(t, []string{c1.ID, c2.ID}, []string{removed[0].ID, removed[1].ID})
	for _, ev := range rec.Events {
		assert.Equal(t, events.ConnectionDeleted, ev.Kind)
		assert.Equal(t, "b.in", ev.PortID)
	}

	removed = r.DeleteByNode("c")
	require.Len(t, removed, 1)
	assert.Equal(t, c3.ID, removed[0].ID)
	assert.Zero(t, r.Len())
	assert.Empty(t, r.DeleteByNode("c"))
}

func TestQuery(t *testing.T) {
	_, r, _ := chain(t)
	c1, _ := r.Create(proposal("a.out", "b.in"))
	c2, _ := r.Create(proposal("b.out", "c.in"))
	c3, _ := r.Create(proposal("a.out", "c.in"))

	ids := func(cs []*diagram.Connection) []string {
		out := make([]string, len(cs))
		for i, c := range cs {
			out[i] = c.ID
		}
		return out
	}

	assert.Equal(t, []string{c1.ID, c2.ID, c3.ID}, ids(r.Query(Filter{})))
	assert.Equal(t, []string{c1.ID, c2.ID}, ids(r.Query(Filter{NodeID: "b"})))
	assert.Equal(t, []string{c1.ID, c3.ID}, ids(r.Query(Filter{PortID: "a.out"})))
	assert.Equal(t, []string{c3.ID}, ids(r.Query(Filter{PortID: "c.in", NodeID: "a"})))
	assert.Empty(t, r.Query(Filter{NodeID: "nobody"}))
}

func TestAcyclicRegistry(t *testing.T) {
	l, _, _ := chain(t)
	r := New(l, WithValidator(constraints.NewValidator(constraints.Options{EnforceAcyclic: true})))

	_, res := r.Create(proposal("a.out", "b.in"))
	require.True(t, res.Valid)
	_, res = r.Create(proposal("b.out", "c.in"))
	require.True(t, res.Valid)
	_, res = r.Create(proposal("c.out", "a.in"))
	assert.Equal(t, diagram.ReasonCycleDetected, res.Reason)
	assert.Empty(t, r.Cycles())
	assert.False(t, r.HasCycle())
}

func TestCyclesWhenAllowed(t *testing.T) {
	_, r, _ := chain(t)
	r.Create(proposal("a.out", "b.in"))
	assert.False(t, r.HasCycle())
	r.Create(proposal("b.out", "a.in"))
	assert.True(t, r.HasCycle())
	assert.Len(t, r.Cycles(), 1)
	assert.Equal(t, []string{"a", "b"}, r.NodeIDs())
	assert.Equal(t, []string{"b"}, r.Successors("a"))
}

func TestMovePort(t *testing.T) {
	l, r, _ := chain(t)
	c, _ := r.Create(proposal("a.out", "b.in"))

	addNode(l, "d", 0, 400)
	addPort(l, "a.out", "d", diagram.DirectionOutput, 0)
	r.MovePort("a.out", "d")

	assert.Equal(t, []string{"b"}, r.Successors("d"))
	assert.Empty(t, r.Successors("a"))
	assert.Len(t, r.Query(Filter{NodeID: "d"}), 1)
	assert.Len(t, r.DeleteByNode("d"), 1)
	_, ok := r.Get(c.ID)
	assert.False(t, ok)
}

func TestGeneratorCollisionFallsBack(t *testing.T) {
	l, _, _ := chain(t)
	r := New(l, WithIDGenerator(func() string { return "same" }))
	c1, _ := r.Create(proposal("a.out", "b.in"))
	c2, _ := r.Create(proposal("b.out", "c.in"))
	assert.Equal(t, "same", c1.ID)
	assert.NotEqual(t, c1.ID, c2.ID)
	assert.NotEmpty(t, c2.ID)
}

func TestRegistryMetrics(t *testing.T) {
	l, _, _ := chain(t)
	m := metrics.NewRegistry()
	r := New(l, WithMetrics(m))

	c, _ := r.Create(proposal("a.out", "b.in"))
	r.Create(proposal("a.out", "b.in"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationRejectionsTotal.WithLabelValues(string(diagram.ReasonDuplicateEdge))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistryOperationsTotal.WithLabelValues("create", metrics.StatusRejected)))

	r.Delete(c.ID)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ConnectionsTotal))
}

// TestCreateDeleteRoundTrip checks that creating and deleting a connection
// restores every index to its previous shape.
func TestCreateDeleteRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	const nodes = 5
	build := func() (*diagram.Layout, *Registry) {
		l := diagram.NewLayout()
		for i := 0; i < nodes; i++ {
			id := fmt.Sprintf("n%d", i)
			addNode(l, id, float64(i)*150, 0)
			addPort(l, id+".in", id, diagram.DirectionInput, 2)
			addPort(l, id+".out", id, diagram.DirectionOutput, 0)
		}
		return l, New(l)
	}

	properties.Property("create then delete restores state", prop.ForAll(
		func(seed []int, src, dst int) bool {
			_, r := build()
			for i := 0; i+1 < len(seed); i += 2 {
				r.Create(proposal(fmt.Sprintf("n%d.out", seed[i]), fmt.Sprintf("n%d.in", seed[i+1])))
			}
			before := takeSnapshot(r)

			c, res := r.Create(proposal(fmt.Sprintf("n%d.out", src), fmt.Sprintf("n%d.in", dst)))
			if !res.Valid {
				return reflect.DeepEqual(before, takeSnapshot(r))
			}
			r.Delete(c.ID)
			return reflect.DeepEqual(before, takeSnapshot(r))
		},
		gen.SliceOf(gen.IntRange(0, nodes-1)),
		gen.IntRange(0, nodes-1),
		gen.IntRange(0, nodes-1),
	))

	properties.TestingRun(t)
}

type indexSnapshot struct {
	records  int
	byPort   int
	byPair   int
	succ     int
	incoming map[string]int
}

func takeSnapshot(r *Registry) indexSnapshot {
	s := indexSnapshot{
		records:  len(r.records),
		byPort:   len(r.byPort),
		byPair:   len(r.byPair),
		succ:     len(r.succ),
		incoming: make(map[string]int, len(r.incoming)),
	}
	for k, v := range r.incoming {
		s.incoming[k] = v
	}
	return s
}
