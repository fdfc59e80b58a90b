package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusStampsAndRunsListenersInOrder(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	bus := NewBus(WithClock(func() time.Time { return fixed }))
	defer bus.Close()

	var order []string
	bus.OnEvent(func(e Event) { order = append(order, "a:"+string(e.Kind)) })
	remove := bus.OnEvent(func(e Event) { order = append(order, "b:"+string(e.Kind)) })

	first := bus.Emit(Event{Kind: ConnectionCreated, ConnectionID: "c1"})
	remove()
	second := bus.Emit(Event{Kind: ConnectionDeleted, ConnectionID: "c1"})

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, fixed, first.Time)
	assert.Equal(t, uint64(2), bus.Seq())
	assert.Equal(t, []string{"a:connection-created", "b:connection-created", "a:connection-deleted"}, order)
}

func TestBusSubscribeByKindAndAll(t *testing.T) {
	bus := NewBus(WithBuffer(8))
	defer bus.Close()

	ctx := context.Background()
	created, err := bus.Subscribe(ctx, ConnectionCreated)
	require.NoError(t, err)
	all, err := bus.Subscribe(ctx, "")
	require.NoError(t, err)

	bus.Emit(Event{Kind: DragSessionStarted})
	bus.Emit(Event{Kind: ConnectionCreated, ConnectionID: "c1"})

	e := <-created.C()
	assert.Equal(t, "c1", e.ConnectionID)
	assert.Equal(t, DragSessionStarted, (<-all.C()).Kind)
	assert.Equal(t, ConnectionCreated, (<-all.C()).Kind)
	assert.Zero(t, bus.Dropped())
}

func TestNestedEmitIsDeliveredAfterCurrentEvent(t *testing.T) {
	bus := NewBus(WithBuffer(8))
	defer bus.Close()

	all, err := bus.Subscribe(context.Background(), "")
	require.NoError(t, err)

	var first, second []uint64
	bus.OnEvent(func(e Event) {
		first = append(first, e.Seq)
		if e.Kind == ConnectionCreated {
			nested := bus.Emit(Event{Kind: ConnectionUpdated, ConnectionID: e.ConnectionID})
			assert.Equal(t, uint64(2), nested.Seq)
		}
	})
	bus.OnEvent(func(e Event) { second = append(second, e.Seq) })

	out := bus.Emit(Event{Kind: ConnectionCreated, ConnectionID: "c1"})
	assert.Equal(t, uint64(1), out.Seq)
	assert.Equal(t, []uint64{1, 2}, first)
	assert.Equal(t, []uint64{1, 2}, second)

	for _, want := range []uint64{1, 2} {
		select {
		case e := <-all.C():
			assert.Equal(t, want, e.Seq)
		case <-time.After(time.Second):
			t.Fatalf("event %d not delivered", want)
		}
	}

	bus.Emit(Event{Kind: ConnectionDeleted})
	assert.Equal(t, []uint64{1, 2, 3}, first)
}

func TestKindsAreValid(t *testing.T) {
	for _, k := range Kinds {
		assert.True(t, k.IsValid(), k)
	}
	assert.False(t, Kind("connection-exploded").IsValid())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_, ok := r.Last()
	assert.False(t, ok)

	r.Emit(Event{Kind: ConnectionCreated})
	r.Emit(Event{Kind: ConnectionUpdated})
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, uint64(2), last.Seq)
	assert.Equal(t, []Kind{ConnectionCreated, ConnectionUpdated}, r.Kinds())

	r.Reset()
	assert.Empty(t, r.Events)
	assert.Equal(t, Discard.Emit(Event{Kind: ConnectionDeleted}).Kind, ConnectionDeleted)
}
