package events

import (
	"context"
	"slices"
	"time"

	"github.com/dd0wney/cluso-flowlink/pkg/pubsub"
)

// TopicAll receives every event regardless of kind.
const TopicAll = "*"

// Listener is called synchronously for every event.
type Listener func(Event)

// Bus stamps events with a sequence number and time, runs listeners in
// registration order, then fans the event out to pubsub subscribers on its
// kind topic and on TopicAll.
//
// An Emit from inside a listener is stamped immediately but delivered after
// the event being handled, so listeners and subscribers both see events in
// Seq order.
//
// Emit and OnEvent are not safe for concurrent use; Subscribe is.
type Bus struct {
	seq       uint64
	listeners []*listener
	broker    *pubsub.Broker[Event]
	now       func() time.Time

	pending  []Event
	draining bool
}

type listener struct {
	fn Listener
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) BusOption {
	return func(b *Bus) { b.now = now }
}

// WithBuffer sets the per-subscriber channel size.
func WithBuffer(n int) BusOption {
	return func(b *Bus) { b.broker = pubsub.New[Event](n) }
}

// NewBus creates an event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	if b.broker == nil {
		b.broker = pubsub.New[Event](pubsub.DefaultBuffer)
	}
	return b
}

// Emit implements Emitter.
func (b *Bus) Emit(e Event) Event {
	b.seq++
	e.Seq = b.seq
	if e.Time.IsZero() {
		e.Time = b.now()
	}

	b.pending = append(b.pending, e)
	if b.draining {
		return e
	}

	b.draining = true
	defer func() {
		b.draining = false
		b.pending = b.pending[:0]
	}()
	for len(b.pending) > 0 {
		next := b.pending[0]
		b.pending = b.pending[1:]
		b.deliver(next)
	}
	return e
}

func (b *Bus) deliver(e Event) {
	for _, l := range slices.Clone(b.listeners) {
		if l.fn != nil {
			l.fn(e)
		}
	}
	b.broker.Publish(string(e.Kind), e)
	b.broker.Publish(TopicAll, e)
}

// Seq returns the sequence number of the last emitted event.
func (b *Bus) Seq() uint64 {
	return b.seq
}

// OnEvent registers a synchronous listener and returns a function that
// removes it.
func (b *Bus) OnEvent(fn Listener) (remove func()) {
	l := &listener{fn: fn}
	b.listeners = append(b.listeners, l)
	return func() {
		for i, other := range b.listeners {
			if other == l {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Subscribe returns an asynchronous subscription to one kind, or to every
// event when kind is empty.
func (b *Bus) Subscribe(ctx context.Context, kind Kind) (*pubsub.Subscription[Event], error) {
	topic := string(kind)
	if kind == "" {
		topic = TopicAll
	}
	return b.broker.Subscribe(ctx, topic)
}

// Dropped is the number of events asynchronous subscribers missed.
func (b *Bus) Dropped() uint64 {
	return b.broker.Dropped()
}

// Close ends all subscriptions.
func (b *Bus) Close() {
	b.broker.Shutdown()
}

// Recorder is an Emitter that keeps every event, for tests and tools.
type Recorder struct {
	Events []Event
	seq    uint64
}

// Emit implements Emitter.
func (r *Recorder) Emit(e Event) Event {
	r.seq++
	e.Seq = r.seq
	r.Events = append(r.Events, e)
	return e
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []Kind {
	out := make([]Kind, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Kind
	}
	return out
}

// Last returns the most recent event, or false if none.
func (r *Recorder) Last() (Event, bool) {
	if len(r.Events) == 0 {
		return Event{}, false
	}
	return r.Events[len(r.Events)-1], true
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.Events = nil
}
