// Package pubsub fans messages out to topic subscribers over buffered
// channels. Publishing never blocks: a subscriber whose buffer is full misses
// the message and the drop is counted.
package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 100

// ErrShutdown is returned by Subscribe after Shutdown.
var ErrShutdown = errors.New("pubsub: broker is shut down")

// Broker delivers messages of type T to subscribers by topic.
type Broker[T any] struct {
	subscribers map[string]map[*Subscription[T]]struct{}
	mu          sync.RWMutex
	buffer      int
	dropped     atomic.Uint64
	shutdown    chan struct{}
	isShutdown  atomic.Bool
}

// Subscription represents a subscription to a topic
type Subscription[T any] struct {
	topic   string
	channel chan T
	broker  *Broker[T]
	cancel  context.CancelFunc
	closed  bool // guarded by broker.mu
}

// New creates a broker whose subscriptions buffer up to buffer messages
// (DefaultBuffer when buffer <= 0).
func New[T any](buffer int) *Broker[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker[T]{
		subscribers: make(map[string]map[*Subscription[T]]struct{}),
		buffer:      buffer,
		shutdown:    make(chan struct{}),
	}
}

// Subscribe creates a subscription that lives until ctx is done, Unsubscribe
// is called, or the broker shuts down. The channel is closed in every case.
func (b *Broker[T]) Subscribe(ctx context.Context, topic string) (*Subscription[T], error) {
	if b.isShutdown.Load() {
		return nil, ErrShutdown
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{
		topic:   topic,
		channel: make(chan T, b.buffer),
		broker:  b,
		cancel:  cancel,
	}

	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[*Subscription[T]]struct{})
	}
	b.subscribers[topic][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			cancel()
		}
	}()

	return sub, nil
}

// Publish sends msg to every subscriber of topic and returns how many
// received it.
func (b *Broker[T]) Publish(topic string, msg T) int {
	if b.isShutdown.Load() {
		return 0
	}

	// Snapshot under the read lock; sends happen outside it.
	b.mu.RLock()
	topicSubs := b.subscribers[topic]
	if len(topicSubs) == 0 {
		b.mu.RUnlock()
		return 0
	}
	subs := make([]*Subscription[T], 0, len(topicSubs))
	for sub := range topicSubs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if sub.send(msg) {
			delivered++
		} else {
			b.dropped.Add(1)
		}
	}
	return delivered
}

// Dropped returns the number of messages skipped because a buffer was full.
func (b *Broker[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of subscribers for a topic
func (b *Broker[T]) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Shutdown closes all subscriptions. It is safe to call more than once.
func (b *Broker[T]) Shutdown() {
	if !b.isShutdown.CompareAndSwap(false, true) {
		return
	}
	close(b.shutdown)

	b.mu.Lock()
	for topic, subs := range b.subscribers {
		for sub := range subs {
			sub.close()
		}
		delete(b.subscribers, topic)
	}
	b.mu.Unlock()
}

// Topic returns the subscribed topic.
func (s *Subscription[T]) Topic() string {
	return s.topic
}

// C returns the subscription's message channel
func (s *Subscription[T]) C() <-chan T {
	return s.channel
}

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription[T]) Unsubscribe() {
	s.cancel()

	s.broker.mu.Lock()
	if subs := s.broker.subscribers[s.topic]; subs != nil {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.broker.subscribers, s.topic)
		}
	}
	s.close()
	s.broker.mu.Unlock()
}

// send holds the broker read lock so it cannot race with close, which only
// runs under the write lock.
func (s *Subscription[T]) send(msg T) (ok bool) {
	s.broker.mu.RLock()
	defer s.broker.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.channel <- msg:
		return true
	default:
		return false
	}
}

// close must be called with the broker write lock held.
func (s *Subscription[T]) close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.channel)
}
