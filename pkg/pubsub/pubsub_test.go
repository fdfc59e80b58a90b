package pubsub

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBasicPubSub(t *testing.T) {
	b := New[string](0)
	defer b.Shutdown()

	sub, err := b.Subscribe(context.Background(), "topic")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if sub.Topic() != "topic" {
		t.Errorf("Topic() = %q", sub.Topic())
	}

	if n := b.Publish("topic", "hello"); n != 1 {
		t.Errorf("Publish delivered to %d subscribers, want 1", n)
	}

	select {
	case msg := <-sub.C():
		if msg != "hello" {
			t.Errorf("Expected 'hello', got %v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for message")
	}

	sub.Unsubscribe()
	if b.SubscriberCount("topic") != 0 {
		t.Error("subscription still registered after Unsubscribe")
	}
	if _, ok := <-sub.C(); ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	sub.Unsubscribe()
}

func TestMultipleSubscribersKeepOrder(t *testing.T) {
	b := New[int](10)
	defer b.Shutdown()

	ctx := context.Background()
	subs := make([]*Subscription[int], 3)
	for i := range subs {
		sub, err := b.Subscribe(ctx, "numbers")
		if err != nil {
			t.Fatal(err)
		}
		subs[i] = sub
	}

	for i := 0; i < 5; i++ {
		b.Publish("numbers", i)
	}

	for i, sub := range subs {
		for want := 0; want < 5; want++ {
			if got := <-sub.C(); got != want {
				t.Errorf("subscriber %d: got %d, want %d", i, got, want)
			}
		}
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	b := New[int](2)
	defer b.Shutdown()

	if _, err := b.Subscribe(context.Background(), "slow"); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish("slow", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if b.Dropped() != 8 {
		t.Errorf("Dropped() = %d, want 8", b.Dropped())
	}
}

func TestContextCancellationUnsubscribes(t *testing.T) {
	b := New[string](0)
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := b.Subscribe(ctx, "t")
	cancel()

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after context cancel")
	}
}

func TestShutdown(t *testing.T) {
	b := New[string](0)
	sub, _ := b.Subscribe(context.Background(), "t")

	b.Shutdown()
	b.Shutdown()

	if _, ok := <-sub.C(); ok {
		t.Error("channel should be closed by Shutdown")
	}
	if _, err := b.Subscribe(context.Background(), "t"); !errors.Is(err, ErrShutdown) {
		t.Errorf("Subscribe after shutdown error = %v", err)
	}
	if b.Publish("t", "x") != 0 {
		t.Error("Publish after shutdown should deliver nothing")
	}
}
