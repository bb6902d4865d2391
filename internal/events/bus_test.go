package events

import (
	"context"
	"testing"
	"time"

	"engram/internal/types"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := bus.Subscribe(ctx)
	bus.Publish(types.DomainEvent{Kind: types.EventCaptureStored, CaptureID: "c1"})

	select {
	case evt := <-ch:
		if evt.CaptureID != "c1" {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("expected event to be delivered")
	}
}

func TestPublishFansOutToMultipleSubscribers(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1 := bus.Subscribe(ctx)
	ch2 := bus.Subscribe(ctx)
	bus.Publish(types.DomainEvent{Kind: types.EventTaskCreated, TaskID: "t1"})

	for _, ch := range []<-chan types.DomainEvent{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.TaskID != "t1" {
				t.Fatalf("unexpected event: %+v", evt)
			}
		case <-time.After(time.Second):
			t.Fatal("expected event on every subscriber")
		}
	}
}

func TestSubscribeChannelClosesOnContextDone(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	ch := bus.Subscribe(ctx)

	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("expected channel to close after context cancellation")
		}
	}
}

func TestPublishDropsWhenSubscriberBufferFull(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := bus.Subscribe(ctx)
	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(types.DomainEvent{Kind: types.EventSearchQuery})
	}

	if len(ch) != subscriberBuffer {
		t.Fatalf("expected buffer to cap at %d, got %d", subscriberBuffer, len(ch))
	}
}

func TestSubscriberCount(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	bus.Subscribe(ctx)
	bus.Subscribe(ctx)
	if bus.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", bus.SubscriberCount())
	}

	cancel()
	time.Sleep(20 * time.Millisecond)
	if bus.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after cancel, got %d", bus.SubscriberCount())
	}
}
