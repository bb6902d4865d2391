// Package events implements an in-process typed publish/subscribe bus for
// domain events, fanning out non-blockingly to bounded per-subscriber
// channels the way the teacher's filesystem watchers fan out fsnotify
// events to their consumers.
package events

import (
	"context"
	"sync"

	"engram/internal/logging"
	"engram/internal/types"
)

const subscriberBuffer = 64

// Bus fans out published events to every active subscriber.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan types.DomainEvent
	next int
}

// NewBus builds an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan types.DomainEvent)}
}

// Subscribe returns a channel that receives every event published after
// the call, closed automatically when ctx is done.
func (b *Bus) Subscribe(ctx context.Context) <-chan types.DomainEvent {
	ch := make(chan types.DomainEvent, subscriberBuffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish fans event out to every subscriber. A subscriber whose buffer is
// full has the event dropped for it and a warning logged rather than
// blocking the publisher.
func (b *Bus) Publish(event types.DomainEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			logging.Events("dropped event %s for subscriber %d: backlog full", event.Kind, id)
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
