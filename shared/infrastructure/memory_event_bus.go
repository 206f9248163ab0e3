package infrastructure

import (
	"context"
	"sync"

	"github.com/draftea/order-orchestrator/shared/events"
	"github.com/pkg/errors"
)

var (
	_ events.Publisher  = (*MemoryEventBus)(nil)
	_ events.Subscriber = (*MemoryEventBus)(nil)
)

type memorySubscription struct {
	pattern events.Topic
	handler events.EventHandler
}

// MemoryEventBus delivers events synchronously to in-process subscribers and
// keeps every published event for inspection.
type MemoryEventBus struct {
	mu            sync.RWMutex
	subscriptions []memorySubscription
	published     []*events.Event
}

// NewMemoryEventBus creates an empty MemoryEventBus
func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{}
}

// Subscribe registers handler for events whose type matches eventType
func (b *MemoryEventBus) Subscribe(ctx context.Context, eventType string, handler events.EventHandler) error {
	pattern, err := events.NewTopic(eventType)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = append(b.subscriptions, memorySubscription{pattern: pattern, handler: handler})
	return nil
}

// Publish records the events and hands each one to every matching subscriber.
// Handler errors are collected and returned after all deliveries.
func (b *MemoryEventBus) Publish(ctx context.Context, evts ...*events.Event) error {
	b.mu.Lock()
	for _, event := range evts {
		b.published = append(b.published, event.Clone())
	}
	subscriptions := append([]memorySubscription(nil), b.subscriptions...)
	b.mu.Unlock()

	var firstErr error
	for _, event := range evts {
		topic := events.Topic(event.Type())
		for _, sub := range subscriptions {
			if !topic.Matches(sub.pattern) {
				continue
			}
			if err := sub.handler.Handle(ctx, event.Clone()); err != nil && firstErr == nil {
				firstErr = errors.Wrapf(err, "handler failed for event %s", event.ID)
			}
		}
	}

	return firstErr
}

// Published returns a copy of every event published so far
func (b *MemoryEventBus) Published() []*events.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*events.Event(nil), b.published...)
}

// PublishedOfType returns the published events with the given type
func (b *MemoryEventBus) PublishedOfType(eventType string) []*events.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*events.Event
	for _, event := range b.published {
		if event.Type() == eventType {
			out = append(out, event)
		}
	}
	return out
}

// Reset forgets the recorded events
func (b *MemoryEventBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = nil
}

// Close implements io.Closer
func (b *MemoryEventBus) Close() error {
	return nil
}
