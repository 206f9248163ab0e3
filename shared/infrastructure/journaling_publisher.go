package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/draftea/order-orchestrator/shared/events"
	"github.com/draftea/order-orchestrator/shared/models"
)

var (
	_ events.Publisher = (*JournalingPublisher)(nil)
	_ events.Journal   = (*MemoryEventJournal)(nil)
)

// JournalingPublisher records events in a journal after the wrapped publisher
// accepted them. A journal failure is logged and does not fail the publish:
// the events are already on the bus.
type JournalingPublisher struct {
	next    events.Publisher
	journal events.Journal
	logger  *slog.Logger
}

// NewJournalingPublisher wraps next so successful publishes are journaled
func NewJournalingPublisher(next events.Publisher, journal events.Journal, logger *slog.Logger) *JournalingPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalingPublisher{next: next, journal: journal, logger: logger}
}

// Publish implements events.Publisher
func (p *JournalingPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	if err := p.next.Publish(ctx, evts...); err != nil {
		return err
	}

	if err := p.journal.Append(ctx, evts...); err != nil {
		p.logger.ErrorContext(ctx, "failed to journal published events", "count", len(evts), "error", err)
	}
	return nil
}

// MemoryEventJournal implements events.Journal in process memory
type MemoryEventJournal struct {
	mu     sync.RWMutex
	seen   map[models.ID]struct{}
	events map[models.ID][]*events.Event
}

// NewMemoryEventJournal creates an empty MemoryEventJournal
func NewMemoryEventJournal() *MemoryEventJournal {
	return &MemoryEventJournal{
		seen:   make(map[models.ID]struct{}),
		events: make(map[models.ID][]*events.Event),
	}
}

// Append stores events not journaled before
func (j *MemoryEventJournal) Append(ctx context.Context, evts ...*events.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, event := range evts {
		if _, ok := j.seen[event.ID]; ok {
			continue
		}
		j.seen[event.ID] = struct{}{}
		j.events[event.AggregateID] = append(j.events[event.AggregateID], event.Clone())
	}
	return nil
}

// List returns the events of an aggregate in append order
func (j *MemoryEventJournal) List(ctx context.Context, aggregateID models.ID) ([]*events.Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	stored := j.events[aggregateID]
	result := make([]*events.Event, len(stored))
	for i, event := range stored {
		result[i] = event.Clone()
	}
	return result, nil
}
