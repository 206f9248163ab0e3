package application

import (
	"context"

	"github.com/draftea/order-orchestrator/orchestrator/domain"
	"github.com/draftea/order-orchestrator/shared/events"
	"github.com/pkg/errors"
)

// ListOrderEventsQuery represents the query to list an order's published events
type ListOrderEventsQuery struct {
	CorrelationID string `json:"correlation_id"`
}

// ListOrderEvents reads the journal of events published for an order
type ListOrderEvents struct {
	orderRepository domain.OrderRepository
	journal         events.Journal
}

// NewListOrderEvents creates a new ListOrderEvents use case
func NewListOrderEvents(orderRepository domain.OrderRepository, journal events.Journal) *ListOrderEvents {
	return &ListOrderEvents{
		orderRepository: orderRepository,
		journal:         journal,
	}
}

// Execute returns the journaled events oldest first
func (uc *ListOrderEvents) Execute(ctx context.Context, query *ListOrderEventsQuery) ([]*events.Event, error) {
	order, err := findOrder(ctx, uc.orderRepository, query.CorrelationID)
	if err != nil {
		return nil, err
	}

	evts, err := uc.journal.List(ctx, order.CorrelationID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}

	return evts, nil
}
