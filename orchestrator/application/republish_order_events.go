package application

import (
	"context"
	"log/slog"

	"github.com/draftea/order-orchestrator/orchestrator/domain"
	"github.com/draftea/order-orchestrator/shared/events"
	"github.com/draftea/order-orchestrator/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// RepublishOrderEventsCommand represents the command to republish an order's events
type RepublishOrderEventsCommand struct {
	CorrelationID string `json:"correlation_id"`
}

// RepublishOrderEventsResponse lists what was published again
type RepublishOrderEventsResponse struct {
	CorrelationID string   `json:"correlation_id"`
	CurrentState  string   `json:"current_state"`
	EventIDs      []string `json:"event_ids"`
	EventTypes    []string `json:"event_types"`
}

// RepublishOrderEvents publishes again the events of the transition that
// put an order into its current state. It recovers from a crash between the
// store write and the publish. Consumers must tolerate the duplicate.
type RepublishOrderEvents struct {
	orderRepository domain.OrderRepository
	eventPublisher  events.Publisher
	source          string
	logger          *slog.Logger
}

// NewRepublishOrderEvents creates a new RepublishOrderEvents use case
func NewRepublishOrderEvents(
	orderRepository domain.OrderRepository,
	eventPublisher events.Publisher,
	source string,
	logger *slog.Logger,
) *RepublishOrderEvents {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepublishOrderEvents{
		orderRepository: orderRepository,
		eventPublisher:  eventPublisher,
		source:          source,
		logger:          logger,
	}
}

// Execute executes the republish use case
func (uc *RepublishOrderEvents) Execute(ctx context.Context, cmd *RepublishOrderEventsCommand) (*RepublishOrderEventsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "RepublishOrderEvents")
	defer span.End()

	order, err := findOrder(ctx, uc.orderRepository, cmd.CorrelationID)
	if err != nil {
		return nil, err
	}

	response := &RepublishOrderEventsResponse{
		CorrelationID: order.CorrelationID.String(),
		CurrentState:  order.CurrentState.String(),
		EventIDs:      []string{},
		EventTypes:    []string{},
	}

	emissions := domain.Emissions(order)
	if len(emissions) == 0 {
		return response, nil
	}

	evts := buildEvents(emissions, uc.source)
	if err := uc.eventPublisher.Publish(ctx, evts...); err != nil {
		return nil, errors.Wrap(err, "failed to publish events")
	}

	for _, event := range evts {
		response.EventIDs = append(response.EventIDs, event.ID.String())
		response.EventTypes = append(response.EventTypes, event.Type())
	}

	uc.logger.InfoContext(ctx, "order events republished",
		"correlation_id", order.CorrelationID.String(),
		"state", order.CurrentState.String(),
		"count", len(evts),
	)
	telemetry.RecordCounter(ctx, "order_events_republished_total", "Total order events republished", int64(len(evts)),
		attribute.String("state", order.CurrentState.String()),
	)

	return response, nil
}
