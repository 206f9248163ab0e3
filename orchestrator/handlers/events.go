package handlers

import (
	"context"
	"log/slog"

	"github.com/draftea/order-orchestrator/orchestrator/application"
	"github.com/draftea/order-orchestrator/orchestrator/domain"
	"github.com/draftea/order-orchestrator/shared/events"
	"github.com/pkg/errors"
)

// OrderEventHandlers feeds order workflow events from the bus into the saga engine
type OrderEventHandlers struct {
	handleOrderEvent *application.HandleOrderEvent
	logger           *slog.Logger
}

// NewOrderEventHandlers creates new order event handlers
func NewOrderEventHandlers(handleOrderEvent *application.HandleOrderEvent, logger *slog.Logger) *OrderEventHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderEventHandlers{
		handleOrderEvent: handleOrderEvent,
		logger:           logger,
	}
}

// HandlerID returns the unique identifier for this event handler
func (h *OrderEventHandlers) HandlerID() string {
	return "order-orchestrator-event-handler"
}

// Handle implements the events.EventHandler interface. Events this service
// emitted itself come back on the shared topic and are acknowledged as is.
// So are events that no redelivery could fix, after a warning.
func (h *OrderEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	if source, ok := event.Metadata.Get(events.MetadataSource); ok && source == h.handleOrderEvent.Source() {
		return nil
	}

	if !events.IsOrderEventType(event.Type()) {
		return nil
	}

	data, err := event.OrderData()
	if err != nil {
		h.reject(ctx, event, errors.Wrap(err, "failed to unmarshal payload"))
		return nil
	}

	correlationID := data.CorrelationID
	if correlationID.IsZero() {
		correlationID = event.CorrelationID
	}
	var correlation string
	if !correlationID.IsZero() {
		correlation = correlationID.String()
	}

	result, err := h.handleOrderEvent.Execute(ctx, &application.HandleOrderEventCommand{
		CorrelationID: correlation,
		EventType:     event.Type(),
		CurrentState:  data.CurrentState,
		Payload:       data.Payload,
		RetryCount:    data.RetryCount,
		CreatedAt:     data.CreatedAt,
	})
	if err != nil {
		if isPermanent(err) {
			h.reject(ctx, event, err)
			return nil
		}
		return err
	}

	h.logger.DebugContext(ctx, "order event handled",
		"event_id", event.ID.String(),
		"correlation_id", result.CorrelationID,
		"disposition", string(result.Disposition),
		"state", result.CurrentState,
	)
	return nil
}

func (h *OrderEventHandlers) reject(ctx context.Context, event *events.Event, err error) {
	h.logger.WarnContext(ctx, "discarding order event",
		"event_id", event.ID.String(),
		"event_type", event.Type(),
		"error", err,
	)
}

func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidCorrelationID) ||
		errors.Is(err, domain.ErrInvalidRetryCount) ||
		errors.Is(err, domain.ErrPayloadTooLarge)
}

// RegisterHandlers subscribes the handler to every order workflow event type
func (h *OrderEventHandlers) RegisterHandlers(register func(eventType string, handler events.EventHandler)) {
	for _, eventType := range events.OrderEventTypes() {
		register(eventType, h)
	}
}
