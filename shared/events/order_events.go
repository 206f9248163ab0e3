package events

import (
	"encoding/json"
	"time"

	"github.com/draftea/order-orchestrator/shared/models"
)

// Order workflow event types
const (
	OrderInitialEvent = "order.initial"

	PaymentSubmittedEvent  = "payment.submitted"
	PaymentAcceptedEvent   = "payment.accepted"
	PaymentCancelledEvent  = "payment.cancelled"
	PaymentDeadLetterEvent = "payment.dead_letter"

	ShippingSubmittedEvent  = "shipping.submitted"
	ShippingAcceptedEvent   = "shipping.accepted"
	ShippingCancelledEvent  = "shipping.cancelled"
	ShippingDeadLetterEvent = "shipping.dead_letter"

	OrderFinalEvent = "order.final"
)

var orderEventTypes = []string{
	OrderInitialEvent,
	PaymentSubmittedEvent,
	PaymentAcceptedEvent,
	PaymentCancelledEvent,
	PaymentDeadLetterEvent,
	ShippingSubmittedEvent,
	ShippingAcceptedEvent,
	ShippingCancelledEvent,
	ShippingDeadLetterEvent,
	OrderFinalEvent,
}

// OrderEventTypes returns every event type of the order workflow
func OrderEventTypes() []string {
	out := make([]string, len(orderEventTypes))
	copy(out, orderEventTypes)
	return out
}

// IsOrderEventType reports whether eventType belongs to the order workflow
func IsOrderEventType(eventType string) bool {
	for _, t := range orderEventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// OrderEventData is the body shared by every order workflow event.
// RetryCount is only meaningful on submitted and dead letter events.
type OrderEventData struct {
	CorrelationID models.ID       `json:"correlation_id"`
	CurrentState  string          `json:"current_state"`
	Payload       json.RawMessage `json:"payload"`
	RetryCount    int             `json:"retry_count,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewOrderEvent builds an envelope for an order workflow event, correlated
// and aggregated on the order's correlation id.
func NewOrderEvent(eventType string, data OrderEventData) *Event {
	return NewEvent(data.CorrelationID, eventType, data).WithCorrelationID(data.CorrelationID)
}

// OrderData decodes the order body carried by the event
func (e *Event) OrderData() (OrderEventData, error) {
	var data OrderEventData
	if err := e.UnmarshalPayload(&data); err != nil {
		return OrderEventData{}, err
	}
	return data, nil
}
