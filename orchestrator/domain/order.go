package domain

import (
	"encoding/json"
	"time"

	"github.com/draftea/order-orchestrator/shared/models"
	"github.com/pkg/errors"
)

// MaxPayloadSize is the largest serialized payload an order record can hold
const MaxPayloadSize = 1024

// Order is the persisted saga instance for one order
type Order struct {
	CorrelationID models.ID
	CurrentState  State
	Payload       json.RawMessage
	RetryCount    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOrder creates the record for a freshly started saga
func NewOrder(correlationID models.ID, payload json.RawMessage, createdAt time.Time) (*Order, error) {
	if correlationID.IsZero() {
		return nil, errors.New("correlation ID is required")
	}

	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	if len(payload) > MaxPayloadSize {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "%d bytes", len(payload))
	}

	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &Order{
		CorrelationID: correlationID,
		CurrentState:  StateInitial,
		Payload:       payload,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}, nil
}

// Advance returns a copy of the order moved to next. The receiver is left
// untouched so callers can still compare against the state they read.
func (o *Order) Advance(next State, retryCount int, now time.Time) (*Order, error) {
	if retryCount < 0 {
		return nil, ErrInvalidRetryCount
	}

	if !CanTransition(o.CurrentState, next) {
		return nil, errors.Errorf("illegal transition from %s to %s", o.CurrentState, next)
	}

	advanced := o.Clone()
	advanced.CurrentState = next
	advanced.RetryCount = retryCount
	advanced.UpdatedAt = now
	return advanced, nil
}

// Clone returns a deep copy of the order
func (o *Order) Clone() *Order {
	clone := *o
	if o.Payload != nil {
		clone.Payload = append(json.RawMessage(nil), o.Payload...)
	}
	return &clone
}
