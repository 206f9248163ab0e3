package domain

import (
	"context"

	"github.com/draftea/order-orchestrator/shared/models"
)

// OrderRepository persists order records.
//
// FindByID returns (nil, nil) when no record exists. Create fails with
// ErrOrderAlreadyExists when the correlation id is taken. CompareAndSwap
// replaces the record only while it is still in expected and fails with
// ErrOrderConflict otherwise.
type OrderRepository interface {
	FindByID(ctx context.Context, correlationID models.ID) (*Order, error)
	Create(ctx context.Context, order *Order) error
	CompareAndSwap(ctx context.Context, correlationID models.ID, expected State, order *Order) error
}
