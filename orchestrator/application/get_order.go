package application

import (
	"context"
	"encoding/json"

	"github.com/draftea/order-orchestrator/orchestrator/domain"
	"github.com/draftea/order-orchestrator/shared/models"
	"github.com/pkg/errors"
)

// GetOrderQuery represents the query to get an order
type GetOrderQuery struct {
	CorrelationID string `json:"correlation_id"`
}

// GetOrderResponse represents the response for getting an order
type GetOrderResponse struct {
	CorrelationID string          `json:"correlation_id"`
	CurrentState  string          `json:"current_state"`
	Terminal      bool            `json:"terminal"`
	Payload       json.RawMessage `json:"payload"`
	RetryCount    int             `json:"retry_count"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// GetOrder use case
type GetOrder struct {
	orderRepository domain.OrderRepository
}

// NewGetOrder creates a new GetOrder use case
func NewGetOrder(orderRepository domain.OrderRepository) *GetOrder {
	return &GetOrder{
		orderRepository: orderRepository,
	}
}

// Execute executes the get order use case
func (uc *GetOrder) Execute(ctx context.Context, query *GetOrderQuery) (*GetOrderResponse, error) {
	order, err := findOrder(ctx, uc.orderRepository, query.CorrelationID)
	if err != nil {
		return nil, err
	}

	return &GetOrderResponse{
		CorrelationID: order.CorrelationID.String(),
		CurrentState:  order.CurrentState.String(),
		Terminal:      order.CurrentState.IsTerminal(),
		Payload:       order.Payload,
		RetryCount:    order.RetryCount,
		CreatedAt:     order.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:     order.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

// findOrder loads an order by its textual correlation ID, mapping a missing
// record to domain.ErrOrderNotFound.
func findOrder(ctx context.Context, repo domain.OrderRepository, rawID string) (*domain.Order, error) {
	if rawID == "" {
		return nil, errors.New("correlation ID is required")
	}

	correlationID, err := models.NewID(rawID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid correlation ID")
	}

	order, err := repo.FindByID(ctx, correlationID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find order")
	}

	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	return order, nil
}
