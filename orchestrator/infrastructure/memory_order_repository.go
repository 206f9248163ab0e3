package infrastructure

import (
	"context"
	"sync"

	"github.com/draftea/order-orchestrator/orchestrator/domain"
	"github.com/draftea/order-orchestrator/shared/models"
)

var _ domain.OrderRepository = (*MemoryOrderRepository)(nil)

// MemoryOrderRepository keeps order records in process memory
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[models.ID]*domain.Order
}

// NewMemoryOrderRepository creates an empty MemoryOrderRepository
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[models.ID]*domain.Order)}
}

// FindByID returns a copy of the stored order or nil when absent
func (r *MemoryOrderRepository) FindByID(ctx context.Context, correlationID models.ID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[correlationID]
	if !ok {
		return nil, nil
	}
	return order.Clone(), nil
}

// Create stores a new order
func (r *MemoryOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.CorrelationID]; exists {
		return domain.ErrOrderAlreadyExists
	}
	r.orders[order.CorrelationID] = order.Clone()
	return nil
}

// CompareAndSwap replaces the order while it is still in expected
func (r *MemoryOrderRepository) CompareAndSwap(ctx context.Context, correlationID models.ID, expected domain.State, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[correlationID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.CurrentState != expected {
		return domain.ErrOrderConflict
	}
	r.orders[correlationID] = order.Clone()
	return nil
}

// Len returns the number of stored orders
func (r *MemoryOrderRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}
