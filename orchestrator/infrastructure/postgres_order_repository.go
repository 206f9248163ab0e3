package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/draftea/order-orchestrator/orchestrator/domain"
	"github.com/draftea/order-orchestrator/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

var _ domain.OrderRepository = (*PostgresOrderRepository)(nil)

const uniqueViolation = "23505"

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *sqlx.DB
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository
func NewPostgresOrderRepository(db *sqlx.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// postgresOrder represents an order_states row
type postgresOrder struct {
	CorrelationID string    `db:"correlation_id"`
	CurrentState  string    `db:"current_state"`
	Payload       string    `db:"payload"`
	RetryCount    int       `db:"retry_count"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// FindByID finds an order by correlation ID
func (r *PostgresOrderRepository) FindByID(ctx context.Context, correlationID models.ID) (*domain.Order, error) {
	query := `
		SELECT correlation_id, current_state, payload, retry_count, created_at, updated_at
		FROM order_states
		WHERE correlation_id = $1`

	var pgOrder postgresOrder
	err := r.db.GetContext(ctx, &pgOrder, query, correlationID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find order")
	}

	return r.toDomain(&pgOrder)
}

// Create inserts a new order
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO order_states (
			correlation_id, current_state, payload, retry_count, created_at, updated_at
		) VALUES (
			:correlation_id, :current_state, :payload, :retry_count, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, r.toPostgres(order))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrOrderAlreadyExists
		}
		return errors.Wrap(err, "failed to insert order")
	}

	return nil
}

// CompareAndSwap updates an order only while it is still in the expected state
func (r *PostgresOrderRepository) CompareAndSwap(ctx context.Context, correlationID models.ID, expected domain.State, order *domain.Order) error {
	query := `
		UPDATE order_states
		SET current_state = :current_state, payload = :payload, retry_count = :retry_count, updated_at = :updated_at
		WHERE correlation_id = :correlation_id AND current_state = :expected_state`

	pgOrder := r.toPostgres(order)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"correlation_id": correlationID.String(),
		"current_state":  pgOrder.CurrentState,
		"payload":        pgOrder.Payload,
		"retry_count":    pgOrder.RetryCount,
		"updated_at":     pgOrder.UpdatedAt,
		"expected_state": string(expected),
	})
	if err != nil {
		return errors.Wrap(err, "failed to update order")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}

	if affected == 0 {
		return domain.ErrOrderConflict
	}

	return nil
}

// toPostgres converts domain order to postgres model
func (r *PostgresOrderRepository) toPostgres(order *domain.Order) *postgresOrder {
	return &postgresOrder{
		CorrelationID: order.CorrelationID.String(),
		CurrentState:  string(order.CurrentState),
		Payload:       string(order.Payload),
		RetryCount:    order.RetryCount,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

// toDomain converts postgres model to domain order
func (r *PostgresOrderRepository) toDomain(pgOrder *postgresOrder) (*domain.Order, error) {
	id, err := models.NewID(pgOrder.CorrelationID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid correlation ID")
	}

	state, err := domain.ParseState(pgOrder.CurrentState)
	if err != nil {
		return nil, err
	}

	return &domain.Order{
		CorrelationID: id,
		CurrentState:  state,
		Payload:       json.RawMessage(pgOrder.Payload),
		RetryCount:    pgOrder.RetryCount,
		CreatedAt:     pgOrder.CreatedAt,
		UpdatedAt:     pgOrder.UpdatedAt,
	}, nil
}
