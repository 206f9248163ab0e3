package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/draftea/order-orchestrator/orchestrator/domain"
	"github.com/draftea/order-orchestrator/shared/models"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ domain.OrderRepository = (*RedisOrderRepository)(nil)

// RedisOrderRepository stores one JSON document per order under <prefix>order:<id>
type RedisOrderRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisOrderRepository creates a new RedisOrderRepository
func NewRedisOrderRepository(client *redis.Client, keyPrefix string) *RedisOrderRepository {
	return &RedisOrderRepository{client: client, keyPrefix: keyPrefix}
}

type redisOrder struct {
	CorrelationID string          `json:"correlation_id"`
	CurrentState  string          `json:"current_state"`
	Payload       json.RawMessage `json:"payload"`
	RetryCount    int             `json:"retry_count"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (r *RedisOrderRepository) key(correlationID models.ID) string {
	return r.keyPrefix + "order:" + correlationID.String()
}

// FindByID finds an order by correlation ID
func (r *RedisOrderRepository) FindByID(ctx context.Context, correlationID models.ID) (*domain.Order, error) {
	raw, err := r.client.Get(ctx, r.key(correlationID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get order")
	}

	return r.decode(raw)
}

// Create stores a new order unless the key already exists
func (r *RedisOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	raw, err := r.encode(order)
	if err != nil {
		return err
	}

	created, err := r.client.SetNX(ctx, r.key(order.CorrelationID), raw, 0).Result()
	if err != nil {
		return errors.Wrap(err, "failed to create order")
	}
	if !created {
		return domain.ErrOrderAlreadyExists
	}

	return nil
}

// CompareAndSwap watches the order key and writes only while the stored state equals expected
func (r *RedisOrderRepository) CompareAndSwap(ctx context.Context, correlationID models.ID, expected domain.State, order *domain.Order) error {
	key := r.key(correlationID)
	raw, err := r.encode(order)
	if err != nil {
		return err
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return domain.ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		stored, err := r.decode(current)
		if err != nil {
			return err
		}
		if stored.CurrentState != expected {
			return domain.ErrOrderConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		return err
	}, key)
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.TxFailedErr) || errors.Is(err, domain.ErrOrderConflict) {
		return domain.ErrOrderConflict
	}
	if errors.Is(err, domain.ErrOrderNotFound) {
		return domain.ErrOrderNotFound
	}
	return errors.Wrap(err, "failed to update order")
}

func (r *RedisOrderRepository) encode(order *domain.Order) ([]byte, error) {
	raw, err := json.Marshal(redisOrder{
		CorrelationID: order.CorrelationID.String(),
		CurrentState:  string(order.CurrentState),
		Payload:       order.Payload,
		RetryCount:    order.RetryCount,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal order")
	}
	return raw, nil
}

func (r *RedisOrderRepository) decode(raw []byte) (*domain.Order, error) {
	var stored redisOrder
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal order")
	}

	id, err := models.NewID(stored.CorrelationID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid correlation ID")
	}

	state, err := domain.ParseState(stored.CurrentState)
	if err != nil {
		return nil, err
	}

	return &domain.Order{
		CorrelationID: id,
		CurrentState:  state,
		Payload:       stored.Payload,
		RetryCount:    stored.RetryCount,
		CreatedAt:     stored.CreatedAt,
		UpdatedAt:     stored.UpdatedAt,
	}, nil
}
