//go:build integration

package infrastructure

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/draftea/order-orchestrator/orchestrator/domain"
	"github.com/draftea/order-orchestrator/shared/events"
	sharedinfra "github.com/draftea/order-orchestrator/shared/infrastructure"
	"github.com/draftea/order-orchestrator/shared/models"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDatabase starts a PostgreSQL container and applies the embedded migrations
func setupTestDatabase(t *testing.T) *sqlx.DB {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("orchestrator_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(connStr))
	// second run must be a no-op
	require.NoError(t, Migrate(connStr))

	db, err := sqlx.Connect("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestPostgresOrderRepository(t *testing.T) {
	db := setupTestDatabase(t)

	runOrderRepositoryContract(t, func(t *testing.T) domain.OrderRepository {
		return NewPostgresOrderRepository(db)
	})
}

func TestPostgresEventJournal(t *testing.T) {
	db := setupTestDatabase(t)
	journal := sharedinfra.NewPostgresEventJournal(db)
	ctx := context.Background()

	orderID := models.GenerateUUID()
	otherID := models.GenerateUUID()
	newEvent := func(id models.ID, eventType string, retryCount int) *events.Event {
		return events.NewOrderEvent(eventType, events.OrderEventData{
			CorrelationID: id,
			CurrentState:  "Initial",
			Payload:       json.RawMessage(`{"sku":"A-1"}`),
			RetryCount:    retryCount,
			CreatedAt:     testTime,
		}).WithMetadata(events.MetadataSource, "order-orchestrator")
	}

	submitted := newEvent(orderID, events.PaymentSubmittedEvent, 0)
	deadLetter := newEvent(orderID, events.ShippingDeadLetterEvent, 5)
	final := newEvent(orderID, events.OrderFinalEvent, 0)

	require.NoError(t, journal.Append(ctx, submitted, deadLetter))
	// the same event appended again is skipped and keeps its position
	require.NoError(t, journal.Append(ctx, submitted, final))
	require.NoError(t, journal.Append(ctx, newEvent(otherID, events.PaymentSubmittedEvent, 0)))
	require.NoError(t, journal.Append(ctx))

	listed, err := journal.List(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	ids := make([]models.ID, len(listed))
	for i, e := range listed {
		ids[i] = e.ID
	}
	assert.Equal(t, []models.ID{submitted.ID, deadLetter.ID, final.ID}, ids)

	got := listed[1]
	assert.Equal(t, events.ShippingDeadLetterEvent, got.Type())
	assert.Equal(t, orderID, got.AggregateID)
	assert.Equal(t, orderID, got.CorrelationID)
	assert.Equal(t, "order-orchestrator", got.Metadata[events.MetadataSource])
	assert.WithinDuration(t, deadLetter.Timestamp, got.Timestamp, time.Millisecond)

	data, err := got.OrderData()
	require.NoError(t, err)
	assert.Equal(t, 5, data.RetryCount)
	assert.JSONEq(t, `{"sku":"A-1"}`, string(data.Payload))
	assert.True(t, data.CreatedAt.Equal(testTime))

	other, err := journal.List(ctx, otherID)
	require.NoError(t, err)
	assert.Len(t, other, 1)

	empty, err := journal.List(ctx, models.GenerateUUID())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
