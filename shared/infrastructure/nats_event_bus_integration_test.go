//go:build integration

package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/draftea/order-orchestrator/shared/events"
	"github.com/draftea/order-orchestrator/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type channelHandler chan *events.Event

func (h channelHandler) Handle(ctx context.Context, event *events.Event) error {
	h <- event
	return nil
}

func setupTestNATS(t *testing.T) string {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForListeningPort("4222/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	url, err := container.PortEndpoint(ctx, "4222/tcp", "nats")
	require.NoError(t, err)
	return url
}

func TestNATSEventBus_PublishSubscribe(t *testing.T) {
	cfg := DefaultNATSConfig()
	cfg.URL = setupTestNATS(t)

	bus, err := NewNATSEventBus(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	ctx := context.Background()
	received := make(channelHandler, 4)
	require.NoError(t, bus.Subscribe(ctx, "payment.*", received))
	require.NoError(t, bus.conn.Flush())

	id := models.GenerateUUID()
	submitted := events.NewOrderEvent(events.PaymentSubmittedEvent, events.OrderEventData{
		CorrelationID: id,
		CurrentState:  "Initial",
		RetryCount:    2,
	}).WithMetadata(events.MetadataSource, "order-orchestrator")
	final := events.NewOrderEvent(events.OrderFinalEvent, events.OrderEventData{CorrelationID: id})

	require.NoError(t, bus.Publish(ctx, final, submitted))

	select {
	case got := <-received:
		assert.Equal(t, submitted.ID, got.ID)
		assert.Equal(t, events.PaymentSubmittedEvent, got.Type())
		assert.Equal(t, "order-orchestrator", got.Metadata[events.MetadataSource])

		data, err := got.OrderData()
		require.NoError(t, err)
		assert.Equal(t, id, data.CorrelationID)
		assert.Equal(t, 2, data.RetryCount)
	case <-time.After(5 * time.Second):
		t.Fatal("payment event was not delivered")
	}

	select {
	case got := <-received:
		t.Fatalf("unexpected delivery of %s", got.Type())
	case <-time.After(200 * time.Millisecond):
	}
}
