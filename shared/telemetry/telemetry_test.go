package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	metricSDK "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestConfigBuilders(t *testing.T) {
	cfg := OrchestratorServiceConfig.
		WithServiceName("orchestrator-eu").
		WithOTLPEndpoint("collector:4318").
		WithVersion("2.3.1")

	assert.Equal(t, Config{ServiceName: "orchestrator-eu", ServiceVersion: "2.3.1", OTLPEndpoint: "collector:4318"}, cfg)

	kept := OrchestratorServiceConfig.WithServiceName("").WithVersion("")
	assert.Equal(t, OrchestratorServiceConfig, kept)
}

func newMeteredContext(t *testing.T) (context.Context, *metricSDK.ManualReader) {
	reader := metricSDK.NewManualReader()
	provider := metricSDK.NewMeterProvider(metricSDK.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	tel := &Telemetry{
		config: DefaultConfig.WithServiceName("test-service"),
		meter:  provider.Meter("test"),
	}
	return WithTelemetry(context.Background(), tel), reader
}

func collectMetric(t *testing.T, ctx context.Context, reader *metricSDK.ManualReader, name string) metricdata.Metrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %s not collected", name)
	return metricdata.Metrics{}
}

func TestRecordGauge_KeepsLastValue(t *testing.T) {
	ctx, reader := newMeteredContext(t)

	RecordGauge(ctx, "order_locks_active", "locks", 3)
	RecordGauge(ctx, "order_locks_active", "locks", 1)

	gauge, ok := collectMetric(t, ctx, reader, "order_locks_active").Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, 1.0, gauge.DataPoints[0].Value)

	service, ok := gauge.DataPoints[0].Attributes.Value(attribute.Key("service"))
	require.True(t, ok)
	assert.Equal(t, "test-service", service.AsString())
}

func TestRecordCounter_Accumulates(t *testing.T) {
	ctx, reader := newMeteredContext(t)

	RecordCounter(ctx, "order_transitions_total", "transitions", 1, attribute.String("to", "PaymentSubmitted"))
	RecordCounter(ctx, "order_transitions_total", "transitions", 2, attribute.String("to", "PaymentSubmitted"))

	sum, ok := collectMetric(t, ctx, reader, "order_transitions_total").Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}
