package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecordWebhookEvent(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	ctx := context.Background()
	RecordWebhookEvent(ctx, "checkout_completed", "processed")
	RecordWebhookEvent(ctx, "checkout_completed", "processed")
	RecordWebhookEvent(ctx, "ignored", "ignored")
	RecordCheckoutSession(ctx, "mobile")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			data, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range data.DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				sums[m.Name+"/"+outcome.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(2), sums["billing.webhook.events/processed"])
	assert.Equal(t, int64(1), sums["billing.webhook.events/ignored"])
	assert.Equal(t, int64(1), sums["billing.checkout.sessions/"])
}
