package telemetry

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "elearning-billing"

var (
	instrumentsOnce  sync.Once
	webhookEvents    metric.Int64Counter
	checkoutSessions metric.Int64Counter
	cacheLookups     metric.Int64Counter
)

// initInstruments binds counters to the global meter provider. The global provider
// delegates, so instruments created before Initialize still export afterwards.
func initInstruments() {
	meter := otel.Meter(meterName)

	var err error
	webhookEvents, err = meter.Int64Counter("billing.webhook.events",
		metric.WithDescription("Webhook events received, by kind and outcome"),
	)
	if err != nil {
		log.Printf("Warning: failed to create webhook counter: %v", err)
	}

	checkoutSessions, err = meter.Int64Counter("billing.checkout.sessions",
		metric.WithDescription("Checkout sessions created, by platform"),
	)
	if err != nil {
		log.Printf("Warning: failed to create checkout counter: %v", err)
	}

	cacheLookups, err = meter.Int64Counter("billing.entitlement.cache",
		metric.WithDescription("Entitlement cache lookups, by result"),
	)
	if err != nil {
		log.Printf("Warning: failed to create cache counter: %v", err)
	}
}

// RecordWebhookEvent counts a handled webhook
func RecordWebhookEvent(ctx context.Context, kind, outcome string) {
	instrumentsOnce.Do(initInstruments)
	if webhookEvents == nil {
		return
	}
	webhookEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

// RecordCheckoutSession counts a created checkout session
func RecordCheckoutSession(ctx context.Context, platform string) {
	instrumentsOnce.Do(initInstruments)
	if checkoutSessions == nil {
		return
	}
	checkoutSessions.Add(ctx, 1, metric.WithAttributes(attribute.String("platform", platform)))
}

// RecordCacheLookup counts an entitlement cache hit or miss
func RecordCacheLookup(ctx context.Context, hit bool) {
	instrumentsOnce.Do(initInstruments)
	if cacheLookups == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
