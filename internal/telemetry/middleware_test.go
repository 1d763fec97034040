package telemetry

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestFiberMiddleware_AnnotatesRequestSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	app := fiber.New()
	app.Use(FiberMiddleware())
	app.Get("/v1/me/entitlement", func(c *fiber.Ctx) error {
		SetSpanAttribute(c, "webhook.outcome", "processed")
		AddSpanEvent(c, "entitlement.checked", attribute.String("entitlement.status", "actif"))
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/me/entitlement", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "processed", attrs["webhook.outcome"].AsString())
	assert.Equal(t, int64(fiber.StatusOK), attrs["http.status_code"].AsInt64())

	require.Len(t, span.Events(), 1)
	assert.Equal(t, "entitlement.checked", span.Events()[0].Name)
}
