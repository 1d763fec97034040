package handler

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/service"
	"github.com/mansoorceksport/elearning-billing/internal/telemetry"
)

// WebhookHandler receives payment processor notifications
type WebhookHandler struct {
	dispatcher  *service.WebhookDispatcher
	journal     domain.WebhookEventRepository
	development bool
}

// NewWebhookHandler creates a new WebhookHandler. In development mode responses
// carry the underlying error text.
func NewWebhookHandler(dispatcher *service.WebhookDispatcher, journal domain.WebhookEventRepository, development bool) *WebhookHandler {
	return &WebhookHandler{
		dispatcher:  dispatcher,
		journal:     journal,
		development: development,
	}
}

// StripeWebhook handles POST /webhook and POST /v1/webhooks/stripe
// This is a public endpoint; the Stripe-Signature header authenticates it.
func (h *WebhookHandler) StripeWebhook(c *fiber.Ctx) error {
	// Body() is the raw request body; it must reach verification untouched
	payload := append([]byte(nil), c.Body()...)

	result := h.dispatcher.HandleWebhook(c.UserContext(), payload, c.Get("Stripe-Signature"))
	telemetry.SetSpanAttribute(c, "webhook.outcome", result.Outcome)

	status := fiber.StatusOK
	switch result.Class {
	case service.ClassSignature:
		status = fiber.StatusBadRequest
	case service.ClassTransient:
		status = fiber.StatusInternalServerError
	}

	body := fiber.Map{
		"success":  result.Acknowledge(),
		"received": result.Acknowledge(),
		"outcome":  result.Outcome,
	}
	if result.EventID != "" {
		body["event_id"] = result.EventID
	}
	if result.Err != nil && result.Class != service.ClassIdempotent {
		body["class"] = result.Class.String()
		if h.development {
			body["error"] = result.Err.Error()
		}
	}

	return c.Status(status).JSON(body)
}

// ListEvents handles GET /v1/admin/webhook-events?outcome=anomaly&limit=50
func (h *WebhookHandler) ListEvents(c *fiber.Ctx) error {
	outcome := c.Query("outcome", domain.OutcomeAnomaly)
	limit := int64(c.QueryInt("limit", 50))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	events, err := h.journal.ListByOutcome(c.UserContext(), outcome, limit)
	if err != nil {
		log.Printf("[Webhook] Failed to list %s events: %v", outcome, err)
		return errorResponse(c, fiber.StatusInternalServerError, "failed to list webhook events")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    events,
	})
}
