package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/elearning-billing/internal/middleware"
	"github.com/mansoorceksport/elearning-billing/internal/service"
	"github.com/mansoorceksport/elearning-billing/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// EntitlementHandler exposes the entitlement gate
type EntitlementHandler struct {
	entitlementService *service.EntitlementService
}

// NewEntitlementHandler creates a new EntitlementHandler
func NewEntitlementHandler(entitlementService *service.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{entitlementService: entitlementService}
}

// GetMyEntitlement handles GET /v1/me/entitlement
func (h *EntitlementHandler) GetMyEntitlement(c *fiber.Ctx) error {
	learnerID := middleware.UserID(c)
	if learnerID == "" {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return h.respond(c, learnerID)
}

// GetEntitlement handles GET /v1/entitlements/:learner_id for enrollment services
func (h *EntitlementHandler) GetEntitlement(c *fiber.Ctx) error {
	learnerID := c.Params("learner_id")
	if learnerID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "learner_id is required")
	}
	return h.respond(c, learnerID)
}

// GetMySubscription handles GET /v1/me/subscription
func (h *EntitlementHandler) GetMySubscription(c *fiber.Ctx) error {
	learnerID := middleware.UserID(c)
	if learnerID == "" {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized")
	}

	mine, err := h.entitlementService.MySubscription(c.UserContext(), learnerID)
	if err != nil {
		return domainError(c, "Entitlement", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    mine,
	})
}

func (h *EntitlementHandler) respond(c *fiber.Ctx, learnerID string) error {
	status, err := h.entitlementService.Status(c.UserContext(), learnerID)
	if err != nil {
		return domainError(c, "Entitlement", err)
	}
	telemetry.AddSpanEvent(c, "entitlement.checked",
		attribute.String("learner.id", learnerID),
		attribute.String("entitlement.status", string(status)),
	)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"learner_id": learnerID,
			"status":     status,
			"access":     status.GrantsAccess(),
		},
	})
}
