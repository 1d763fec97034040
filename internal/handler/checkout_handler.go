package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/elearning-billing/internal/middleware"
	"github.com/mansoorceksport/elearning-billing/internal/service"
)

// CheckoutHandler starts payments for the authenticated learner
type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// CheckoutRequest is the body of both checkout endpoints
type CheckoutRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// CreateSession handles POST /v1/me/checkout-session
// The X-Platform header selects mobile deep links or web redirects
func (h *CheckoutHandler) CreateSession(c *fiber.Ctx) error {
	learnerID := middleware.UserID(c)
	if learnerID == "" {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized")
	}

	req, err := parseCheckoutRequest(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	platform := strings.ToLower(c.Get("X-Platform", service.PlatformWeb))
	session, err := h.checkoutService.CreateSession(c.UserContext(), learnerID, req.PlanID, platform)
	if err != nil {
		return domainError(c, "Checkout", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    session,
	})
}

// CreatePaymentIntent handles POST /v1/me/payment-intent
func (h *CheckoutHandler) CreatePaymentIntent(c *fiber.Ctx) error {
	learnerID := middleware.UserID(c)
	if learnerID == "" {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized")
	}

	req, err := parseCheckoutRequest(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	intent, err := h.checkoutService.CreatePaymentIntent(c.UserContext(), learnerID, req.PlanID)
	if err != nil {
		return domainError(c, "Checkout", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    intent,
	})
}

func parseCheckoutRequest(c *fiber.Ctx) (*CheckoutRequest, error) {
	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "plan_id is required")
	}
	return &req, nil
}
