package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/service"
)

// PlanHandler serves the plan catalog
type PlanHandler struct {
	planService *service.PlanService
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// PlanRequest is the admin create/update body
type PlanRequest struct {
	Name          string `json:"name" validate:"required"`
	Price         int64  `json:"price" validate:"gt=0"`
	Currency      string `json:"currency"`
	Offers        string `json:"offers"`
	Interval      string `json:"interval" validate:"required,oneof=month year"`
	IntervalCount int64  `json:"interval_count" validate:"gte=0"`
}

func (r *PlanRequest) toPlan() *domain.Plan {
	return &domain.Plan{
		Name:          r.Name,
		Price:         r.Price,
		Currency:      r.Currency,
		Offers:        r.Offers,
		Interval:      r.Interval,
		IntervalCount: r.IntervalCount,
	}
}

// ListPlans handles GET /v1/plans
func (h *PlanHandler) ListPlans(c *fiber.Ctx) error {
	plans, err := h.planService.List(c.UserContext())
	if err != nil {
		return domainError(c, "Plan", err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    plans,
	})
}

// GetPlan handles GET /v1/plans/:id
func (h *PlanHandler) GetPlan(c *fiber.Ctx) error {
	plan, err := h.planService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return domainError(c, "Plan", err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    plan,
	})
}

// CreatePlan handles POST /v1/admin/plans
func (h *PlanHandler) CreatePlan(c *fiber.Ctx) error {
	req, err := parsePlanRequest(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	plan, err := h.planService.Create(c.UserContext(), req.toPlan())
	if err != nil {
		if plan != nil && errors.Is(err, domain.ErrGateway) {
			// Stored, but not yet purchasable
			log.Printf("[Plan] Plan %s saved without gateway ids: %v", plan.ID, err)
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"success": true,
				"data":    plan,
				"warning": "plan saved but not configured with the payment gateway",
			})
		}
		return domainError(c, "Plan", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    plan,
	})
}

// UpdatePlan handles PUT /v1/admin/plans/:id
func (h *PlanHandler) UpdatePlan(c *fiber.Ctx) error {
	req, err := parsePlanRequest(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err.Error())
	}

	plan, err := h.planService.Update(c.UserContext(), c.Params("id"), req.toPlan())
	if err != nil {
		return domainError(c, "Plan", err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    plan,
	})
}

// DeletePlan handles DELETE /v1/admin/plans/:id
func (h *PlanHandler) DeletePlan(c *fiber.Ctx) error {
	if err := h.planService.Delete(c.UserContext(), c.Params("id")); err != nil {
		return domainError(c, "Plan", err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "plan deleted",
	})
}

// ConfigureGateway handles POST /v1/admin/plans/:id/configure-gateway
func (h *PlanHandler) ConfigureGateway(c *fiber.Ctx) error {
	plan, err := h.planService.ConfigureWithGateway(c.UserContext(), c.Params("id"))
	if err != nil {
		return domainError(c, "Plan", err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    plan,
	})
}

func parsePlanRequest(c *fiber.Ctx) (*PlanRequest, error) {
	var req PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, errors.New("invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return nil, errors.New("name, price and interval (month|year) are required")
	}
	return &req, nil
}
