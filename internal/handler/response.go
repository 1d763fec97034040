package handler

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/elearning-billing/internal/domain"
)

var validate = validator.New()

func errorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// domainError maps service errors onto HTTP statuses. Unknown errors are logged and hidden.
func domainError(c *fiber.Ctx, tag string, err error) error {
	switch {
	case errors.Is(err, domain.ErrPlanNotFound):
		return errorResponse(c, fiber.StatusNotFound, "plan not found")
	case errors.Is(err, domain.ErrSubscriptionNotFound):
		return errorResponse(c, fiber.StatusNotFound, "subscription not found")
	case errors.Is(err, domain.ErrNotFound):
		return errorResponse(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrPlanNotConfigured):
		return errorResponse(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidPlan):
		return errorResponse(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		return errorResponse(c, fiber.StatusBadRequest, "invalid id")
	case errors.Is(err, domain.ErrGateway):
		log.Printf("[%s] Gateway error: %v", tag, err)
		return errorResponse(c, fiber.StatusBadGateway, "payment gateway unavailable")
	}
	log.Printf("[%s] Error: %v", tag, err)
	return errorResponse(c, fiber.StatusInternalServerError, "internal server error")
}
