package handler

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/middleware"
)

// DeviceTokenHandler registers push tokens
type DeviceTokenHandler struct {
	tokenRepo domain.DeviceTokenRepository
}

func NewDeviceTokenHandler(tokenRepo domain.DeviceTokenRepository) *DeviceTokenHandler {
	return &DeviceTokenHandler{tokenRepo: tokenRepo}
}

type deviceTokenRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"omitempty,oneof=ios android web"`
}

// PutDeviceToken handles PUT /v1/me/device-token
func (h *DeviceTokenHandler) PutDeviceToken(c *fiber.Ctx) error {
	accountID := middleware.UserID(c)
	if accountID == "" {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req deviceTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "token is required")
	}

	token := &domain.DeviceToken{
		AccountID: accountID,
		Token:     req.Token,
		Platform:  req.Platform,
	}
	if err := h.tokenRepo.Upsert(c.UserContext(), token); err != nil {
		log.Printf("[DeviceToken] Failed to save token for %s: %v", accountID, err)
		return errorResponse(c, fiber.StatusInternalServerError, "failed to save device token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    token,
	})
}
