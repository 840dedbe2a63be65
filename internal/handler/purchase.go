package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/provider"
	"github.com/iameddypro/furaha-surfing/internal/repository"
	"github.com/iameddypro/furaha-surfing/internal/service"
)

// CreatePurchase starts a purchase from the captive portal.
func (h *Handler) CreatePurchase(c *fiber.Ctx) error {
	var req model.PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.paymentSvc.CreatePurchase(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownProvider):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown payment provider",
			})
		case errors.Is(err, provider.ErrInvalidContact):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid phone number or email for this provider",
			})
		case errors.Is(err, repository.ErrPackageNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Package not found",
			})
		case errors.Is(err, service.ErrPackageInactive):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Package is no longer available",
			})
		case errors.Is(err, provider.ErrUnreachable), errors.Is(err, provider.ErrRejected):
			// The attempt row exists in a terminal failed state; the portal
			// shows the failure and lets the customer retry.
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":   "Payment could not be started",
				"attempt": result.Attempt,
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to start purchase",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetPurchaseStatus is polled by the portal while the customer approves
// the charge on their phone.
func (h *Handler) GetPurchaseStatus(c *fiber.Ctx) error {
	attemptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid purchase ID",
		})
	}

	status, err := h.paymentSvc.GetStatus(c.Context(), attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Purchase not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load purchase status",
		})
	}

	return c.JSON(status)
}
