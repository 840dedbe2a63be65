package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/repository"
	"github.com/iameddypro/furaha-surfing/internal/service"
)

// RedeemVoucher exchanges a printed voucher code for network access.
func (h *Handler) RedeemVoucher(c *fiber.Ctx) error {
	var req model.RedeemVoucherRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" || req.DeviceMAC == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Voucher code and device MAC are required",
		})
	}

	grant, err := h.voucherSvc.Redeem(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrVoucherNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Voucher code not found",
			})
		case errors.Is(err, repository.ErrVoucherAlreadyUsed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Voucher has already been used",
			})
		case errors.Is(err, service.ErrProvisioningFailed):
			// Access is recorded; the reconciler will push it as soon as
			// the router comes back.
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"grant":   grant,
				"message": "Access recorded, connection will activate shortly",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to redeem voucher",
			})
		}
	}

	return c.JSON(fiber.Map{
		"grant": grant,
	})
}
