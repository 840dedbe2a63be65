package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/repository"
	"github.com/iameddypro/furaha-surfing/internal/service"
)

// Admin: packages

func (h *Handler) AdminListPackages(c *fiber.Ctx) error {
	packages, err := h.packageSvc.GetAllPackages(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load packages",
		})
	}
	return c.JSON(packages)
}

func (h *Handler) AdminCreatePackage(c *fiber.Ctx) error {
	var pkg model.Package
	if err := c.BodyParser(&pkg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if pkg.Name == "" || pkg.Price <= 0 || pkg.ValiditySeconds <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name, price and validity are required",
		})
	}

	if err := h.packageSvc.CreatePackage(c.Context(), &pkg); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create package",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(pkg)
}

func (h *Handler) AdminUpdatePackage(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid package ID",
		})
	}

	var pkg model.Package
	if err := c.BodyParser(&pkg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	pkg.ID = id

	if err := h.packageSvc.UpdatePackage(c.Context(), &pkg); err != nil {
		if errors.Is(err, repository.ErrPackageNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Package not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update package",
		})
	}
	return c.JSON(pkg)
}

func (h *Handler) AdminDeletePackage(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid package ID",
		})
	}

	if err := h.packageSvc.DeletePackage(c.Context(), id); err != nil {
		if errors.Is(err, repository.ErrPackageNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Package not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete package",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// Admin: vouchers

type GenerateVouchersRequest struct {
	PackageID string `json:"package_id"`
	Count     int    `json:"count"`
}

func (h *Handler) AdminGenerateVouchers(c *fiber.Ctx) error {
	var req GenerateVouchersRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	packageID, err := uuid.Parse(req.PackageID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid package ID",
		})
	}

	vouchers, err := h.voucherSvc.Generate(c.Context(), packageID, req.Count)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPackageNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Package not found",
			})
		case errors.Is(err, service.ErrBatchTooLarge):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to generate vouchers",
			})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(vouchers)
}

func (h *Handler) AdminListVouchers(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	offset := c.QueryInt("offset", 0)

	vouchers, err := h.voucherSvc.List(c.Context(), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load vouchers",
		})
	}
	return c.JSON(vouchers)
}

func (h *Handler) AdminGetVoucher(c *fiber.Ctx) error {
	code := strings.ToUpper(strings.TrimSpace(c.Params("code")))
	voucher, err := h.voucherSvc.GetByCode(c.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrVoucherNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Voucher not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load voucher",
		})
	}
	return c.JSON(voucher)
}

// Admin: payments and grants

func (h *Handler) AdminListPayments(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	attempts, err := h.paymentSvc.ListAttempts(c.Context(), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load payment attempts",
		})
	}
	return c.JSON(attempts)
}

func (h *Handler) AdminListFailedProvisioning(c *fiber.Ctx) error {
	grants, err := h.grantSvc.ListProvisioningFailed(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load grants",
		})
	}
	return c.JSON(grants)
}

func (h *Handler) AdminRevokeGrant(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid grant ID",
		})
	}

	if err := h.grantSvc.RevokeGrant(c.Context(), id); err != nil {
		if errors.Is(err, repository.ErrGrantNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Grant not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to revoke grant",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}
