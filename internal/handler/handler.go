package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/iameddypro/furaha-surfing/internal/config"
	"github.com/iameddypro/furaha-surfing/internal/service"
)

type Handler struct {
	cfg        *config.Config
	packageSvc *service.PackageService
	paymentSvc *service.PaymentService
	grantSvc   *service.GrantService
	voucherSvc *service.VoucherService
	routerSvc  *service.RouterService
}

func New(
	cfg *config.Config,
	packageSvc *service.PackageService,
	paymentSvc *service.PaymentService,
	grantSvc *service.GrantService,
	voucherSvc *service.VoucherService,
	routerSvc *service.RouterService,
) *Handler {
	return &Handler{
		cfg:        cfg,
		packageSvc: packageSvc,
		paymentSvc: paymentSvc,
		grantSvc:   grantSvc,
		voucherSvc: voucherSvc,
		routerSvc:  routerSvc,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// ListPackages returns the active packages shown on the portal.
func (h *Handler) ListPackages(c *fiber.Ctx) error {
	packages, err := h.packageSvc.GetActivePackages(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load packages",
		})
	}
	return c.JSON(packages)
}
