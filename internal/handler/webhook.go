package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/service"
)

// ProviderWebhookPayload is the normalized shape our gateway accounts are
// configured to deliver. Reference identifies the charge; status is the
// provider's final verdict.
type ProviderWebhookPayload struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// ProviderWebhook receives confirmation callbacks for webhook-mode
// providers. The caller is authenticated with an HMAC signature over the
// raw body using the provider's secret key. Delivery is at-least-once, so
// duplicate callbacks for a confirmed attempt return 200.
func (h *Handler) ProviderWebhook(c *fiber.Ctx) error {
	prov := model.PaymentProvider(c.Params("provider"))
	if !prov.Known() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Unknown provider",
		})
	}

	gw, ok := h.cfg.Providers[prov]
	if !ok || gw.SecretKey == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Provider not configured",
		})
	}
	if !verifySignature(c.Body(), c.Get("X-Signature"), gw.SecretKey) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid signature",
		})
	}

	var payload ProviderWebhookPayload
	if err := c.BodyParser(&payload); err != nil || payload.Reference == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payload",
		})
	}

	switch strings.ToLower(payload.Status) {
	case "success", "successful", "completed", "confirmed", "paid":
		_, err := h.paymentSvc.ConfirmByProviderRef(c.Context(), payload.Reference)
		if err != nil && !errors.Is(err, service.ErrProvisioningFailed) {
			if errors.Is(err, service.ErrAttemptNotForRef) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Unknown reference",
				})
			}
			// A webhook for an attempt already failed or expired is a
			// stray; acknowledge so the provider stops retrying.
			return c.SendStatus(fiber.StatusOK)
		}
	case "failed", "declined", "cancelled", "reversed":
		if err := h.paymentSvc.FailByProviderRef(c.Context(), payload.Reference); err != nil {
			if errors.Is(err, service.ErrAttemptNotForRef) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Unknown reference",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to process callback",
			})
		}
	default:
		// Intermediate statuses carry no transition for us.
	}

	return c.SendStatus(fiber.StatusOK)
}

func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
