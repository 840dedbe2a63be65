package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// AdminAuth guards the admin API with a shared bearer token delivered in
// the X-Admin-Token header.
func AdminAuth(adminToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if adminToken == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin API is disabled",
			})
		}

		token := c.Get("X-Admin-Token")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "access denied",
			})
		}

		return c.Next()
	}
}
