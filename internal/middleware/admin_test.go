package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newAdminApp(token string) *fiber.App {
	app := fiber.New()
	app.Get("/admin/ping", AdminAuth(token), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	return app
}

func TestAdminAuth_ValidToken(t *testing.T) {
	app := newAdminApp("s3cret")

	req := httptest.NewRequest("GET", "/admin/ping", nil)
	req.Header.Set("X-Admin-Token", "s3cret")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAdminAuth_MissingToken(t *testing.T) {
	app := newAdminApp("s3cret")

	resp, err := app.Test(httptest.NewRequest("GET", "/admin/ping", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminAuth_WrongToken(t *testing.T) {
	app := newAdminApp("s3cret")

	req := httptest.NewRequest("GET", "/admin/ping", nil)
	req.Header.Set("X-Admin-Token", "guess")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminAuth_DisabledWithoutConfiguredToken(t *testing.T) {
	app := newAdminApp("")

	req := httptest.NewRequest("GET", "/admin/ping", nil)
	req.Header.Set("X-Admin-Token", "")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
