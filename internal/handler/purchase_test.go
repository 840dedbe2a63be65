package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iameddypro/furaha-surfing/internal/config"
	"github.com/iameddypro/furaha-surfing/internal/model"
	"github.com/iameddypro/furaha-surfing/internal/provider"
	"github.com/iameddypro/furaha-surfing/internal/repository"
	"github.com/iameddypro/furaha-surfing/internal/service"
)

// newTestApp wires the portal routes over a sqlmock-backed repository.
func newTestApp(t *testing.T, adapter provider.Adapter) (*fiber.App, sqlmock.Sqlmock, *config.Config) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Providers: map[model.PaymentProvider]config.GatewayConfig{
			model.PaymentProviderPaystack: {BaseURL: "http://paystack.test", SecretKey: "whsec"},
		},
	}
	repo := repository.NewWithDB(sqlx.NewDb(db, "sqlmock"))
	log := zap.NewNop().Sugar()

	packageSvc := service.NewPackageService(repo)
	routerSvc := service.NewRouterService(repo, log)
	grantSvc := service.NewGrantService(repo, routerSvc, log)
	paymentSvc := service.NewPaymentService(repo, adapter, grantSvc, routerSvc, log)
	voucherSvc := service.NewVoucherService(repo, grantSvc, log)

	h := New(cfg, packageSvc, paymentSvc, grantSvc, voucherSvc, routerSvc)

	app := fiber.New()
	app.Post("/api/purchase", h.CreatePurchase)
	app.Get("/api/purchase/:id/status", h.GetPurchaseStatus)
	app.Post("/webhook/:provider", h.ProviderWebhook)
	app.Post("/api/admin/routers", h.AdminCreateRouter)
	app.Put("/api/admin/routers/:id", h.AdminUpdateRouter)
	return app, mock, cfg
}

func TestCreatePurchase_BadProvider(t *testing.T) {
	app, mock, _ := newTestApp(t, nil)

	body := `{"provider":"cash","package_id":"` + uuid.NewString() + `","contact":"255712345678"}`
	req := httptest.NewRequest("POST", "/api/purchase", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePurchase_InvalidContact(t *testing.T) {
	app, mock, _ := newTestApp(t, nil)

	body := `{"provider":"vodacom","package_id":"` + uuid.NewString() + `","contact":"12345"}`
	req := httptest.NewRequest("POST", "/api/purchase", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPurchaseStatus_NotFound(t *testing.T) {
	app, mock, _ := newTestApp(t, nil)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM payment_attempts WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/purchase/"+id.String()+"/status", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetPurchaseStatus_Pending(t *testing.T) {
	app, mock, _ := newTestApp(t, nil)
	id := uuid.New()
	ref := "ref-77"

	mock.ExpectQuery(`SELECT \* FROM payment_attempts WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "provider", "package_id", "router_id", "amount", "currency", "contact",
			"device_mac", "state", "provider_ref", "failure_code", "poll_attempts",
			"created_at", "confirmed_at",
		}).AddRow(id, model.PaymentProviderVodacom, uuid.New(), uuid.New(),
			int64(2000), "TZS", "255712345678", nil, model.PaymentStateProviderPending,
			&ref, nil, 3, time.Now(), nil))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/purchase/"+id.String()+"/status", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var status struct {
		Attempt model.PaymentAttempt `json:"attempt"`
		Message string               `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, model.PaymentStateProviderPending, status.Attempt.State)
	require.NotEmpty(t, status.Message)
}

func TestProviderWebhook_RejectsBadSignature(t *testing.T) {
	app, mock, _ := newTestApp(t, nil)

	body := `{"reference":"ref-1","status":"success"}`
	req := httptest.NewRequest("POST", "/webhook/paystack", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", "deadbeef")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderWebhook_UnknownProvider(t *testing.T) {
	app, _, _ := newTestApp(t, nil)

	req := httptest.NewRequest("POST", "/webhook/cash", strings.NewReader(`{}`))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestProviderWebhook_UnknownReference(t *testing.T) {
	app, mock, cfg := newTestApp(t, nil)

	body := `{"reference":"ref-unknown","status":"success"}`
	sig := signBody(body, cfg.Providers[model.PaymentProviderPaystack].SecretKey)

	mock.ExpectQuery(`SELECT \* FROM payment_attempts WHERE provider_ref = \$1`).
		WithArgs("ref-unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := httptest.NewRequest("POST", "/webhook/paystack", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", sig)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func signBody(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}
