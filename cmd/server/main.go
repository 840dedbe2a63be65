package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/iameddypro/furaha-surfing/internal/config"
	"github.com/iameddypro/furaha-surfing/internal/handler"
	"github.com/iameddypro/furaha-surfing/internal/middleware"
	"github.com/iameddypro/furaha-surfing/internal/provider"
	"github.com/iameddypro/furaha-surfing/internal/repository"
	"github.com/iameddypro/furaha-surfing/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()
	sugar := zapLogger.Sugar()

	repo, err := repository.New(cfg.Database.DSN())
	if err != nil {
		sugar.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	// Services
	gateway := provider.NewGateway(cfg.Providers, sugar)
	packageSvc := service.NewPackageService(repo)
	routerSvc := service.NewRouterService(repo, sugar)
	grantSvc := service.NewGrantService(repo, routerSvc, sugar)
	paymentSvc := service.NewPaymentService(repo, gateway, grantSvc, routerSvc, sugar)
	voucherSvc := service.NewVoucherService(repo, grantSvc, sugar)

	// Handlers
	h := handler.New(cfg, packageSvc, paymentSvc, grantSvc, voucherSvc, routerSvc)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, X-Admin-Token",
	}))

	// Health and metrics
	app.Get("/health", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Captive portal API (no auth, the portal is the open network)
	api := app.Group("/api")
	api.Get("/packages", h.ListPackages)
	api.Post("/purchase", h.CreatePurchase)
	api.Get("/purchase/:id/status", h.GetPurchaseStatus)
	api.Post("/voucher/redeem", h.RedeemVoucher)

	// Provider callbacks (signature-verified per provider)
	app.Post("/webhook/:provider", h.ProviderWebhook)

	// Admin panel routes
	admin := app.Group("/api/admin", middleware.AdminAuth(cfg.Server.AdminToken))
	admin.Get("/packages", h.AdminListPackages)
	admin.Post("/packages", h.AdminCreatePackage)
	admin.Put("/packages/:id", h.AdminUpdatePackage)
	admin.Delete("/packages/:id", h.AdminDeletePackage)

	admin.Get("/vouchers", h.AdminListVouchers)
	admin.Post("/vouchers", h.AdminGenerateVouchers)
	admin.Get("/vouchers/:code", h.AdminGetVoucher)

	admin.Get("/payments", h.AdminListPayments)
	admin.Get("/grants/failed", h.AdminListFailedProvisioning)
	admin.Post("/grants/:id/revoke", h.AdminRevokeGrant)

	admin.Get("/routers", h.AdminListRouters)
	admin.Post("/routers", h.AdminCreateRouter)
	admin.Put("/routers/:id", h.AdminUpdateRouter)
	admin.Delete("/routers/:id", h.AdminDeleteRouter)
	admin.Post("/routers/:id/test", h.AdminTestRouter)
	admin.Get("/routers/:id/status", h.AdminGetRouterStatus)
	admin.Get("/routers/:id/sessions", h.AdminListRouterSessions)
	admin.Delete("/routers/:id/sessions/:entryId", h.AdminKickSession)

	// Background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pollWorker := service.NewPollWorker(repo, gateway, paymentSvc, sugar)
	go pollWorker.Start(ctx)

	reconciler := service.NewReconciler(repo, grantSvc, routerSvc, sugar)
	go reconciler.Start(ctx)

	healthWorker := service.NewHealthWorker(repo, routerSvc, sugar)
	go healthWorker.Start(ctx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		sugar.Info("Shutting down server...")
		cancel()
		_ = app.Shutdown()
	}()

	sugar.Infof("Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		sugar.Fatalf("Failed to start server: %v", err)
	}
}
