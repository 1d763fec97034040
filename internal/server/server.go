package server

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/elearning-billing/internal/config"
	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/mansoorceksport/elearning-billing/internal/handler"
	"github.com/mansoorceksport/elearning-billing/internal/middleware"
	"github.com/mansoorceksport/elearning-billing/internal/repository"
	"github.com/mansoorceksport/elearning-billing/internal/service"
	"github.com/mansoorceksport/elearning-billing/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const idempotencyTTL = 24 * time.Hour

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	Gateway     service.PaymentGateway // nil selects one from Config.Stripe
	Archive     domain.PayloadArchive  // optional
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	cfg := deps.Config

	// Initialize repositories
	planRepo := repository.NewMongoPlanRepository(deps.MongoDB)
	subRepo := repository.NewMongoSubscriptionRepository(deps.MongoDB)
	paymentRepo := repository.NewMongoPaymentRepository(deps.MongoDB)
	learnerRepo := repository.NewMongoLearnerRepository(deps.MongoDB)
	accountRepo := repository.NewMongoAccountRepository(deps.MongoDB)
	journalRepo := repository.NewMongoWebhookEventRepository(deps.MongoDB)
	deviceTokenRepo := repository.NewMongoDeviceTokenRepository(deps.MongoDB)

	var cache domain.EntitlementCache
	if deps.RedisClient != nil {
		cache = repository.NewRedisCacheRepository(deps.RedisClient)
	}

	gateway := deps.Gateway
	if gateway == nil {
		gateway = service.NewPaymentGateway(cfg.Stripe)
	}

	// Initialize services
	ledger := service.NewPaymentLedger(paymentRepo)
	provisioner := service.NewLearnerProvisioner(learnerRepo, subRepo)
	reconciler := service.NewSubscriptionReconciler(subRepo, planRepo, accountRepo, gateway, ledger, provisioner, cache)
	dispatcher := service.NewWebhookDispatcher(gateway, reconciler, journalRepo, deps.Archive)
	checkoutService := service.NewCheckoutService(planRepo, gateway, cfg.Checkout)
	entitlementService := service.NewEntitlementService(learnerRepo, subRepo, planRepo, ledger, cache,
		time.Duration(cfg.Redis.EntitlementTTL)*time.Second)
	planService := service.NewPlanService(planRepo, gateway)

	// Initialize handlers
	checkoutHandler := handler.NewCheckoutHandler(checkoutService)
	webhookHandler := handler.NewWebhookHandler(dispatcher, journalRepo, cfg.IsDevelopment())
	entitlementHandler := handler.NewEntitlementHandler(entitlementService)
	planHandler := handler.NewPlanHandler(planService)
	deviceTokenHandler := handler.NewDeviceTokenHandler(deviceTokenRepo)

	bodyLimitMB := cfg.Server.BodyLimitMB
	if bodyLimitMB <= 0 {
		bodyLimitMB = 1
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "E-Learning Billing API",
		BodyLimit:    int(bodyLimitMB * 1024 * 1024),
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(telemetry.FiberMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID, X-Platform",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "elearning-billing",
		})
	})

	// Payment processor webhooks (public, signature-authenticated)
	app.Post("/webhook", webhookHandler.StripeWebhook)

	// API v1 routes
	v1 := app.Group("/v1")
	v1.Post("/webhooks/stripe", webhookHandler.StripeWebhook)

	// Plan catalog (public)
	v1.Get("/plans", planHandler.ListPlans)
	v1.Get("/plans/:id", planHandler.GetPlan)

	// ===========================================
	// LEARNER API - /v1/me/* (requires 'learner' role)
	// ===========================================
	me := v1.Group("/me")
	me.Use(middleware.VerifyAccessToken(cfg.JWT.Secret))
	me.Use(middleware.AuthorizeRole(domain.RoleLearner))

	idempotent := middleware.IdempotencyMiddleware(deps.RedisClient, idempotencyTTL)
	me.Post("/checkout-session", idempotent, checkoutHandler.CreateSession)
	me.Post("/payment-intent", idempotent, checkoutHandler.CreatePaymentIntent)
	me.Get("/entitlement", entitlementHandler.GetMyEntitlement)
	me.Get("/subscription", entitlementHandler.GetMySubscription)
	me.Put("/device-token", deviceTokenHandler.PutDeviceToken)

	// ===========================================
	// ENTITLEMENT GATE - for enrollment services and admins
	// ===========================================
	entitlements := v1.Group("/entitlements")
	entitlements.Use(middleware.VerifyAccessToken(cfg.JWT.Secret))
	entitlements.Use(middleware.AuthorizeRole(domain.RoleAdmin, domain.RoleService))
	entitlements.Get("/:learner_id", entitlementHandler.GetEntitlement)

	// ===========================================
	// ADMIN API - /v1/admin/* (requires 'admin' role)
	// ===========================================
	admin := v1.Group("/admin")
	admin.Use(middleware.VerifyAccessToken(cfg.JWT.Secret))
	admin.Use(middleware.AuthorizeRole(domain.RoleAdmin))

	adminPlans := admin.Group("/plans")
	adminPlans.Post("/", planHandler.CreatePlan)
	adminPlans.Put("/:id", planHandler.UpdatePlan)
	adminPlans.Delete("/:id", planHandler.DeletePlan)
	adminPlans.Post("/:id/configure-gateway", planHandler.ConfigureGateway)

	admin.Get("/webhook-events", webhookHandler.ListEvents)

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	log.Printf("Error: %v", err)
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
