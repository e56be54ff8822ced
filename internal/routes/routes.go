package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"github.com/example/loyalty/internal/config"
	"github.com/example/loyalty/internal/handlers"
	"github.com/example/loyalty/internal/middleware"
	"github.com/example/loyalty/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, rewardService *services.RewardService) {
	authHandler := handlers.NewAuthHandler(db, cfg)
	profileHandler := handlers.NewProfileHandler(db)
	scanHandler := handlers.NewScanHandler(db)
	productHandler := handlers.NewProductHandler(db)
	adminHandler := handlers.NewAdminHandler(db)
	rewardHandler := handlers.NewRewardHandler(db, rewardService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	api.Get("/products/qr/:code", productHandler.GetByQRCode)
	api.Get("/rewards/schedule", rewardHandler.Schedule)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret))

	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)
	protected.Get("/profile/transactions", profileHandler.ListTransactions)
	protected.Get("/profile/rewards/:year/:month", rewardHandler.GetMyReward)

	protected.Post("/scans", scanLimiter(cfg), scanHandler.CreateScan)
	protected.Get("/scans", scanHandler.ListScans)

	// Admin routes
	admin := protected.Group("/admin", middleware.AdminOnly())
	admin.Get("/stats", adminHandler.DashboardStats)
	admin.Get("/members", adminHandler.ListMembers)

	products := admin.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Post("/", productHandler.CreateProduct)
	products.Get("/:id", productHandler.GetProduct)
	products.Put("/:id", productHandler.UpdateProduct)
	products.Delete("/:id", productHandler.DeleteProduct)

	rewards := admin.Group("/rewards")
	rewards.Get("/:year/:month", rewardHandler.ListPeriod)
	rewards.Post("/:year/:month/calculate", rewardHandler.CalculateAll)
	rewards.Get("/:memberId/:year/:month", rewardHandler.GetReward)
	rewards.Post("/:memberId/:year/:month/calculate", rewardHandler.Calculate)
	rewards.Put("/:memberId/:year/:month/paid", rewardHandler.MarkPaid)
}

// scanLimiter throttles scan submissions per member.
func scanLimiter(cfg *config.Config) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.ScanRateLimit,
		Expiration: cfg.ScanRateWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id, ok := middleware.GetCurrentMemberID(c); ok {
				return id.String()
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many scans, slow down")
		},
	})
}
