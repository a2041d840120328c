package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/config"
	"github.com/tor-rent/backend/internal/http/handlers"
	"github.com/tor-rent/backend/internal/middleware"
)

// SetupRouter регистрирует маршруты. rdb == nil отключает лимит по IP.
func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	submitLimiter *middleware.SubmitLimiter,
	authHandler *handlers.AuthHandler,
	chainHandler *handlers.ChainHandler,
	propertyHandler *handlers.PropertyHandler,
	agreementHandler *handlers.AgreementHandler,
	marketplaceHandler *handlers.MarketplaceHandler,
	tokenHandler *handlers.TokenHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	app.Get("/health", chainHandler.Health)

	api := app.Group("/api/v1")
	api.Get("/health", chainHandler.Health)

	if rdb != nil {
		api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMin, time.Minute, log))
	}

	// Auth (public)
	api.Post("/auth/challenge", authHandler.Challenge)
	api.Post("/auth/login", authHandler.Login)
	api.Post("/auth/ton-proof", authHandler.TONProofLogin)

	// Reads (public)
	api.Get("/properties", propertyHandler.ListProperties)
	api.Get("/properties/:id", propertyHandler.GetProperty)
	api.Get("/agreements", agreementHandler.ListAgreements)
	api.Get("/agreements/:id", agreementHandler.GetAgreement)
	api.Get("/services", marketplaceHandler.ListServices)
	api.Get("/services/:id", marketplaceHandler.GetService)
	api.Get("/bookings", marketplaceHandler.ListBookings)
	api.Get("/bookings/:id", marketplaceHandler.GetBooking)
	api.Get("/token", tokenHandler.GetToken)
	api.Get("/token/balances/:address", tokenHandler.GetBalance)
	api.Get("/token/allowances/:owner/:spender", tokenHandler.GetAllowance)
	api.Get("/accounts/:address", chainHandler.GetAccount)
	api.Get("/txs/:hash", chainHandler.GetTx)
	api.Get("/blocks/latest", chainHandler.GetLatestBlock)
	api.Get("/blocks/:number", chainHandler.GetBlock)
	api.Get("/events", chainHandler.ListEvents)

	// Transactions (auth + per-account throttle)
	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret, log), submitLimiter.Handler())

	protected.Post("/txs", chainHandler.SubmitTx)

	// Properties
	protected.Post("/properties", propertyHandler.AddProperty)
	protected.Put("/properties/:id", propertyHandler.UpdateProperty)
	protected.Delete("/properties/:id", propertyHandler.DeleteProperty)

	// Agreements
	protected.Post("/agreements", agreementHandler.CreateAgreement)
	protected.Post("/agreements/:id/activate", agreementHandler.ActivateAgreement)
	protected.Post("/agreements/:id/terminate", agreementHandler.TerminateAgreement)

	// Marketplace
	protected.Post("/services", marketplaceHandler.AddService)
	protected.Put("/services/:id", marketplaceHandler.UpdateService)
	protected.Post("/services/:id/deactivate", marketplaceHandler.DeactivateService)
	protected.Post("/services/:id/book", marketplaceHandler.BookService)
	protected.Post("/bookings/:id/complete", marketplaceHandler.CompleteBooking)

	// Token
	protected.Post("/token/transfer", tokenHandler.Transfer)
	protected.Post("/token/approve", tokenHandler.Approve)
	protected.Post("/token/transfer-from", tokenHandler.TransferFrom)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
