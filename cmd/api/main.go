package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coupondrop/coupon-claim-system/internal/config"
	"github.com/coupondrop/coupon-claim-system/internal/handler"
	"github.com/coupondrop/coupon-claim-system/internal/repository"
	"github.com/coupondrop/coupon-claim-system/internal/service"
	"github.com/coupondrop/coupon-claim-system/internal/validator"
	"github.com/coupondrop/coupon-claim-system/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), cfg.DB.MaxRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	app := fiber.New(fiber.Config{
		AppName: "Coupon Claim System",
		// Client IP resolution behind proxies; the claim throttle keys on it.
		ProxyHeader:  fiber.HeaderXForwardedFor,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	validate := validator.New()

	// Layered wiring: repositories -> services -> handlers
	couponRepo := repository.NewCouponRepository(pool)
	claimRepo := repository.NewClaimRepository(pool)

	guard := service.NewThrottleGuard(claimRepo, cfg.Claim.Cooldown())
	claimService := service.NewClaimService(pool, couponRepo, claimRepo, guard, cfg.Claim.MaxRetries)
	couponService := service.NewCouponService(couponRepo, claimRepo)
	historyService := service.NewHistoryService(claimRepo)

	devMode := cfg.App.Development()
	claimHandler := handler.NewClaimHandler(claimService, cfg)
	couponHandler := handler.NewCouponHandler(couponService, validate, devMode)
	historyHandler := handler.NewHistoryHandler(historyService, devMode)
	healthHandler := handler.NewHealthHandler(pool)
	adminAuth := handler.NewAdminAuth(cfg.Auth.AdminToken)

	// Operational endpoints
	app.Get("/health", healthHandler.Check)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Public claim endpoints (registered before /api/coupons/:id)
	app.Post("/api/coupons/claim", claimHandler.ClaimCoupon)
	app.Get("/api/coupons/last-claimed", claimHandler.LastClaimed)

	// Admin coupon CRUD
	app.Get("/api/coupons", adminAuth, couponHandler.ListCoupons)
	app.Post("/api/coupons", adminAuth, couponHandler.CreateCoupon)
	app.Get("/api/coupons/:id", adminAuth, couponHandler.GetCoupon)
	app.Put("/api/coupons/:id", adminAuth, couponHandler.UpdateCoupon)
	app.Delete("/api/coupons/:id", adminAuth, couponHandler.DeleteCoupon)

	// Admin claim history
	app.Get("/api/history", adminAuth, historyHandler.List)
	app.Get("/api/history/ip/:ipAddress", adminAuth, historyHandler.ByIP)
	app.Get("/api/history/user/:userId", adminAuth, historyHandler.ByUser)
	app.Get("/api/history/coupon/:couponId", adminAuth, historyHandler.ByCoupon)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close the pool only after the server stops accepting requests.
	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
