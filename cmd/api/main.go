package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/auth"
	"github.com/tor-rent/backend/internal/config"
	"github.com/tor-rent/backend/internal/db"
	"github.com/tor-rent/backend/internal/events"
	apphttp "github.com/tor-rent/backend/internal/http"
	"github.com/tor-rent/backend/internal/http/handlers"
	"github.com/tor-rent/backend/internal/middleware"
	"github.com/tor-rent/backend/internal/repositories"
	"github.com/tor-rent/backend/internal/services"
	"github.com/tor-rent/backend/migrations"
)

const (
	limiterIdle = 10 * time.Minute

	// API один (advisory lock), поэтому имя consumer'а постоянное: после
	// рестарта он дочитывает свои неподтверждённые депозиты.
	depositGroup    = "ledger"
	depositConsumer = "api"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if err := cfg.Validate(log); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}
	deployer, _ := cfg.Deployer()
	allocations, _ := cfg.Allocations()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}

	if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	releaseLock, err := db.AcquireLedgerLock(ctx, pool)
	if err != nil {
		log.Fatal("failed to lock ledger journal", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}

	// Repositories
	txRepo := repositories.NewTxRepo(pool)
	blockRepo := repositories.NewBlockRepo(pool)
	eventRepo := repositories.NewEventRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Ledger
	ledgerService := services.NewLedgerService(services.Genesis{
		Deployer:    deployer,
		TokenSupply: cfg.RentocoinInitialSupply,
		Allocations: allocations,
	}, txRepo, blockRepo, eventRepo, publisher, log)

	if _, err := ledgerService.Replay(ctx); err != nil {
		log.Fatal("failed to replay journal", zap.Error(err))
	}

	sealerDone := make(chan struct{})
	go func() {
		ledgerService.RunSealer(ctx, cfg.BlockInterval)
		close(sealerDone)
	}()

	deposits := events.NewRedisStream(rdb, depositGroup, depositConsumer, log)
	if err := ledgerService.ConsumeDeposits(ctx, deposits); err != nil {
		log.Fatal("failed to consume deposits", zap.Error(err))
	}

	submitLimiter := middleware.NewSubmitLimiter(cfg.SubmitRatePerSec, cfg.SubmitBurst)
	go func() {
		ticker := time.NewTicker(limiterIdle)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := submitLimiter.Sweep(limiterIdle); n > 0 {
					log.Debug("submit limiters swept", zap.Int("removed", n))
				}
			}
		}
	}()

	// Handlers
	authHandler := handlers.NewAuthHandler(auth.NewChallengeStore(rdb, cfg.LoginChallengeTTL), cfg, log)
	chainHandler := handlers.NewChainHandler(ledgerService, log)
	propertyHandler := handlers.NewPropertyHandler(ledgerService, log)
	agreementHandler := handlers.NewAgreementHandler(ledgerService, log)
	marketplaceHandler := handlers.NewMarketplaceHandler(ledgerService, log)
	tokenHandler := handlers.NewTokenHandler(ledgerService, log)
	wsHub := handlers.NewWSHub(subscriber, log)

	// Start WS hub
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to start ws hub", zap.Error(err))
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, submitLimiter,
		authHandler, chainHandler, propertyHandler, agreementHandler, marketplaceHandler, tokenHandler, wsHub)

	// Graceful shutdown
	shutdownDone := make(chan error, 1)
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		shutdownDone <- app.ShutdownWithTimeout(10 * time.Second)
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server",
		zap.String("addr", addr),
		zap.Duration("block_interval", cfg.BlockInterval),
	)
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}

	shutdownErr := <-shutdownDone

	// sealer дописывает последний блок после отмены контекста
	cancel()
	<-sealerDone

	releaseLock()
	err = multierr.Combine(shutdownErr, rdb.Close())
	pool.Close()
	if err != nil {
		log.Warn("shutdown finished with errors", zap.Error(err))
		return
	}
	log.Info("shutdown complete")
}
