package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/config"
	"github.com/tor-rent/backend/internal/db"
	"github.com/tor-rent/backend/internal/events"
	"github.com/tor-rent/backend/internal/notify"
)

// Notify Bridge: подписывается на события ledger в Redis и пересылает их
// во внешний webhook с подписью HMAC.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if cfg.NotifyWebhookURL == "" {
		log.Fatal("NOTIFY_WEBHOOK_URL is not set")
	}
	if cfg.NotifyWebhookSecret == "" {
		log.Warn("NOTIFY_WEBHOOK_SECRET is empty, requests are not signed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	forwarder := notify.NewForwarder(cfg.NotifyWebhookURL, cfg.NotifyWebhookSecret, cfg.NotifyTimeout, log,
		notify.WithContracts(cfg.NotifyContracts))

	if err := forwarder.Run(ctx, events.NewRedisSubscriber(rdb, log)); err != nil {
		log.Fatal("failed to start forwarder", zap.Error(err))
	}

	log.Info("notify-bridge started",
		zap.String("url", cfg.NotifyWebhookURL),
		zap.Strings("contracts", cfg.NotifyContracts),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down notify-bridge")
	cancel()
}
