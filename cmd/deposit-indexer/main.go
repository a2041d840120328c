package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"go.uber.org/zap"

	"github.com/tor-rent/backend/internal/config"
	"github.com/tor-rent/backend/internal/db"
	"github.com/tor-rent/backend/internal/events"
	"github.com/tor-rent/backend/internal/ton"
)

const pollInterval = 5 * time.Second

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TONHotWalletAddress == "" {
		log.Fatal("TON_HOT_WALLET_ADDRESS is required")
	}
	if cfg.DepositNanoPerUnit == 0 {
		log.Fatal("DEPOSIT_NANO_PER_UNIT must be positive")
	}

	hotWallet, err := address.ParseAddr(cfg.TONHotWalletAddress)
	if err != nil {
		log.Fatal("invalid TON_HOT_WALLET_ADDRESS", zap.String("addr", cfg.TONHotWalletAddress), zap.Error(err))
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// индексатор только пишет в stream, группа и consumer не нужны
	deposits := events.NewRedisStream(rdb, "", "", log)

	api, err := ton.Connect(ctx, cfg.TONNetwork, cfg.LiteServerHost, cfg.LiteServerPort, cfg.LiteServerKey, log)
	if err != nil {
		log.Fatal("failed to connect to TON network", zap.Error(err))
	}

	watcher := ton.NewWatcher(api, hotWallet, rdb, log)
	if err := watcher.Init(ctx); err != nil {
		log.Fatal("failed to init cursor", zap.Error(err))
	}

	log.Info("deposit indexer started",
		zap.String("hot_wallet", hotWallet.String()),
		zap.String("network", cfg.TONNetwork),
		zap.String("memo_prefix", cfg.DepositMemoPrefix),
		zap.Uint64("nano_per_unit", cfg.DepositNanoPerUnit),
	)

	handle := func(ctx context.Context, t ton.Transfer) error {
		e, err := ton.DepositEvent(t, cfg.DepositMemoPrefix, cfg.DepositNanoPerUnit)
		if err != nil {
			// не наш перевод: логируем и идём дальше, курсор сдвинется
			level := log.Warn
			if errors.Is(err, ton.ErrNoMemo) {
				level = log.Debug
			}
			level("transfer skipped",
				zap.Uint64("lt", t.LT),
				zap.String("from", t.From),
				zap.String("amount", tlb.FromNanoTON(t.AmountNano).String()),
				zap.Error(err),
			)
			return nil
		}

		// запись в stream переживает рестарт API; ошибка не сдвигает курсор,
		// а повтор безопасен, ledger зачисляет ref один раз
		if err := deposits.Append(ctx, events.StreamDeposits, e); err != nil {
			return err
		}
		log.Info("deposit detected",
			zap.String("ref", t.Ref()),
			zap.String("from", t.From),
			zap.String("amount", tlb.FromNanoTON(t.AmountNano).String()),
			zap.Any("account", e.Payload["account"]),
		)
		return nil
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			n, err := watcher.Poll(ctx, handle)
			if err != nil {
				log.Error("poll cycle failed", zap.Int("handled", n), zap.Error(err))
			} else if n > 0 {
				log.Info("poll cycle done", zap.Int("transfers", n))
			}
		case <-sigCh:
			log.Info("shutting down deposit indexer")
			return
		case <-ctx.Done():
			return
		}
	}
}
