package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tracklive/internal/config"
	"tracklive/internal/engine"
	"tracklive/internal/hub"
	"tracklive/internal/journal"
	"tracklive/internal/logger"
	"tracklive/internal/server"
	"tracklive/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("store init", zap.Error(err))
	}
	defer closeStore()

	if cfg.WebhookToken == "" && cfg.WebhookSecret == "" {
		log.Warn("webhook ingest accepts unauthenticated calls")
	}

	jr := journal.New(buildProducer(cfg, log), journal.Config{}, log)
	jr.Start(ctx)

	h := hub.New(st, cfg.SubscriberBuffer, log)
	eng := engine.New(st, h, jr, log)

	srv := server.New(eng, server.Config{
		Addr:              cfg.HTTPAddr,
		WebhookToken:      cfg.WebhookToken,
		WebhookSecret:     cfg.WebhookSecret,
		AdminPasswordHash: cfg.AdminPasswordHash,
	}, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		eng.Janitor(gctx, cfg.OrderTTL, cfg.SweepInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("stopping after failure", zap.Error(err))
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	jr.Shutdown(drainCtx)

	log.Info("tracker stopped")
}

func buildStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory order store")
		return store.NewMemory(nil), func() {}, nil
	}

	db, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	pg := store.NewPostgres(db, nil)
	if err := pg.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}

	log.Info("using postgres order store")
	return pg, db.Close, nil
}

func buildProducer(cfg *config.Config, log *zap.Logger) journal.Producer {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("journal writing to log only")
		return journal.NewConsoleProducer(log)
	}

	log.Info("journal publishing to kafka",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic))
	return journal.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
}
