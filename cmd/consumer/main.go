package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tracklive/internal/config"
	"tracklive/internal/journal"
	"tracklive/internal/logger"
)

const groupID = "tracklive-journal-tail"

// Tails the journal topic and prints every entry. Handy for watching what
// the tracker publishes without wiring a real downstream.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("TRACKER_KAFKA_BROKERS must be set for the consumer")
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        groupID,
		Topic:          cfg.KafkaTopic,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        3 * time.Second,
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Error("close kafka reader", zap.Error(err))
		}
	}()

	log.Info("consumer connected",
		zap.String("topic", cfg.KafkaTopic),
		zap.String("brokers", strings.Join(cfg.KafkaBrokers, ",")))

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("shutting down consumer")
				return
			}
			log.Error("read message", zap.Error(err))
			time.Sleep(5 * time.Second)
			continue
		}

		var entry journal.Entry
		if err := json.Unmarshal(m.Value, &entry); err != nil {
			log.Warn("skipping malformed entry",
				zap.Int64("offset", m.Offset), zap.Error(err))
			continue
		}

		log.Info("journal entry",
			zap.String("order", entry.Order),
			zap.String("status", string(entry.Status)),
			zap.Time("at", entry.At),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset))
	}
}
