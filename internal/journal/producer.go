//go:generate mockgen -source ./producer.go -destination=./mocks/producer.go -package=journal_mocks
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tracklive/internal/track"
)

// Entry is one accepted status event as it goes downstream.
type Entry struct {
	ID     string       `json:"id"`
	Order  string       `json:"order"`
	Status track.Status `json:"status"`
	At     time.Time    `json:"at"`
}

// Producer publishes entry batches downstream.
type Producer interface {
	Publish(ctx context.Context, entries []Entry) error
	Close() error
}

// KafkaProducer writes entries to a Kafka topic keyed by order, so one
// order's events land on one partition in order.
type KafkaProducer struct {
	writer *kafka.Writer
}

var _ Producer = (*KafkaProducer)(nil)

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 100 * time.Millisecond,
		},
	}
}

func (p *KafkaProducer) Publish(ctx context.Context, entries []Entry) error {
	msgs := make([]kafka.Message, 0, len(entries))
	for _, e := range entries {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal journal entry %s: %w", e.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Order),
			Value: value,
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write journal batch: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// ConsoleProducer logs batches instead of publishing them. It backs the
// journal when no brokers are configured.
type ConsoleProducer struct {
	log *zap.Logger
}

var _ Producer = (*ConsoleProducer)(nil)

func NewConsoleProducer(log *zap.Logger) *ConsoleProducer {
	return &ConsoleProducer{log: log.With(zap.String("component", "journal"))}
}

func (p *ConsoleProducer) Publish(_ context.Context, entries []Entry) error {
	for _, e := range entries {
		p.log.Info("journal entry",
			zap.String("id", e.ID),
			zap.String("order", e.Order),
			zap.String("status", string(e.Status)),
			zap.Time("at", e.At))
	}
	return nil
}

func (p *ConsoleProducer) Close() error { return nil }
