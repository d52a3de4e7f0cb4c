// Package kafka streams search history events through a Kafka topic with
// segmentio/kafka-go: the producer publishes them, the consumer applies them.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
)

// Config holds the stream settings.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes history events keyed by user id, so one user's events
// stay ordered within a partition.
type Producer struct {
	writer messageWriter
	logger *zap.Logger
}

// NewProducer creates a Producer for cfg.Topic.
func NewProducer(cfg Config, logger *zap.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: w, logger: logger.With(zap.String("topic", cfg.Topic))}
}

// Handle publishes e. It implements the history recorder's Handler.
func (p *Producer) Handle(ctx context.Context, e domhistory.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal history event: %w", err)
	}
	msg := kafka.Message{Key: []byte(e.UserID), Value: value}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish history event: %w", err)
	}
	p.logger.Debug("History event published", zap.String("user_id", e.UserID))
	return nil
}

// Close flushes pending writes.
func (p *Producer) Close() error {
	return p.writer.Close()
}
