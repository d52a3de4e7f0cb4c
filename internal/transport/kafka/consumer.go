package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	domhistory "github.com/kailas-cloud/unisearch/internal/domain/history"
)

// EventHandler applies one history event.
type EventHandler interface {
	Handle(ctx context.Context, e domhistory.Event) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads history events from the topic and hands them to an EventHandler.
type Consumer struct {
	reader  messageReader
	handler EventHandler
	logger  *zap.Logger
}

// NewConsumer creates a group consumer for cfg.Topic.
func NewConsumer(cfg Config, handler EventHandler, logger *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{reader: r, handler: handler, logger: logger.With(zap.String("topic", cfg.Topic))}
}

// Run consumes until ctx is cancelled. Malformed messages are committed and
// skipped; messages whose handling fails are left uncommitted.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("History consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("History consumer stopping")
				return nil
			}
			c.logger.Error("Failed to fetch history event", zap.Error(err))
			continue
		}

		if err := c.apply(ctx, msg); err != nil {
			c.logger.Error("Failed to apply history event",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit history event",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) apply(ctx context.Context, msg kafka.Message) error {
	var e domhistory.Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		c.logger.Warn("Skipping malformed history event",
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return nil
	}
	if err := c.handler.Handle(ctx, e); err != nil {
		return fmt.Errorf("handle event: %w", err)
	}
	return nil
}
