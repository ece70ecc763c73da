package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
)

// MessageReader is the part of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// RetryDelay is the first redelivery delay after a failed handler call.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

func NewReader(cfg ConsumerConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
}

// Consumer feeds invitation events to a handler and commits each offset only
// once the handler accepted the message or it was deliberately dropped.
type Consumer struct {
	reader MessageReader
	handle EventHandler
	cfg    ConsumerConfig
	logger *zap.Logger
}

func NewConsumer(reader MessageReader, handle EventHandler, cfg ConsumerConfig, logger *zap.Logger) *Consumer {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = 30 * time.Second
	}
	return &Consumer{reader: reader, handle: handle, cfg: cfg, logger: logger}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Consumer started", zap.String("topic", c.cfg.Topic), zap.String("group_id", c.cfg.GroupID))
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Context cancelled, exiting message loop")
				return nil
			}
			c.logger.Error("Error reading message", zap.Error(err))
			if !sleep(ctx, 5*time.Second) {
				return nil
			}
			continue
		}

		if err := c.process(ctx, m); err != nil {
			// only cancellation gets here; the offset stays uncommitted
			return nil
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to commit offset", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

// process returns an error only when ctx ended before the message was
// handled.
func (c *Consumer) process(ctx context.Context, m kafka.Message) error {
	l := c.logger.With(zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.ByteString("key", m.Key))

	eventType := header(m, lockbox.EventTypeAttribute)
	if !wanted(eventType) {
		l.Debug("Skipping message outside the subscription", zap.String("event_type", eventType))
		return nil
	}

	var e lockbox.InvitationEvent
	if err := json.Unmarshal(m.Value, &e); err != nil {
		l.Warn("Dropping malformed message", zap.Error(err))
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryDelay
	b.MaxInterval = c.cfg.MaxRetryDelay

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := c.handle(ctx, e)
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, lockbox.ErrBadRequest) {
			l.Warn("Dropping event the handler refused", zap.String("event_id", e.EventID), zap.Error(err))
			return struct{}{}, nil
		}
		l.Warn("Handler failed, redelivering", zap.String("event_id", e.EventID), zap.Error(err))
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(0))
	return err
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
