//go:generate mockgen -source ./producer.go -destination=./mocks/producer.go -package=mock_kafka
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/lockbox/internal/lockbox"
)

// Message is what the outbox relay hands to a transport. Headers carry the
// attributes subscribers filter on.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type Producer interface {
	SendMessage(ctx context.Context, msg Message) error
	Close() error
}

// KafkaProducer publishes through a kafka-go writer. Messages are hashed
// onto partitions by key, so one box's events stay in order.
type KafkaProducer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaProducer(brokers []string, logger *zap.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

func (p *KafkaProducer) SendMessage(ctx context.Context, msg Message) error {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("writing to topic %s: %w", msg.Topic, err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	p.logger.Info("Closing Kafka producer")
	return p.writer.Close()
}

// EventHandler consumes one decoded invitation event.
type EventHandler func(ctx context.Context, e lockbox.InvitationEvent) error

// LoopbackProducer delivers messages straight to an in-process handler. A
// handler error fails the send, so the outbox retries it like a broker
// outage.
type LoopbackProducer struct {
	handle EventHandler
	logger *zap.Logger
}

func NewLoopbackProducer(handle EventHandler, logger *zap.Logger) *LoopbackProducer {
	logger.Info("Initialized loopback event bus")
	return &LoopbackProducer{handle: handle, logger: logger}
}

func (p *LoopbackProducer) SendMessage(ctx context.Context, msg Message) error {
	if !wanted(msg.Headers[lockbox.EventTypeAttribute]) {
		p.logger.Debug("Loopback skipping message", zap.String("topic", msg.Topic))
		return nil
	}
	var e lockbox.InvitationEvent
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		p.logger.Warn("Loopback dropping malformed message", zap.Error(err))
		return nil
	}
	return p.handle(ctx, e)
}

func (p *LoopbackProducer) Close() error {
	return nil
}

// wanted is the subscription filter on the eventType attribute.
func wanted(eventType string) bool {
	_, ok := lockbox.EventType(eventType).GuardianStatus()
	return ok
}
