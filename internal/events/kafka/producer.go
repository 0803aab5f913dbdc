package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ems-platform/auth-service/internal/config"
	"github.com/ems-platform/auth-service/internal/events"
)

// envelope wraps every published payload with routing metadata so consumers
// can dispatch on type without parsing the payload.
type envelope struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Source  string      `json:"source"`
	Time    time.Time   `json:"time"`
	Payload interface{} `json:"payload"`
}

// Producer publishes auth lifecycle events to a single Kafka topic, keyed by
// employee id so per-employee ordering is preserved.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
	source string
}

// NewProducer creates a Kafka producer for the configured topic.
func NewProducer(cfg config.KafkaConfig, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Producer{
		writer: writer,
		logger: logger,
		source: "auth-service",
	}
}

func (p *Producer) Publish(ctx context.Context, eventType string, key string, payload interface{}) error {
	value, err := json.Marshal(envelope{
		ID:      uuid.NewString(),
		Type:    eventType,
		Source:  p.source,
		Time:    time.Now().UTC(),
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", eventType, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		p.logger.Error("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to publish event %s: %w", eventType, err)
	}

	p.logger.Debug("event published",
		zap.String("event_type", eventType),
		zap.String("key", key))
	return nil
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}

var _ events.Publisher = (*Producer)(nil)
