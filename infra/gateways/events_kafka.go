package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/giovaniif/stock-records/domain/record"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventPublisherKafka keys messages by record so events of one record stay ordered.
type EventPublisherKafka struct {
	writer messageWriter
	logger *zap.Logger
}

func NewEventPublisherKafka(brokers []string, topic string, logger *zap.Logger) *EventPublisherKafka {
	return &EventPublisherKafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		logger: logger,
	}
}

func (p *EventPublisherKafka) Publish(ctx context.Context, events ...record.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", e.Id, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(e.Key()),
			Value:   value,
			Time:    e.OccurredAt,
			Headers: []kafka.Header{{Key: "event-type", Value: []byte(e.Type)}},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("failed to publish stock events", zap.Int("count", len(msgs)), zap.Error(err))
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *EventPublisherKafka) Close() error {
	return p.writer.Close()
}
