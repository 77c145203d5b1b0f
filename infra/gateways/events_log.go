package gateways

import (
	"context"

	"go.uber.org/zap"

	"github.com/giovaniif/stock-records/domain/record"
)

// EventPublisherLog is used when no broker is configured.
type EventPublisherLog struct {
	logger *zap.Logger
}

func NewEventPublisherLog(logger *zap.Logger) *EventPublisherLog {
	return &EventPublisherLog{logger: logger}
}

func (p *EventPublisherLog) Publish(ctx context.Context, events ...record.Event) error {
	for _, e := range events {
		p.logger.Info("stock event",
			zap.String("event_id", e.Id),
			zap.String("type", string(e.Type)),
			zap.String("record", e.Key()),
			zap.Int32("amount", e.Amount),
			zap.Int32("on_hand", e.Record.OnHand),
			zap.Int32("reserved", e.Record.Reserved),
			zap.Int32("available", e.Record.Available),
		)
	}
	return nil
}

func (p *EventPublisherLog) Close() error {
	return nil
}
