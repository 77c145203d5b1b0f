package protocols

import (
	"context"

	"github.com/giovaniif/stock-records/domain/record"
)

type EventPublisher interface {
	Publish(ctx context.Context, events ...record.Event) error
	Close() error
}
