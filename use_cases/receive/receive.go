package receive

import (
	"context"

	"github.com/giovaniif/stock-records/domain/record"
	"github.com/giovaniif/stock-records/protocols"
	"github.com/giovaniif/stock-records/use_cases/change"
)

var operation = change.Operation{
	Name:  "receive",
	Event: record.EventReceived,
	Apply: (*record.StockRecord).AddStock,
}

type Receive struct {
	change *change.Change
}

func NewReceive(recordRepository record.Repository, eventPublisher protocols.EventPublisher) *Receive {
	return &Receive{
		change: change.NewChange(recordRepository, eventPublisher),
	}
}

func (r *Receive) Receive(ctx context.Context, input Input) (record.Snapshot, error) {
	return r.change.Apply(ctx, operation, input)
}

type Input = change.Input
