package reserve

import (
	"context"

	"github.com/giovaniif/stock-records/domain/record"
	"github.com/giovaniif/stock-records/protocols"
	"github.com/giovaniif/stock-records/use_cases/change"
)

var operation = change.Operation{
	Name:  "reserve",
	Event: record.EventReserved,
	Apply: (*record.StockRecord).Reserve,
}

type Reserve struct {
	change *change.Change
}

func NewReserve(recordRepository record.Repository, eventPublisher protocols.EventPublisher) *Reserve {
	return &Reserve{
		change: change.NewChange(recordRepository, eventPublisher),
	}
}

func (r *Reserve) Reserve(ctx context.Context, input Input) (record.Snapshot, error) {
	return r.change.Apply(ctx, operation, input)
}

type Input = change.Input
