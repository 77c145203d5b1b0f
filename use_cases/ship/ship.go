package ship

import (
	"context"

	"github.com/giovaniif/stock-records/domain/record"
	"github.com/giovaniif/stock-records/protocols"
	"github.com/giovaniif/stock-records/use_cases/change"
)

var operation = change.Operation{
	Name:  "ship",
	Event: record.EventShipped,
	Apply: (*record.StockRecord).ShipReserved,
}

type Ship struct {
	change *change.Change
}

func NewShip(recordRepository record.Repository, eventPublisher protocols.EventPublisher) *Ship {
	return &Ship{
		change: change.NewChange(recordRepository, eventPublisher),
	}
}

func (s *Ship) Ship(ctx context.Context, input Input) (record.Snapshot, error) {
	return s.change.Apply(ctx, operation, input)
}

type Input = change.Input
