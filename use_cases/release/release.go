package release

import (
	"context"

	"github.com/giovaniif/stock-records/domain/record"
	"github.com/giovaniif/stock-records/protocols"
	"github.com/giovaniif/stock-records/use_cases/change"
)

var operation = change.Operation{
	Name:  "release",
	Event: record.EventReleased,
	Apply: (*record.StockRecord).ReleaseReservation,
}

type Release struct {
	change *change.Change
}

func NewRelease(recordRepository record.Repository, eventPublisher protocols.EventPublisher) *Release {
	return &Release{
		change: change.NewChange(recordRepository, eventPublisher),
	}
}

func (r *Release) Release(ctx context.Context, input Input) (record.Snapshot, error) {
	return r.change.Apply(ctx, operation, input)
}

type Input = change.Input
