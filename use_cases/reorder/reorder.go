package reorder

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/giovaniif/stock-records/domain/record"
	"github.com/giovaniif/stock-records/protocols"
)

type Reorder struct {
	recordRepository record.Repository
	eventPublisher   protocols.EventPublisher
}

func NewReorder(recordRepository record.Repository, eventPublisher protocols.EventPublisher) *Reorder {
	return &Reorder{
		recordRepository: recordRepository,
		eventPublisher:   eventPublisher,
	}
}

// Pending lists the records whose available quantity is at or below their threshold.
func (r *Reorder) Pending(ctx context.Context) ([]record.Snapshot, error) {
	pending, err := r.pending(ctx)
	if err != nil {
		return nil, err
	}
	return snapshots(pending), nil
}

// Notify publishes a reorder event for every pending record.
func (r *Reorder) Notify(ctx context.Context) (Output, error) {
	ctx, span := otel.Tracer("stock").Start(ctx, "reorder.notify")
	defer span.End()

	pending, err := r.pending(ctx)
	if err != nil {
		span.RecordError(err)
		return Output{}, err
	}
	if len(pending) == 0 {
		return Output{}, nil
	}

	events := make([]record.Event, 0, len(pending))
	for _, p := range pending {
		events = append(events, record.NewEvent(record.EventReorderNeeded, 0, p))
	}
	if err := r.eventPublisher.Publish(ctx, events...); err != nil {
		return Output{Records: snapshots(pending)}, err
	}
	return Output{Records: snapshots(pending), Published: len(events)}, nil
}

func (r *Reorder) pending(ctx context.Context) ([]*record.StockRecord, error) {
	records, err := r.recordRepository.List(ctx)
	if err != nil {
		return nil, err
	}
	var pending []*record.StockRecord
	for _, rec := range records {
		if rec.IsReorderNeeded() {
			pending = append(pending, rec)
		}
	}
	return pending, nil
}

func snapshots(records []*record.StockRecord) []record.Snapshot {
	out := make([]record.Snapshot, 0, len(records))
	for _, r := range records {
		out = append(out, r.Snapshot())
	}
	return out
}

type Output struct {
	Records   []record.Snapshot
	Published int
}
