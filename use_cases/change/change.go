package change

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/giovaniif/stock-records/domain/record"
	"github.com/giovaniif/stock-records/protocols"
)

const tracerName = "stock"

// Operation is one quantity mutation of a stock record.
type Operation struct {
	Name  string
	Event record.EventType
	Apply func(r *record.StockRecord, amount int32) error
}

type Change struct {
	recordRepository record.Repository
	eventPublisher   protocols.EventPublisher
}

func NewChange(recordRepository record.Repository, eventPublisher protocols.EventPublisher) *Change {
	return &Change{
		recordRepository: recordRepository,
		eventPublisher:   eventPublisher,
	}
}

// Apply runs op against the stored record and publishes the resulting events.
// A publish failure is recorded on the span but does not fail the call: the
// mutation is already committed.
func (c *Change) Apply(ctx context.Context, op Operation, input Input) (record.Snapshot, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, op.Name, trace.WithAttributes(
		attribute.String("stock.product_id", input.ProductID),
		attribute.String("stock.location", input.Location),
		attribute.Int("stock.amount", int(input.Amount)),
	))
	defer span.End()

	var crossedThreshold bool
	updated, err := c.recordRepository.Update(ctx, input.ProductID, input.Location, func(r *record.StockRecord) error {
		wasNeeded := r.IsReorderNeeded()
		if err := op.Apply(r, input.Amount); err != nil {
			return err
		}
		crossedThreshold = !wasNeeded && r.IsReorderNeeded()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return record.Snapshot{}, err
	}

	events := []record.Event{record.NewEvent(op.Event, input.Amount, updated)}
	if crossedThreshold {
		events = append(events, record.NewEvent(record.EventReorderNeeded, 0, updated))
	}
	if err := c.eventPublisher.Publish(ctx, events...); err != nil {
		span.RecordError(err)
	}

	return updated.Snapshot(), nil
}

type Input struct {
	ProductID string
	Location  string
	Amount    int32
}
