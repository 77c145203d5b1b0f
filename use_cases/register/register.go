package register

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/giovaniif/stock-records/domain/record"
	"github.com/giovaniif/stock-records/protocols"
)

type Register struct {
	recordRepository record.Repository
	eventPublisher   protocols.EventPublisher
}

func NewRegister(recordRepository record.Repository, eventPublisher protocols.EventPublisher) *Register {
	return &Register{
		recordRepository: recordRepository,
		eventPublisher:   eventPublisher,
	}
}

func (r *Register) Register(ctx context.Context, input Input) (record.Snapshot, error) {
	ctx, span := otel.Tracer("stock").Start(ctx, "register")
	defer span.End()
	span.SetAttributes(
		attribute.String("stock.product_id", input.ProductID),
		attribute.String("stock.location", input.Location),
	)

	created, err := record.New(input.ProductID, input.Location, input.OnHand, input.ReorderThreshold, input.MaxCapacity)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return record.Snapshot{}, err
	}
	if err := r.recordRepository.Create(ctx, created); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return record.Snapshot{}, err
	}

	events := []record.Event{record.NewEvent(record.EventRegistered, input.OnHand, created)}
	if created.IsReorderNeeded() {
		events = append(events, record.NewEvent(record.EventReorderNeeded, 0, created))
	}
	if err := r.eventPublisher.Publish(ctx, events...); err != nil {
		span.RecordError(err)
	}

	return created.Snapshot(), nil
}

type Input struct {
	ProductID        string
	Location         string
	OnHand           int32
	ReorderThreshold int32
	MaxCapacity      int32
}
