package lookup

import (
	"context"

	"github.com/giovaniif/stock-records/domain/record"
)

type Lookup struct {
	recordRepository record.Repository
}

func NewLookup(recordRepository record.Repository) *Lookup {
	return &Lookup{
		recordRepository: recordRepository,
	}
}

func (l *Lookup) Get(ctx context.Context, productID, location string) (record.Snapshot, error) {
	found, err := l.recordRepository.Get(ctx, productID, location)
	if err != nil {
		return record.Snapshot{}, err
	}
	return found.Snapshot(), nil
}

func (l *Lookup) List(ctx context.Context) ([]record.Snapshot, error) {
	records, err := l.recordRepository.List(ctx)
	if err != nil {
		return nil, err
	}
	snapshots := make([]record.Snapshot, 0, len(records))
	for _, r := range records {
		snapshots = append(snapshots, r.Snapshot())
	}
	return snapshots, nil
}
