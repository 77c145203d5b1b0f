package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/giovaniif/stock-records/domain/record"
)

// RecordRepositoryMemory keeps copies of records so callers never share
// state with the store.
type RecordRepositoryMemory struct {
	mu      sync.Mutex
	records map[recordID]*record.StockRecord
}

type recordID struct {
	productID string
	location  string
}

func idOf(r *record.StockRecord) recordID {
	return recordID{productID: r.ProductID(), location: r.Location()}
}

func NewRecordRepositoryMemory() *RecordRepositoryMemory {
	return &RecordRepositoryMemory{records: make(map[recordID]*record.StockRecord)}
}

func (r *RecordRepositoryMemory) Create(ctx context.Context, created *record.StockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := idOf(created)
	if _, ok := r.records[id]; ok {
		return record.ErrAlreadyExists
	}
	r.records[id] = clone(created)
	return nil
}

func (r *RecordRepositoryMemory) Get(ctx context.Context, productID, location string) (*record.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[recordID{productID: productID, location: location}]
	if !ok {
		return nil, record.ErrNotFound
	}
	return clone(stored), nil
}

func (r *RecordRepositoryMemory) List(ctx context.Context) ([]*record.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*record.StockRecord, 0, len(r.records))
	for _, stored := range r.records {
		list = append(list, clone(stored))
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].ProductID() != list[j].ProductID() {
			return list[i].ProductID() < list[j].ProductID()
		}
		return list[i].Location() < list[j].Location()
	})
	return list, nil
}

func (r *RecordRepositoryMemory) Update(ctx context.Context, productID, location string, fn func(*record.StockRecord) error) (*record.StockRecord, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[recordID{productID: productID, location: location}]
	if !ok {
		return nil, record.ErrNotFound
	}
	working := clone(stored)
	if err := fn(working); err != nil {
		return nil, err
	}
	r.records[idOf(working)] = working
	return clone(working), nil
}

func (r *RecordRepositoryMemory) Ping(ctx context.Context) error {
	return nil
}

func clone(r *record.StockRecord) *record.StockRecord {
	copied := *r
	return &copied
}
