package record

import "context"

type Repository interface {
	Create(ctx context.Context, r *StockRecord) error
	Get(ctx context.Context, productID, location string) (*StockRecord, error)
	List(ctx context.Context) ([]*StockRecord, error)
	// Update loads the record, applies fn and persists the result only when fn returns nil.
	// Updates to the same record are serialized.
	Update(ctx context.Context, productID, location string, fn func(r *StockRecord) error) (*StockRecord, error)
}
