package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/giovaniif/stock-records/domain/record"
)

const schema = `
CREATE TABLE IF NOT EXISTS stock_records (
	product_id        TEXT        NOT NULL,
	location          TEXT        NOT NULL,
	on_hand           INTEGER     NOT NULL CHECK (on_hand >= 0),
	reserved          INTEGER     NOT NULL DEFAULT 0 CHECK (reserved >= 0 AND reserved <= on_hand),
	reorder_threshold INTEGER     NOT NULL CHECK (reorder_threshold >= 0),
	max_capacity      INTEGER     NOT NULL CHECK (on_hand <= max_capacity),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (product_id, location)
)`

const selectColumns = `product_id, location, on_hand, reserved, reorder_threshold, max_capacity`

const uniqueViolation = "23505"

type RecordRepositoryPostgres struct {
	db *sql.DB
}

// NewRecordRepositoryPostgres connects to dsn and makes sure the schema exists.
func NewRecordRepositoryPostgres(ctx context.Context, dsn string) (*RecordRepositoryPostgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	r := &RecordRepositoryPostgres{db: db}
	if err := r.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *RecordRepositoryPostgres) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

func (r *RecordRepositoryPostgres) Create(ctx context.Context, created *record.StockRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stock_records (`+selectColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		created.ProductID(), created.Location(), created.OnHand(), created.Reserved(),
		created.ReorderThreshold(), created.MaxCapacity(),
	)
	if isUniqueViolation(err) {
		return record.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("postgres insert: %w", err)
	}
	return nil
}

func (r *RecordRepositoryPostgres) Get(ctx context.Context, productID, location string) (*record.StockRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM stock_records WHERE product_id = $1 AND location = $2`,
		productID, location,
	)
	return scanRecord(row)
}

func (r *RecordRepositoryPostgres) List(ctx context.Context) ([]*record.StockRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM stock_records ORDER BY product_id, location`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres list: %w", err)
	}
	defer rows.Close()

	var list []*record.StockRecord
	for rows.Next() {
		found, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, found)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres list: %w", err)
	}
	return list, nil
}

// Update holds a row lock for the whole load-apply-store cycle.
func (r *RecordRepositoryPostgres) Update(ctx context.Context, productID, location string, fn func(*record.StockRecord) error) (*record.StockRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM stock_records WHERE product_id = $1 AND location = $2 FOR UPDATE`,
		productID, location,
	)
	working, err := scanRecord(row)
	if err != nil {
		return nil, err
	}
	if err := fn(working); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE stock_records SET on_hand = $3, reserved = $4, updated_at = now() WHERE product_id = $1 AND location = $2`,
		productID, location, working.OnHand(), working.Reserved(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("postgres commit: %w", err)
	}
	return working, nil
}

func (r *RecordRepositoryPostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *RecordRepositoryPostgres) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*record.StockRecord, error) {
	var productID, location string
	var onHand, reserved, reorderThreshold, maxCapacity int32
	err := row.Scan(&productID, &location, &onHand, &reserved, &reorderThreshold, &maxCapacity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres scan: %w", err)
	}
	return record.Restore(productID, location, onHand, reserved, reorderThreshold, maxCapacity)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
