package reserve

import (
	"context"
	"errors"
	"testing"

	"github.com/giovaniif/stock-records/domain/record"
)

type mockRepository struct {
	stored *record.StockRecord
}

func (m *mockRepository) Create(ctx context.Context, r *record.StockRecord) error { return nil }
func (m *mockRepository) Get(ctx context.Context, productID, location string) (*record.StockRecord, error) {
	return m.stored, nil
}
func (m *mockRepository) List(ctx context.Context) ([]*record.StockRecord, error) { return nil, nil }
func (m *mockRepository) Update(ctx context.Context, productID, location string, fn func(r *record.StockRecord) error) (*record.StockRecord, error) {
	if err := fn(m.stored); err != nil {
		return nil, err
	}
	return m.stored, nil
}

type mockPublisher struct {
	published []record.Event
}

func (m *mockPublisher) Publish(ctx context.Context, events ...record.Event) error {
	m.published = append(m.published, events...)
	return nil
}
func (m *mockPublisher) Close() error { return nil }

func newRepository(t *testing.T) *mockRepository {
	t.Helper()
	stored, err := record.New("P100", "A1", 20, 5, 50)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	return &mockRepository{stored: stored}
}

func TestReserve_Success(t *testing.T) {
	repo := newRepository(t)
	publisher := &mockPublisher{}
	uc := NewReserve(repo, publisher)

	out, err := uc.Reserve(context.Background(), Input{ProductID: "P100", Location: "A1", Amount: 5})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if out.Reserved != 5 || out.Available != 15 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if len(publisher.published) != 1 || publisher.published[0].Type != record.EventReserved {
		t.Fatalf("expected one reserved event, got %+v", publisher.published)
	}
}

func TestReserve_MoreThanAvailable(t *testing.T) {
	repo := newRepository(t)
	uc := NewReserve(repo, &mockPublisher{})

	_, err := uc.Reserve(context.Background(), Input{ProductID: "P100", Location: "A1", Amount: 100})
	if !errors.Is(err, record.ErrInvalidState) {
		t.Fatalf("expected invalid state error, got %v", err)
	}
}
