package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/giovaniif/stock-records/client"
	api "github.com/giovaniif/stock-records/cmd/api"
	"github.com/giovaniif/stock-records/domain/record"
	"github.com/giovaniif/stock-records/infra/gateways"
	"github.com/giovaniif/stock-records/infra/repositories"
	"github.com/giovaniif/stock-records/protocols"
	"github.com/giovaniif/stock-records/use_cases/lookup"
	"github.com/giovaniif/stock-records/use_cases/receive"
	"github.com/giovaniif/stock-records/use_cases/register"
	"github.com/giovaniif/stock-records/use_cases/release"
	"github.com/giovaniif/stock-records/use_cases/reorder"
	"github.com/giovaniif/stock-records/use_cases/reserve"
	"github.com/giovaniif/stock-records/use_cases/ship"
)

type mockSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *mockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := repositories.NewRecordRepositoryMemory()
	publisher := gateways.NewEventPublisherLog(zap.NewNop())
	router := api.NewRouter(api.Dependencies{
		Register:    register.NewRegister(repo, publisher),
		Receive:     receive.NewReceive(repo, publisher),
		Reserve:     reserve.NewReserve(repo, publisher),
		Release:     release.NewRelease(repo, publisher),
		Ship:        ship.NewShip(repo, publisher),
		Lookup:      lookup.NewLookup(repo),
		Reorder:     reorder.NewReorder(repo, publisher),
		Idempotency: gateways.NewIdempotencyGatewayMemory(),
		Timeout:     5 * time.Second,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestClientLifecycleAgainstRouter(t *testing.T) {
	server := newServer(t)
	sleeper := &mockSleeper{}
	c := client.New(server.URL, client.WithSleeper(sleeper))
	ctx := context.Background()

	created, err := c.Register(ctx, client.RegisterInput{
		ProductID: "P100", Location: "A1", OnHand: 20, ReorderThreshold: 5, MaxCapacity: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(20), created.Available)

	out, err := c.Reserve(ctx, "P100", "A1", 8)
	require.NoError(t, err)
	assert.Equal(t, int32(8), out.Reserved)

	out, err = c.ShipReserved(ctx, "P100", "A1", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(15), out.OnHand)
	assert.Equal(t, int32(3), out.Reserved)

	out, err = c.ReleaseReservation(ctx, "P100", "A1", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(0), out.Reserved)

	out, err = c.AddStock(ctx, "P100", "A1", 10)
	require.NoError(t, err)
	assert.Equal(t, int32(25), out.OnHand)

	got, err := c.Get(ctx, "P100", "A1")
	require.NoError(t, err)
	assert.Equal(t, out, got)

	all, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	pending, err := c.Reorder(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.NotNil(t, pending)

	assert.Empty(t, sleeper.delays)
}

func TestClientMapsDomainErrors(t *testing.T) {
	server := newServer(t)
	sleeper := &mockSleeper{}
	c := client.New(server.URL, client.WithSleeper(sleeper))
	ctx := context.Background()

	_, err := c.Get(ctx, "P404", "A1")
	assert.ErrorIs(t, err, record.ErrNotFound)

	_, err = c.Register(ctx, client.RegisterInput{ProductID: "", Location: "A1", MaxCapacity: 10})
	assert.ErrorIs(t, err, record.ErrInvalidArgument)

	_, err = c.Register(ctx, client.RegisterInput{ProductID: "P1", Location: "1/A", MaxCapacity: 10})
	assert.ErrorIs(t, err, record.ErrInvalidArgument)

	_, err = c.Register(ctx, client.RegisterInput{ProductID: "P1", Location: "A1", OnHand: 5, MaxCapacity: 10})
	require.NoError(t, err)
	_, err = c.Register(ctx, client.RegisterInput{ProductID: "P1", Location: "A1", OnHand: 5, MaxCapacity: 10})
	assert.ErrorIs(t, err, record.ErrAlreadyExists)

	_, err = c.Reserve(ctx, "P1", "A1", 6)
	assert.ErrorIs(t, err, record.ErrInvalidState)
	assert.False(t, client.IsRetriable(err))

	_, err = c.AddStock(ctx, "P1", "A1", -1)
	assert.ErrorIs(t, err, record.ErrInvalidArgument)

	assert.Empty(t, sleeper.delays)
}

func TestClientRetriesServerErrorsWithSameKey(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts int
		keys     []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(record.Snapshot{ProductID: "P1", Location: "A1", OnHand: 7, Available: 7})
	}))
	defer server.Close()

	sleeper := &mockSleeper{}
	c := client.New(server.URL, client.WithSleeper(sleeper), client.WithRetry(5, 10*time.Millisecond))

	out, err := c.AddStock(context.Background(), "P1", "A1", 7)
	require.NoError(t, err)
	assert.Equal(t, int32(7), out.OnHand)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, sleeper.delays)
	require.Len(t, keys, 3)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1])
	assert.Equal(t, keys[0], keys[2])
}

func TestClientGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer server.Close()

	sleeper := &mockSleeper{}
	c := client.New(server.URL, client.WithSleeper(sleeper), client.WithRetry(3, time.Second))

	_, err := c.Get(context.Background(), "P1", "A1")
	assert.ErrorIs(t, err, client.ErrTimeout)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)
}

func TestClientRetriesKeyInFlight(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		if attempts == 1 {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(protocols.ErrorBody{Error: "busy", Code: protocols.CodeInFlight})
			return
		}
		_ = json.NewEncoder(w).Encode(record.Snapshot{ProductID: "P1", Location: "A1", Reserved: 2})
	}))
	defer server.Close()

	c := client.New(server.URL, client.WithSleeper(&mockSleeper{}))
	out, err := c.Reserve(context.Background(), "P1", "A1", 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), out.Reserved)
	assert.Equal(t, 2, attempts)
}

func TestClientStopsWhenContextIsDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := client.New(server.URL, client.WithSleeper(&mockSleeper{}))
	_, err := c.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientEscapesPathSegments(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode(record.Snapshot{})
	}))
	defer server.Close()

	c := client.New(server.URL + "/")
	_, err := c.Get(context.Background(), "P 1", "A#1")
	require.NoError(t, err)
	assert.Equal(t, "/records/P%201/A%231", path)
}
