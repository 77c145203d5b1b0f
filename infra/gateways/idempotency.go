package gateways

import (
	"context"
	"sync"

	"github.com/giovaniif/stock-records/protocols"
)

const (
	statusProcessing = "processing"
	statusCompleted  = "completed"
)

type idempotencyState struct {
	Status   string                    `json:"status"`
	Response *protocols.StoredResponse `json:"response,omitempty"`
}

type IdempotencyGatewayMemory struct {
	mutex sync.Mutex
	keys  map[string]*idempotencyState
}

func NewIdempotencyGatewayMemory() *IdempotencyGatewayMemory {
	return &IdempotencyGatewayMemory{
		keys: make(map[string]*idempotencyState),
	}
}

func (g *IdempotencyGatewayMemory) Begin(ctx context.Context, key string) (*protocols.StoredResponse, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if state, exists := g.keys[key]; exists {
		switch state.Status {
		case statusCompleted:
			return state.Response, nil
		case statusProcessing:
			return nil, protocols.ErrRequestInFlight
		}
	}
	g.keys[key] = &idempotencyState{Status: statusProcessing}
	return nil, nil
}

func (g *IdempotencyGatewayMemory) Complete(ctx context.Context, key string, response protocols.StoredResponse) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.keys[key] = &idempotencyState{Status: statusCompleted, Response: &response}
	return nil
}

func (g *IdempotencyGatewayMemory) Abort(ctx context.Context, key string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	delete(g.keys, key)
	return nil
}
