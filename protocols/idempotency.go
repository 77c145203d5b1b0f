package protocols

import (
	"context"
	"errors"
)

var ErrRequestInFlight = errors.New("idempotency key is already being processed")

type StoredResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// IdempotencyGateway remembers the outcome of a mutating request by key.
// Begin returns the stored response of a completed key, nil when the caller
// now owns the key, or ErrRequestInFlight.
type IdempotencyGateway interface {
	Begin(ctx context.Context, key string) (*StoredResponse, error)
	Complete(ctx context.Context, key string, response StoredResponse) error
	Abort(ctx context.Context, key string) error
}
