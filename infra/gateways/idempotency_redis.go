package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/giovaniif/stock-records/protocols"
)

const (
	idempotencyKeyPrefix = "idempotency:stock:"
	idempotencyTTL       = 24 * time.Hour
)

type IdempotencyGatewayRedis struct {
	client *redis.Client
}

func NewIdempotencyGatewayRedis(client *redis.Client) *IdempotencyGatewayRedis {
	return &IdempotencyGatewayRedis{client: client}
}

func (g *IdempotencyGatewayRedis) key(idempotencyKey string) string {
	return idempotencyKeyPrefix + idempotencyKey
}

func (g *IdempotencyGatewayRedis) Begin(ctx context.Context, idempotencyKey string) (*protocols.StoredResponse, error) {
	k := g.key(idempotencyKey)
	processing, _ := json.Marshal(idempotencyState{Status: statusProcessing})

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		data, err := g.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			_, err := g.client.SetArgs(ctx, k, processing, redis.SetArgs{Mode: "NX", TTL: idempotencyTTL}).Result()
			if errors.Is(err, redis.Nil) {
				// lost the race to another request, read its state
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("redis set: %w", err)
			}
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("redis get: %w", err)
		}

		var state idempotencyState
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("redis unmarshal: %w", err)
		}
		switch state.Status {
		case statusCompleted:
			return state.Response, nil
		case statusProcessing:
			return nil, protocols.ErrRequestInFlight
		default:
			if err := g.client.Set(ctx, k, processing, idempotencyTTL).Err(); err != nil {
				return nil, fmt.Errorf("redis set: %w", err)
			}
			return nil, nil
		}
	}
}

func (g *IdempotencyGatewayRedis) Complete(ctx context.Context, idempotencyKey string, response protocols.StoredResponse) error {
	raw, err := json.Marshal(idempotencyState{Status: statusCompleted, Response: &response})
	if err != nil {
		return err
	}
	return g.client.Set(ctx, g.key(idempotencyKey), raw, idempotencyTTL).Err()
}

func (g *IdempotencyGatewayRedis) Abort(ctx context.Context, idempotencyKey string) error {
	return g.client.Del(ctx, g.key(idempotencyKey)).Err()
}

func (g *IdempotencyGatewayRedis) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}
