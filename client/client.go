// Package client calls the stock records HTTP API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/giovaniif/stock-records/domain/record"
	"github.com/giovaniif/stock-records/protocols"
)

const (
	DefaultMaxRetries = 5
	DefaultBaseDelay  = 1 * time.Second
	defaultTimeout    = 15 * time.Second
)

const recordPath = "/records/{productId}/{location}"

type Client struct {
	http       *resty.Client
	sleeper    Sleeper
	maxRetries int
	baseDelay  time.Duration
	newKey     func() string
}

type Option func(*Client)

// WithHTTPClient sends requests through httpClient instead of a default one.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		baseURL := c.http.BaseURL
		c.http = resty.NewWithClient(httpClient).SetBaseURL(baseURL)
	}
}

func WithSleeper(sleeper Sleeper) Option {
	return func(c *Client) { c.sleeper = sleeper }
}

// WithRetry sets the number of attempts and the first backoff delay.
// The delay doubles after every retriable failure.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetTimeout(defaultTimeout),
		sleeper:    NewSleeper(),
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		newKey:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxRetries < 1 {
		c.maxRetries = 1
	}
	return c
}

type RegisterInput struct {
	ProductID        string `json:"productId"`
	Location         string `json:"location"`
	OnHand           int32  `json:"onHand"`
	ReorderThreshold int32  `json:"reorderThreshold"`
	MaxCapacity      int32  `json:"maxCapacity"`
}

type amountRequest struct {
	Amount int32 `json:"amount"`
}

type listResponse struct {
	Records []record.Snapshot `json:"records"`
}

func (c *Client) Register(ctx context.Context, input RegisterInput) (record.Snapshot, error) {
	var out record.Snapshot
	err := c.mutate(ctx, "/records", nil, input, &out)
	return out, err
}

func (c *Client) Get(ctx context.Context, productID, location string) (record.Snapshot, error) {
	var out record.Snapshot
	err := c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, recordPath, keyParams(productID, location), nil, "", &out)
	})
	return out, err
}

func (c *Client) List(ctx context.Context) ([]record.Snapshot, error) {
	return c.list(ctx, "/records")
}

// Reorder lists the records whose available stock is at or below their threshold.
func (c *Client) Reorder(ctx context.Context) ([]record.Snapshot, error) {
	return c.list(ctx, "/reorder")
}

func (c *Client) AddStock(ctx context.Context, productID, location string, amount int32) (record.Snapshot, error) {
	return c.change(ctx, productID, location, "add", amount)
}

func (c *Client) Reserve(ctx context.Context, productID, location string, amount int32) (record.Snapshot, error) {
	return c.change(ctx, productID, location, "reserve", amount)
}

func (c *Client) ReleaseReservation(ctx context.Context, productID, location string, amount int32) (record.Snapshot, error) {
	return c.change(ctx, productID, location, "release", amount)
}

func (c *Client) ShipReserved(ctx context.Context, productID, location string, amount int32) (record.Snapshot, error) {
	return c.change(ctx, productID, location, "ship", amount)
}

func (c *Client) change(ctx context.Context, productID, location, action string, amount int32) (record.Snapshot, error) {
	var out record.Snapshot
	err := c.mutate(ctx, recordPath+"/"+action, keyParams(productID, location), amountRequest{Amount: amount}, &out)
	return out, err
}

func (c *Client) list(ctx context.Context, path string) ([]record.Snapshot, error) {
	var out listResponse
	err := c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, path, nil, nil, "", &out)
	})
	if err != nil {
		return nil, err
	}
	if out.Records == nil {
		out.Records = []record.Snapshot{}
	}
	return out.Records, nil
}

// mutate sends every attempt with the same Idempotency-Key so a retry after
// a lost response replays the first outcome instead of applying it twice.
func (c *Client) mutate(ctx context.Context, path string, params map[string]string, payload, out any) error {
	key := c.newKey()
	return c.withRetry(ctx, func() error {
		return c.do(ctx, http.MethodPost, path, params, payload, key, out)
	})
}

func (c *Client) withRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetriable(err) || i == c.maxRetries-1 {
			break
		}
		delay := time.Duration(math.Pow(2, float64(i))) * c.baseDelay
		if err := c.sleeper.Sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, path string, params map[string]string, payload any, idempotencyKey string, out any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		ForceContentType("application/json")
	if params != nil {
		req.SetPathParams(params)
	}
	if payload != nil {
		req.SetBody(payload)
	}
	if out != nil {
		req.SetResult(out)
	}
	if idempotencyKey != "" {
		req.SetHeader("Idempotency-Key", idempotencyKey)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return NewNetworkError(err.Error())
	}

	status := resp.StatusCode()
	if status == http.StatusGatewayTimeout {
		return NewTimeoutError(fmt.Sprintf("%s %s", method, path))
	}
	if status >= 500 && status <= 599 {
		return NewNetworkError(fmt.Sprintf("%s %s: status %d", method, path, status))
	}
	if status >= http.StatusBadRequest {
		return decodeError(status, resp.Body())
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var body protocols.ErrorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if mapped := protocols.ErrorFromBody(body); mapped != nil {
			return mapped
		}
	}
	return fmt.Errorf("unexpected status %d: %s", status, body.Error)
}

func keyParams(productID, location string) map[string]string {
	return map[string]string{"productId": productID, "location": location}
}
