package protocols

import (
	"context"
	"errors"
	"fmt"

	"github.com/giovaniif/stock-records/domain/record"
)

// Error codes carried in the "code" field of API error bodies.
const (
	CodeInvalidArgument = "invalid_argument"
	CodeInvalidState    = "invalid_state"
	CodeNotFound        = "not_found"
	CodeAlreadyExists   = "already_exists"
	CodeInFlight        = "in_flight"
	CodeTimeout         = "timeout"
	CodeInternal        = "internal"
)

type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func ErrorCode(err error) string {
	switch {
	case errors.Is(err, record.ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, record.ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, record.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, record.ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrRequestInFlight):
		return CodeInFlight
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return CodeTimeout
	default:
		return CodeInternal
	}
}

// ErrorFromBody turns an API error body back into an error matching the
// sentinel its code names. Unknown codes yield nil.
func ErrorFromBody(body ErrorBody) error {
	var sentinel error
	switch body.Code {
	case CodeInvalidArgument:
		sentinel = record.ErrInvalidArgument
	case CodeInvalidState:
		sentinel = record.ErrInvalidState
	case CodeNotFound:
		sentinel = record.ErrNotFound
	case CodeAlreadyExists:
		sentinel = record.ErrAlreadyExists
	case CodeInFlight:
		sentinel = ErrRequestInFlight
	default:
		return nil
	}
	return fmt.Errorf("%w (remote: %s)", sentinel, body.Error)
}
