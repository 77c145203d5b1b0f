package client

import (
	"errors"
	"fmt"

	"github.com/giovaniif/stock-records/protocols"
)

var (
	ErrTimeout = errors.New("timeout error")
	ErrNetwork = errors.New("network error")
)

func NewTimeoutError(details string) error {
	return fmt.Errorf("%w: %s", ErrTimeout, details)
}

func NewNetworkError(details string) error {
	return fmt.Errorf("%w: %s", ErrNetwork, details)
}

// IsRetriable reports whether repeating the call with the same idempotency
// key can succeed: timeouts, 5xx, transport failures and a key still in flight.
func IsRetriable(err error) bool {
	return err != nil && (errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrNetwork) ||
		errors.Is(err, protocols.ErrRequestInFlight))
}
