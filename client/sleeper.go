package client

import (
	"context"
	"time"
)

type Sleeper interface {
	Sleep(ctx context.Context, duration time.Duration) error
}

type timerSleeper struct{}

func NewSleeper() Sleeper {
	return timerSleeper{}
}

// Sleep returns early with the context error when ctx is done first.
func (timerSleeper) Sleep(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
