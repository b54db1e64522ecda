package timeutil

import (
	"context"
	"time"
)

// Sleeper abstracts time.Sleep so callers can inject a fake clock in
// tests instead of waiting out real backoff delays.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// RealSleeper sleeps for real, returning early if ctx is cancelled.
type RealSleeper struct{}

func NewRealSleeper() RealSleeper {
	return RealSleeper{}
}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
