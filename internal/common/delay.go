package common

import (
	"context"
	"time"
)

// Pause waits for d or until ctx is done, whichever comes first.
// A non-positive d only reports the context state.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
