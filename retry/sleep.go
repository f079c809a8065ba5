package retry

import (
	"context"

	"time"
)

// Sleep pauses for the duration or until the context is closed, whichever
// comes first. It returns the context error in the latter case and nil
// otherwise, including right away for a non-positive duration.
func Sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}
	t := time.NewTimer(duration)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
