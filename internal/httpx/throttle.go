package httpx

import (
	"context"
	"sync"
	"time"
)

// Throttle enforces a minimum interval between consecutive acquisitions.
// It is shared process-wide by every caller of the guarded resource.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Wait blocks until at least the configured interval has passed since the
// previous successful Wait. Returns early with the context error on cancel.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interval <= 0 {
		return ctx.Err()
	}

	elapsed := t.now().Sub(t.last)
	if remaining := t.interval - elapsed; remaining > 0 {
		if err := t.sleep(ctx, remaining); err != nil {
			return err
		}
	}
	t.last = t.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
