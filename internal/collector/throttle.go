package collector

import (
	"context"
	"sync"
	"time"
)

// Throttle enforces a minimum delay between consecutive outbound calls.
// Callers queue on the mutex, so the floor holds across goroutines too.
type Throttle struct {
	mu    sync.Mutex
	delay time.Duration
	last  time.Time
}

func NewThrottle(delay time.Duration) *Throttle {
	return &Throttle{delay: delay}
}

// Wait blocks until at least delay has passed since the previous Wait
// returned, or ctx is done. The gap is measured start-to-start between the
// calls it guards.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.last.IsZero() {
		if wait := t.delay - time.Since(t.last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	t.last = time.Now()
	return nil
}
