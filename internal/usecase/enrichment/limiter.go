package enrichment

import (
	"context"
	"sync"
	"time"
)

// Limiter spaces outbound calls at least interval apart. Callers reserve
// slots in arrival order against one shared watermark.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
	now      func() time.Time
}

// NewLimiter creates a Limiter. A non-positive interval never waits.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{interval: interval, now: time.Now}
}

// Wait blocks until the caller's slot comes up or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.interval <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := l.now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	l.next = slot.Add(l.interval)
	l.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reset clears the watermark so the next call proceeds immediately.
func (l *Limiter) Reset() {
	l.mu.Lock()
	l.next = time.Time{}
	l.mu.Unlock()
}
