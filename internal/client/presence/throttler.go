// Package presence rate-limits outgoing cursor-position events.
package presence

import (
	"sync"
	"time"
)

// DefaultInterval is the minimum spacing between outgoing position events.
const DefaultInterval = 50 * time.Millisecond

// SendFunc delivers one world-space cursor position to the transport.
type SendFunc func(x, y float64, ts time.Time)

// Throttler emits at most one position event per interval. Positions offered
// while the interval has not elapsed are coalesced: only the most recent one
// is sent once the interval expires. It throttles, it does not buffer.
type Throttler struct {
	mu       sync.Mutex
	interval time.Duration
	send     SendFunc

	lastEmit  time.Time
	pending   *position
	scheduled bool

	// test seams
	nowFn      func() time.Time
	scheduleFn func(d time.Duration, fn func())
}

type position struct {
	x, y float64
}

// NewThrottler returns a throttler delivering through send. A non-positive
// interval falls back to DefaultInterval.
func NewThrottler(interval time.Duration, send SendFunc) *Throttler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Throttler{
		interval: interval,
		send:     send,
		nowFn:    time.Now,
		scheduleFn: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

// Offer records a new raw pointer position. If the interval since the last
// emit has elapsed the position goes out immediately; otherwise it replaces
// any pending position and a single trailing emit is scheduled.
func (t *Throttler) Offer(x, y float64) {
	t.mu.Lock()
	now := t.nowFn()

	if !t.scheduled && now.Sub(t.lastEmit) >= t.interval {
		t.lastEmit = now
		t.mu.Unlock()
		t.send(x, y, now)
		return
	}

	t.pending = &position{x: x, y: y}
	if !t.scheduled {
		t.scheduled = true
		wait := t.interval - now.Sub(t.lastEmit)
		t.scheduleFn(wait, t.flush)
	}
	t.mu.Unlock()
}

func (t *Throttler) flush() {
	t.mu.Lock()
	t.scheduled = false
	p := t.pending
	t.pending = nil
	if p == nil {
		t.mu.Unlock()
		return
	}
	now := t.nowFn()
	t.lastEmit = now
	t.mu.Unlock()
	t.send(p.x, p.y, now)
}
