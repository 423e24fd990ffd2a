// Package ratelimit implements the two admission controls the bot relies on:
// a per-user response cooldown and a global sliding-window action quota.
//
// Both are append-and-purge structures, not token buckets: an admitted entry is
// only ever removed by aging out of the window, so bursty traffic cannot evict
// entries that are still live.
package ratelimit

import (
	"sync"
	"time"
)

// Clock returns the current time. Injectable for tests.
type Clock func() time.Time

// Cooldown is a per-key sliding window with capacity one. A key is admitted
// only when it has no record inside the window.
type Cooldown struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
	now    Clock
}

// NewCooldown creates a cooldown limiter with the given window.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		window: window,
		last:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// SetClock overrides the time source. Test use only.
func (c *Cooldown) SetClock(clock Clock) { c.now = clock }

// Allow reports whether key may proceed, recording the attempt when it may.
// Stale entries are purged before the decision; a rejected call mutates
// nothing beyond that purge.
func (c *Cooldown) Allow(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, t := range c.last {
		if now.Sub(t) > c.window {
			delete(c.last, k)
		}
	}

	if _, ok := c.last[key]; ok {
		return false
	}
	c.last[key] = now
	return true
}

// Window is a shared sliding-window quota: at most capacity admissions per
// window, across all callers.
type Window struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	hits     []time.Time
	now      Clock
}

// NewWindow creates a quota of capacity admissions per window.
func NewWindow(window time.Duration, capacity int) *Window {
	return &Window{
		window:   window,
		capacity: capacity,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Test use only.
func (w *Window) SetClock(clock Clock) { w.now = clock }

// Allow purges entries older than the window, then admits and records the
// event iff the remaining count is below capacity.
func (w *Window) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	kept := w.hits[:0]
	for _, t := range w.hits {
		if now.Sub(t) <= w.window {
			kept = append(kept, t)
		}
	}
	w.hits = kept

	if len(w.hits) >= w.capacity {
		return false
	}
	w.hits = append(w.hits, now)
	return true
}

// Len returns the current number of in-window entries.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.hits)
}
