// Package ratelimit provides per-caller request limiting for the chat
// endpoint. The orchestrator only depends on the Limiter interface, so
// single-process deployments use the in-memory fixed window and
// multi-process ones swap in the Redis-backed counter.
package ratelimit

import (
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

// Limiter answers whether a caller may run another chat turn right now.
// A false return consumes nothing.
type Limiter interface {
	Allow(callerID string) bool
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window counter per caller: max requests per
// window, window restarted on the first request after expiry. Expired
// entries are swept inline at most every five minutes to bound memory.
type MemoryLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	windowLen time.Duration
	max       int
	lastSweep time.Time

	now func() time.Time // overridable for tests
}

func NewMemoryLimiter(windowLen time.Duration, max int) *MemoryLimiter {
	if windowLen <= 0 {
		windowLen = time.Minute
	}
	if max <= 0 {
		max = 20
	}
	return &MemoryLimiter{
		windows:   make(map[string]*window),
		windowLen: windowLen,
		max:       max,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *MemoryLimiter) Allow(callerID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if now.Sub(l.lastSweep) > sweepInterval {
		for k, w := range l.windows {
			if now.After(w.resetAt) {
				delete(l.windows, k)
			}
		}
		l.lastSweep = now
	}

	w, ok := l.windows[callerID]
	if !ok || now.After(w.resetAt) {
		l.windows[callerID] = &window{count: 1, resetAt: now.Add(l.windowLen)}
		return true
	}
	if w.count >= l.max {
		return false
	}
	w.count++
	return true
}
