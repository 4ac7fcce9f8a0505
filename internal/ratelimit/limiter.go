// Package ratelimit counts requests per identity in fixed windows. A window
// opens at the identity's first request and lasts for the configured
// duration; the count resets when the next request arrives after it ends.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Limiter struct {
	window time.Duration
	max    int
	now    func() time.Time

	counters sync.Map // identity -> *counter
}

type counter struct {
	mu    sync.Mutex
	start time.Time
	count int
	// dead is set under mu once Sweep has removed the counter from the map.
	dead bool
}

// Decision describes one call to Allow.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

func New(window time.Duration, max int) *Limiter {
	return &Limiter{window: window, max: max, now: time.Now}
}

// WithClock replaces the wall clock.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow counts one request for identity.
func (l *Limiter) Allow(identity string) Decision {
	now := l.now()
	c := l.acquire(identity, now)
	defer c.mu.Unlock()

	if now.Sub(c.start) >= l.window {
		c.start = now
		c.count = 0
	}
	c.count++

	if c.count > l.max {
		return Decision{RetryAfter: c.start.Add(l.window).Sub(now)}
	}
	return Decision{Allowed: true, Remaining: l.max - c.count}
}

// acquire returns the live counter for identity with its lock held. A counter
// swept between the load and the lock is skipped so no request is counted
// against a window nobody else can see.
func (l *Limiter) acquire(identity string, now time.Time) *counter {
	for {
		v, _ := l.counters.LoadOrStore(identity, &counter{start: now})
		c := v.(*counter)
		c.mu.Lock()
		if !c.dead {
			return c
		}
		c.mu.Unlock()
	}
}

// Sweep drops counters whose window ended before now.
func (l *Limiter) Sweep() int {
	now := l.now()
	dropped := 0
	l.counters.Range(func(key, v any) bool {
		c := v.(*counter)
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.dead || now.Sub(c.start) < l.window {
			return true
		}
		if l.counters.CompareAndDelete(key, v) {
			c.dead = true
			dropped++
		}
		return true
	})
	return dropped
}

// Run sweeps once per window until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
