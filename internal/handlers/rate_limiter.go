package handlers

import (
	"strings"
	"sync"
	"time"
)

// rateLimiter reports whether key may proceed and, when it may not, how long until it can.
type rateLimiter interface {
	Allow(key string) (bool, time.Duration)
}

// windowRateLimiter allows limit calls per key within a fixed window starting at the key's first call.
type windowRateLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string]rateWindow
	calls   int
}

type rateWindow struct {
	count int
	reset time.Time
}

const rateLimiterPruneEvery = 256

func newSimpleRateLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &windowRateLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		windows: make(map[string]rateWindow),
	}
}

func (l *windowRateLimiter) Allow(key string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls%rateLimiterPruneEvery == 0 {
		l.pruneLocked(now)
	}

	current, ok := l.windows[key]
	if !ok || !now.Before(current.reset) {
		l.windows[key] = rateWindow{count: 1, reset: now.Add(l.window)}
		return true, 0
	}
	if current.count >= l.limit {
		return false, current.reset.Sub(now)
	}
	current.count++
	l.windows[key] = current
	return true, 0
}

func (l *windowRateLimiter) pruneLocked(now time.Time) {
	for key, entry := range l.windows {
		if !now.Before(entry.reset) {
			delete(l.windows, key)
		}
	}
}
