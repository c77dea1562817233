package services

import (
	"sync"
	"time"
)

// RateLimiter is a fixed window in-process counter, created once at process
// start and never reset mid-run.
type RateLimiter struct {
	mutex   sync.Mutex
	windows map[string]*rateWindow
}

type rateWindow struct {
	count    int
	openedAt time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: make(map[string]*rateWindow)}
}

// Check counts one hit against the key and reports whether the caller is
// still within limit for the window.
func (r *RateLimiter) Check(key string, limit int, window time.Duration) (bool, time.Duration) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now()
	current, ok := r.windows[key]
	if !ok || now.Sub(current.openedAt) >= window {
		current = &rateWindow{openedAt: now}
		r.windows[key] = current
	}

	current.count++
	if current.count > limit {
		return false, current.openedAt.Add(window).Sub(now)
	}
	return true, 0
}

// Sweep drops windows that have fully elapsed. Ran periodically by the
// scheduler so the map does not grow without bound.
func (r *RateLimiter) Sweep(window time.Duration) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	deadline := time.Now().Add(-window)
	for key, current := range r.windows {
		if current.openedAt.Before(deadline) {
			delete(r.windows, key)
		}
	}
}

// Limiter is the process-scoped instance, assigned once in main.
var Limiter *RateLimiter
