// Package ratelimit bounds how fast a single client can hit the registration
// and deletion endpoints. Together with the merged deletion error message it
// is the anti-enumeration layer: tokens cannot be probed faster than the
// limiter allows.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// InMemory is a sliding-window limiter for single-node deployments.
type InMemory struct {
	mu      sync.Mutex
	windows map[string]*slidingWindow
	limit   int
	window  time.Duration
}

type slidingWindow struct {
	timestamps []time.Time
}

// NewInMemory builds a limiter admitting limit requests per window per key.
func NewInMemory(limit int, window time.Duration) *InMemory {
	return &InMemory{
		windows: make(map[string]*slidingWindow),
		limit:   limit,
		window:  window,
	}
}

func (l *InMemory) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w := l.windows[key]
	if w == nil {
		w = &slidingWindow{}
		l.windows[key] = w
	}
	w.cleanup(now.Add(-l.window))

	if len(w.timestamps) >= l.limit {
		return false, nil
	}
	w.timestamps = append(w.timestamps, now)
	return true, nil
}

// cleanup drops timestamps older than cutoff.
func (w *slidingWindow) cleanup(cutoff time.Time) {
	keep := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	w.timestamps = keep
}
