package utils

import (
	"sync"
	"time"
)

// SlidingWindow counts events inside a trailing time window.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   []time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window}
}

// Allow records a hit at now unless limit hits are already inside the window.
func (w *SlidingWindow) Allow(now time.Time, limit int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	if len(w.hits) >= limit {
		return false
	}
	w.hits = append(w.hits, now)
	return true
}

func (w *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	idx := 0
	for _, hit := range w.hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]
}

// KeyedLimiter keeps one SlidingWindow per key, e.g. per channel.
type KeyedLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*SlidingWindow
}

func NewKeyedLimiter(limit int, window time.Duration) *KeyedLimiter {
	return &KeyedLimiter{limit: limit, window: window, windows: make(map[string]*SlidingWindow)}
}

// Allow reports whether key may act at now. A non-positive limit disables
// limiting.
func (l *KeyedLimiter) Allow(key string, now time.Time) bool {
	if l.limit <= 0 {
		return true
	}
	l.mu.Lock()
	window := l.windows[key]
	if window == nil {
		window = NewSlidingWindow(l.window)
		l.windows[key] = window
	}
	l.mu.Unlock()
	return window.Allow(now, l.limit)
}
