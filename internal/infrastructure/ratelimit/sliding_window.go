// Package ratelimit provides request limiters for public endpoints.
package ratelimit

import (
	"sync"
	"time"

	"github.com/dualfolio/dualfolio/internal/application/ports"
)

// Ensure interface compliance
var _ ports.RateLimiter = (*SlidingWindow)(nil)

// Default limits for the contact form.
const (
	DefaultMaxRequests = 3
	DefaultWindow      = time.Minute
)

// SlidingWindow allows at most max requests per client within any window-long
// interval. It remembers the timestamps of accepted requests only.
type SlidingWindow struct {
	hits   map[string][]time.Time
	window time.Duration
	max    int
	mu     sync.Mutex
}

// NewSlidingWindow creates a limiter. Non-positive arguments select the defaults.
func NewSlidingWindow(maxRequests int, window time.Duration) *SlidingWindow {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &SlidingWindow{
		hits:   make(map[string][]time.Time),
		window: window,
		max:    maxRequests,
	}
}

// Allow records a request from clientKey at now. When the client is over the
// limit it returns false and how long until the oldest hit leaves the window.
func (l *SlidingWindow) Allow(clientKey string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.trim(l.hits[clientKey], now)
	if len(hits) >= l.max {
		l.hits[clientKey] = hits
		return false, hits[0].Add(l.window).Sub(now)
	}

	l.hits[clientKey] = append(hits, now)
	return true, 0
}

// Refund removes the most recent hit recorded for clientKey at at.
func (l *SlidingWindow) Refund(clientKey string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.hits[clientKey]
	for i := len(hits) - 1; i >= 0; i-- {
		if !hits[i].Equal(at) {
			continue
		}
		hits = append(hits[:i], hits[i+1:]...)
		if len(hits) == 0 {
			delete(l.hits, clientKey)
		} else {
			l.hits[clientKey] = hits
		}
		return
	}
}

// Prune forgets clients with no hits inside the window ending at now.
func (l *SlidingWindow) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, hits := range l.hits {
		if hits = l.trim(hits, now); len(hits) == 0 {
			delete(l.hits, key)
			removed++
			continue
		}
		l.hits[key] = hits
	}
	return removed
}

// Len returns the number of tracked clients.
func (l *SlidingWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// trim drops hits older than the window.
func (l *SlidingWindow) trim(hits []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
