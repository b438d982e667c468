package scheduler

import (
	"sync"
	"time"

	"github.com/dualfolio/dualfolio/internal/application/ports"
)

// Ensure interface compliance
var (
	_ ports.Scheduler = (*Manual)(nil)
	_ ports.Clock     = (*Manual)(nil)
)

// Manual is a virtual-time scheduler. Time only moves on Advance, and due
// callbacks run synchronously on the goroutine that calls Advance, in due-time
// order (ties in scheduling order).
type Manual struct {
	now     time.Time
	pending []*manualTimer
	seq     int
	mu      sync.Mutex
}

type manualTimer struct {
	at      time.Time
	f       func()
	owner   *Manual
	seq     int
	stopped bool
	fired   bool
}

// NewManual creates a Manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc schedules f at Now()+d.
func (m *Manual) AfterFunc(d time.Duration, f func()) ports.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{at: m.now.Add(d), f: f, owner: m, seq: m.seq}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves the clock forward by d, running every callback that falls due.
// Callbacks scheduled by a running callback fire in the same Advance if they
// are due before the target time.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)

	for {
		next := m.nextDue(target)
		if next == nil {
			break
		}
		m.remove(next)
		next.fired = true
		m.now = next.at
		m.mu.Unlock()

		next.f()

		m.mu.Lock()
	}

	m.now = target
	m.mu.Unlock()
}

// Pending returns the number of scheduled callbacks that have not run or been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	var next *manualTimer
	for _, t := range m.pending {
		if t.at.After(target) {
			continue
		}
		if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (m *Manual) remove(t *manualTimer) {
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// Stop cancels the callback.
func (t *manualTimer) Stop() bool {
	m := t.owner
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	m.remove(t)
	return true
}
