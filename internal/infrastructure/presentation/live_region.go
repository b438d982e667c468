package presentation

import (
	"sync"

	"github.com/dualfolio/dualfolio/internal/application/ports"
)

// Ensure interface compliance
var _ ports.Announcer = (*LiveRegion)(nil)

// subscriberBuffer is how many sentences a slow subscriber may fall behind
// before further sentences are dropped for it.
const subscriberBuffer = 8

// LiveRegion is a polite screen-reader live region. It keeps the latest
// sentence and pushes every new one to its subscribers.
//
// Announce never blocks, so it is safe to call while holding other locks.
type LiveRegion struct {
	subscribers map[uint64]chan string
	last        string
	nextID      uint64
	mu          sync.Mutex
	closed      bool
}

// NewLiveRegion creates an empty live region.
func NewLiveRegion() *LiveRegion {
	return &LiveRegion{
		subscribers: make(map[uint64]chan string),
	}
}

// Announce implements ports.Announcer.
func (l *LiveRegion) Announce(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.last = text

	for _, ch := range l.subscribers {
		select {
		case ch <- text:
		default:
		}
	}
}

// Last returns the most recent sentence.
func (l *LiveRegion) Last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Subscribe returns a channel of future sentences and a function that
// unsubscribes. The channel is closed on unsubscribe or Close.
func (l *LiveRegion) Subscribe() (<-chan string, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan string, subscriberBuffer)
	if l.closed {
		close(ch)
		return ch, func() {}
	}

	l.nextID++
	id := l.nextID
	l.subscribers[id] = ch

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if sub, ok := l.subscribers[id]; ok {
			delete(l.subscribers, id)
			close(sub)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (l *LiveRegion) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subscribers)
}

// Close ends every subscription. Later announcements are ignored.
func (l *LiveRegion) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	for id, ch := range l.subscribers {
		delete(l.subscribers, id)
		close(ch)
	}
}
