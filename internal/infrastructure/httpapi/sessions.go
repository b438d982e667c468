package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dualfolio/dualfolio/internal/application/ports"
	"github.com/dualfolio/dualfolio/internal/application/services"
	"github.com/dualfolio/dualfolio/internal/infrastructure/presentation"
)

// ErrSessionsClosed is returned once the session manager has shut down.
var ErrSessionsClosed = errors.New("session manager is closed")

// ControllerFactory builds the switch controller of a visitor session. The
// session id namespaces the persisted flag.
type ControllerFactory func(sessionID string, theme ports.ThemeMarker, announcer ports.Announcer) (*services.SwitchController, error)

// Session is one visitor's view of the portfolio: its own switch controller
// and presentation collaborators.
type Session struct {
	lastSeen   time.Time
	Controller *services.SwitchController
	Theme      *presentation.DocumentTheme
	Live       *presentation.LiveRegion
	ID         string
}

// close tears the session down. Pending transitions are cancelled.
func (s *Session) close() {
	s.Controller.Close()
	s.Live.Close()
}

// SessionManager owns the live visitor sessions.
type SessionManager struct {
	sessions    map[string]*Session
	factory     ControllerFactory
	clock       ports.Clock
	logger      *slog.Logger
	idleTimeout time.Duration
	mu          sync.Mutex
	closed      bool
}

// NewSessionManager creates a manager. Sessions unused for idleTimeout are
// closed by Sweep.
func NewSessionManager(factory ControllerFactory, clock ports.Clock, idleTimeout time.Duration, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		factory:     factory,
		clock:       clock,
		idleTimeout: idleTimeout,
		logger:      logger,
	}
}

// Acquire returns the session for id, opening and loading it if needed.
// An id that is not a uuid is replaced by a fresh one; a well-formed unknown
// id is reopened so a returning visitor finds their persisted switch.
// New sessions are built and loaded without holding the manager lock.
func (m *SessionManager) Acquire(ctx context.Context, id string) (*Session, error) {
	if sess, err := m.lookup(id); sess != nil || err != nil {
		return sess, err
	}

	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	theme := presentation.NewDocumentTheme()
	live := presentation.NewLiveRegion()
	controller, err := m.factory(id, theme, live)
	if err != nil {
		return nil, fmt.Errorf("failed to create switch controller: %w", err)
	}
	if err := controller.Load(ctx); err != nil {
		controller.Close()
		return nil, fmt.Errorf("failed to load switch state: %w", err)
	}

	sess := &Session{
		ID:         id,
		Controller: controller,
		Theme:      theme,
		Live:       live,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		sess.close()
		return nil, ErrSessionsClosed
	}
	// Another request opened the same session while this one was loading
	if existing, ok := m.sessions[id]; ok {
		sess.close()
		existing.lastSeen = m.clock.Now()
		return existing, nil
	}

	sess.lastSeen = m.clock.Now()
	m.sessions[id] = sess
	m.logger.Debug("session opened", "session", id)
	return sess, nil
}

// lookup returns an open session and marks it as seen.
func (m *SessionManager) lookup(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrSessionsClosed
	}
	sess, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	sess.lastSeen = m.clock.Now()
	return sess, nil
}

// Len returns the number of open sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle since before now minus the idle timeout and
// returns how many were closed. A session with an open announcement stream
// counts as seen.
func (m *SessionManager) Sweep(now time.Time) int {
	m.mu.Lock()
	var expired []*Session
	for id, sess := range m.sessions {
		if sess.Live.Subscribers() > 0 {
			sess.lastSeen = now
			continue
		}
		if now.Sub(sess.lastSeen) > m.idleTimeout {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		sess.close()
		m.logger.Debug("session expired", "session", sess.ID)
	}
	return len(expired)
}

// Run sweeps every interval until ctx is cancelled.
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(m.clock.Now()); n > 0 {
				m.logger.Info("closed idle sessions", "count", n)
			}
		}
	}
}

// Close closes every session. Acquire fails afterwards.
func (m *SessionManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
}
