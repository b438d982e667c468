// Package httpapi exposes the portfolio over HTTP: personas, the per-visitor
// persona switch, theme palettes, announcements and the contact form.
package httpapi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dualfolio/dualfolio/internal/application/dto"
	"github.com/dualfolio/dualfolio/internal/application/services"
	domainservices "github.com/dualfolio/dualfolio/internal/domain/services"
	"github.com/dualfolio/dualfolio/internal/domain/values"
	"github.com/dualfolio/dualfolio/internal/infrastructure/system"
	"github.com/dualfolio/dualfolio/internal/version"
)

// SessionCookie carries the visitor session id.
const SessionCookie = "dualfolio_session"

const (
	sessionCookieMaxAge = 365 * 24 * 60 * 60
	maxContactBodyBytes = 64 << 10
	shutdownTimeout     = 5 * time.Second
)

// Options configure a Server.
type Options struct {
	Resolver *domainservices.PersonaResolver
	Sessions *SessionManager
	Contact  *services.ContactService
	Logger   *slog.Logger
	Theme    system.ThemeConfig
	Version  version.Info
}

// Server serves the HTTP API.
type Server struct {
	resolver *domainservices.PersonaResolver
	sessions *SessionManager
	contact  *services.ContactService
	logger   *slog.Logger
	palettes map[values.Theme]dto.ThemePalette
	mux      *http.ServeMux
	upgrader websocket.Upgrader
	version  version.Info
}

// NewServer creates a server and registers its routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Resolver == nil || opts.Sessions == nil || opts.Contact == nil {
		return nil, errors.New("http server requires a resolver, sessions and a contact service")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	palettes := make(map[values.Theme]dto.ThemePalette, 2)
	for _, theme := range []values.Theme{values.ThemeLight, values.ThemeDark} {
		fg, bg, err := opts.Theme.Colors(theme)
		if err != nil {
			return nil, err
		}
		palettes[theme] = dto.ThemePalette{
			Theme:      theme,
			Foreground: fg.String(),
			Background: bg.String(),
			Contrast:   values.ContrastRatio(fg, bg),
		}
	}

	s := &Server{
		resolver: opts.Resolver,
		sessions: opts.Sessions,
		contact:  opts.Contact,
		logger:   opts.Logger,
		palettes: palettes,
		version:  opts.Version,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/version", s.handleVersion)
	s.mux.HandleFunc("GET /api/personas", s.handlePersonas)
	s.mux.HandleFunc("GET /api/personas/{id}", s.handlePersona)
	s.mux.HandleFunc("GET /api/personas/{id}/opposite", s.handleOpposite)
	s.mux.HandleFunc("GET /api/session", s.handleSession)
	s.mux.HandleFunc("POST /api/session/toggle", s.handleToggle)
	s.mux.HandleFunc("GET /api/session/announcements", s.handleAnnouncements)
	s.mux.HandleFunc("GET /api/theme", s.handleTheme)
	s.mux.HandleFunc("POST /api/contact", s.handleContact)
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Serve accepts connections on ln until ctx is cancelled, then closes every
// visitor session and shuts the listener down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("http server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		s.sessions.Close()
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	// Closing sessions ends announcement streams, which Shutdown does not track
	s.sessions.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	<-errCh
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, "ok")
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, s.version)
}

func (s *Server) handlePersonas(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, s.resolver.GetAllPersonas())
}

func (s *Server) handlePersona(w http.ResponseWriter, r *http.Request) {
	persona, err := s.resolver.GetPersona(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, persona)
}

func (s *Server) handleOpposite(w http.ResponseWriter, r *http.Request) {
	persona, err := s.resolver.GetOppositePersona(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, persona)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	view, err := sessionView(sess)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	started, err := sess.Controller.Toggle()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	view, err := sessionView(sess)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if !started {
		writeJSON(w, http.StatusConflict, apiResponse{
			Status:  statusError,
			Message: "a persona switch is already in progress",
			Data:    view,
		})
		return
	}
	writeData(w, http.StatusAccepted, view)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, s.palettes[sess.Theme.Theme()])
}

// session resolves the visitor session, issuing a cookie for new visitors.
// On failure the response has been written.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	sess, err := s.sessions.Acquire(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}

	if sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			MaxAge:   sessionCookieMaxAge,
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, true
}

func sessionView(sess *Session) (dto.SessionView, error) {
	state, err := sess.Controller.State()
	if err != nil {
		return dto.SessionView{}, err
	}
	persona, err := sess.Controller.CurrentPersona()
	if err != nil {
		return dto.SessionView{}, err
	}

	return dto.SessionView{
		Persona:         persona,
		Theme:           sess.Theme.Theme(),
		Announcement:    sess.Live.Last(),
		IsSwitchOn:      state.IsSwitchOn,
		IsLoaded:        state.IsLoaded,
		IsTransitioning: state.IsTransitioning,
	}, nil
}

// fail writes err and logs the ones that are not the visitor's fault.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if code := writeError(w, err); code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", code,
			"error", err)
	}
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
