package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualfolio/dualfolio/internal/application/dto"
	"github.com/dualfolio/dualfolio/internal/application/ports"
	"github.com/dualfolio/dualfolio/internal/application/services"
	domainservices "github.com/dualfolio/dualfolio/internal/domain/services"
	"github.com/dualfolio/dualfolio/internal/infrastructure/config"
	"github.com/dualfolio/dualfolio/internal/infrastructure/delivery"
	"github.com/dualfolio/dualfolio/internal/infrastructure/persistence/memory"
	"github.com/dualfolio/dualfolio/internal/infrastructure/persistence/storage"
	"github.com/dualfolio/dualfolio/internal/infrastructure/ratelimit"
	"github.com/dualfolio/dualfolio/internal/infrastructure/scheduler"
	"github.com/dualfolio/dualfolio/internal/infrastructure/system"
	"github.com/dualfolio/dualfolio/internal/infrastructure/validation"
	"github.com/dualfolio/dualfolio/internal/version"
)

type fixture struct {
	server   *Server
	sessions *SessionManager
	clock    *scheduler.Manual
	kv       *memory.KeyValueStore
	contacts *memory.ContactRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	loader, err := config.NewPersonaLoader()
	require.NoError(t, err)
	registry, err := loader.LoadBundled()
	require.NoError(t, err)
	resolver := domainservices.NewPersonaResolver(registry, logger)

	f := &fixture{
		clock:    scheduler.NewManual(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)),
		kv:       memory.NewKeyValueStore(),
		contacts: memory.NewContactRepository(),
	}
	store := storage.New(f.kv, logger)

	factory := func(id string, theme ports.ThemeMarker, announcer ports.Announcer) (*services.SwitchController, error) {
		return services.NewSwitchController(services.SwitchControllerDeps{
			Resolver:  resolver,
			Storage:   store.WithPrefix("session:" + id),
			Scheduler: f.clock,
			Theme:     theme,
			Announcer: announcer,
			Logger:    logger,
		}, services.DefaultTransitionTiming())
	}
	f.sessions = NewSessionManager(factory, f.clock, 30*time.Minute, logger)
	t.Cleanup(f.sessions.Close)

	validator, err := validation.NewContactValidator(registry.IDs())
	require.NoError(t, err)
	casino, err := domainservices.CompileModerationRule("no-casino", `message contains "casino"`)
	require.NoError(t, err)

	contact := services.NewContactService(
		ratelimit.NewSlidingWindow(3, time.Minute),
		validator,
		domainservices.NewContactFilter(casino),
		f.contacts,
		delivery.NewLogDelivery(logger),
		f.clock,
		logger,
	)

	f.server, err = NewServer(Options{
		Resolver: resolver,
		Sessions: f.sessions,
		Contact:  contact,
		Logger:   logger,
		Theme:    system.DefaultConfig().Theme,
		Version:  version.Get(),
	})
	require.NoError(t, err)
	return f
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (f *fixture) do(t *testing.T, method, path string, body string, cookie *http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", SessionCookie)
	return nil
}

func decodeView(t *testing.T, env envelope) dto.SessionView {
	t.Helper()
	var view dto.SessionView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", env.Status)

	rec, env = f.do(t, http.MethodGet, "/api/version", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"version"`)
}

func TestServer_Personas(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodGet, "/api/personas", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var personas []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &personas))
	require.Len(t, personas, 2)
	assert.Equal(t, "francisco", personas[0].ID)
	assert.Equal(t, "frankhurt", personas[1].ID)
}

func TestServer_PersonaLookup(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantName string
	}{
		{name: "known", path: "/api/personas/frankhurt", wantCode: http.StatusOK, wantName: "Frankhurt"},
		{name: "unknown", path: "/api/personas/fernando", wantCode: http.StatusNotFound},
		{name: "opposite", path: "/api/personas/francisco/opposite", wantCode: http.StatusOK, wantName: "Frankhurt"},
		{name: "opposite wraps", path: "/api/personas/frankhurt/opposite", wantCode: http.StatusOK, wantName: "Francisco"},
		{name: "opposite of unknown", path: "/api/personas/fernando/opposite", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := f.do(t, http.MethodGet, tt.path, "", nil)
			require.Equal(t, tt.wantCode, rec.Code)

			if tt.wantName == "" {
				assert.Equal(t, statusError, env.Status)
				return
			}
			var p struct {
				Name string `json:"name"`
			}
			require.NoError(t, json.Unmarshal(env.Data, &p))
			assert.Equal(t, tt.wantName, p.Name)
		})
	}
}

func TestServer_ToggleFlow(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodGet, "/api/session", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	view := decodeView(t, env)
	assert.True(t, view.IsLoaded)
	assert.False(t, view.IsSwitchOn)
	assert.Equal(t, "Francisco", view.Persona.Name)
	assert.Equal(t, "light", string(view.Theme))
	assert.True(t, strings.HasPrefix(view.Announcement, "Switched to Francisco's profile. "))

	rec, env = f.do(t, http.MethodPost, "/api/session/toggle", "", cookie)
	require.Equal(t, http.StatusAccepted, rec.Code)
	view = decodeView(t, env)
	assert.True(t, view.IsTransitioning)
	assert.Equal(t, "Francisco", view.Persona.Name)

	rec, _ = f.do(t, http.MethodPost, "/api/session/toggle", "", cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.clock.Advance(500 * time.Millisecond)
	_, env = f.do(t, http.MethodGet, "/api/session", "", cookie)
	view = decodeView(t, env)
	assert.True(t, view.IsSwitchOn)
	assert.True(t, view.IsTransitioning)
	assert.Equal(t, "Frankhurt", view.Persona.Name)
	assert.Equal(t, "dark", string(view.Theme))
	assert.True(t, strings.HasPrefix(view.Announcement, "Switched to Frankhurt's profile. "))

	f.clock.Advance(500 * time.Millisecond)
	_, env = f.do(t, http.MethodGet, "/api/session", "", cookie)
	assert.False(t, decodeView(t, env).IsTransitioning)

	rec, env = f.do(t, http.MethodGet, "/api/theme", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var palette dto.ThemePalette
	require.NoError(t, json.Unmarshal(env.Data, &palette))
	assert.Equal(t, "dark", string(palette.Theme))
	assert.Equal(t, "#121212", palette.Background)
	assert.GreaterOrEqual(t, palette.Contrast, 4.5)
}

func TestServer_SessionsAreIndependent(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/session", "", nil)
	alice := sessionCookie(t, rec)
	rec, _ = f.do(t, http.MethodGet, "/api/session", "", nil)
	bob := sessionCookie(t, rec)
	require.NotEqual(t, alice.Value, bob.Value)

	rec, _ = f.do(t, http.MethodPost, "/api/session/toggle", "", alice)
	require.Equal(t, http.StatusAccepted, rec.Code)
	f.clock.Advance(time.Second)

	_, env := f.do(t, http.MethodGet, "/api/session", "", alice)
	assert.True(t, decodeView(t, env).IsSwitchOn)
	_, env = f.do(t, http.MethodGet, "/api/session", "", bob)
	assert.False(t, decodeView(t, env).IsSwitchOn)
}

func TestServer_SwitchSurvivesSessionExpiry(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/session", "", nil)
	cookie := sessionCookie(t, rec)

	f.do(t, http.MethodPost, "/api/session/toggle", "", cookie)
	f.clock.Advance(time.Second)

	f.clock.Advance(31 * time.Minute)
	assert.Equal(t, 1, f.sessions.Sweep(f.clock.Now()))
	assert.Equal(t, 0, f.sessions.Len())

	rec, env := f.do(t, http.MethodGet, "/api/session", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "the returning visitor keeps their id")

	view := decodeView(t, env)
	assert.True(t, view.IsSwitchOn)
	assert.Equal(t, "Frankhurt", view.Persona.Name)
}

func TestServer_InvalidCookieGetsFreshSession(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/session", "", &http.Cookie{Name: SessionCookie, Value: "../../etc"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "../../etc", sessionCookie(t, rec).Value)
}

func TestServer_CloseCancelsTransitions(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/session", "", nil)
	cookie := sessionCookie(t, rec)
	f.do(t, http.MethodPost, "/api/session/toggle", "", cookie)
	require.Equal(t, 1, f.clock.Pending())

	f.sessions.Close()
	assert.Equal(t, 0, f.clock.Pending())

	f.clock.Advance(time.Hour)
	_, found, err := storage.New(f.kv, nil).WithPrefix("session:"+cookie.Value).LookupBool(context.Background(), ports.SwitchKey)
	require.NoError(t, err)
	assert.False(t, found)

	rec, env := f.do(t, http.MethodGet, "/api/session", "", cookie)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, statusError, env.Status)
}

func contactBody(t *testing.T, mutate func(req *dto.ContactRequest)) string {
	t.Helper()
	req := dto.ContactRequest{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Subject: "Collaboration",
		Message: "Would you like to build an engine together?",
		Persona: "francisco",
	}
	if mutate != nil {
		mutate(&req)
	}
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(req))
	return buf.String()
}

func TestServer_Contact(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodPost, "/api/contact", contactBody(t, nil), nil)
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)

	var resp dto.ContactResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "francisco", resp.Persona)

	stored, err := f.contacts.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", stored.ClientKey)
}

func TestServer_ContactErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "malformed json", body: "{", wantCode: http.StatusBadRequest},
		{name: "bad email", body: "", wantCode: http.StatusBadRequest},
		{name: "moderated", body: "", wantCode: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			body := tt.body
			switch tt.name {
			case "bad email":
				body = contactBody(t, func(r *dto.ContactRequest) { r.Email = "nope" })
			case "moderated":
				body = contactBody(t, func(r *dto.ContactRequest) { r.Message = "Visit my online casino today" })
			}

			rec, env := f.do(t, http.MethodPost, "/api/contact", body, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, statusError, env.Status)
			assert.NotContains(t, env.Message, "no-casino")
		})
	}
}

func TestServer_ContactRateLimit(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		rec, _ := f.do(t, http.MethodPost, "/api/contact", contactBody(t, nil), nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, env := f.do(t, http.MethodPost, "/api/contact", contactBody(t, nil), nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, statusError, env.Status)

	f.clock.Advance(time.Minute)
	rec, _ = f.do(t, http.MethodPost, "/api/contact", contactBody(t, nil), nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/session/toggle", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
