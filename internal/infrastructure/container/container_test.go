package container

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualfolio/dualfolio/internal/application/dto"
	apperrors "github.com/dualfolio/dualfolio/internal/application/errors"
	"github.com/dualfolio/dualfolio/internal/application/ports"
	"github.com/dualfolio/dualfolio/internal/infrastructure/scheduler"
	"github.com/dualfolio/dualfolio/internal/infrastructure/system"
)

func newTestContainer(t *testing.T, cfg *system.Config, clock *scheduler.Manual) *Container {
	t.Helper()
	c, err := New(Options{
		Config:    cfg,
		Logger:    slog.New(slog.DiscardHandler),
		Scheduler: clock,
	})
	require.NoError(t, err)
	return c
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Options{Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, system.DefaultConfig(), c.SystemConfig())
	assert.Len(t, c.PersonaResolver().GetAllPersonas(), 2)
	assert.NotNil(t, c.Server())
	assert.NotNil(t, c.ContactService())
	assert.NotNil(t, c.ContactRepository())
	assert.NotNil(t, c.Storage())
	assert.NotNil(t, c.Logger())
	assert.NotNil(t, c.RateLimiter())
	assert.NotNil(t, c.Clock())
}

func TestNew_SessionsUseConfiguredTiming(t *testing.T) {
	cfg := system.DefaultConfig()
	cfg.Transition.CoverDelay = time.Second
	cfg.Transition.RevealDelay = 2 * time.Second

	clock := scheduler.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c := newTestContainer(t, cfg, clock)
	defer c.Close()

	sess, err := c.Sessions().Acquire(context.Background(), "")
	require.NoError(t, err)

	started, err := sess.Controller.Toggle()
	require.NoError(t, err)
	require.True(t, started)

	clock.Advance(999 * time.Millisecond)
	state, err := sess.Controller.State()
	require.NoError(t, err)
	assert.False(t, state.IsSwitchOn)

	clock.Advance(time.Millisecond)
	state, err = sess.Controller.State()
	require.NoError(t, err)
	assert.True(t, state.IsSwitchOn)
	assert.True(t, state.IsTransitioning)

	clock.Advance(2 * time.Second)
	state, err = sess.Controller.State()
	require.NoError(t, err)
	assert.False(t, state.IsTransitioning)

	on, found, err := c.Storage().WithPrefix(SessionPrefix(sess.ID)).LookupBool(context.Background(), ports.SwitchKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, on)
}

func TestNew_SQLiteBackendPersistsAcrossRestarts(t *testing.T) {
	cfg := system.DefaultConfig()
	cfg.Storage.Backend = system.BackendSQLite
	cfg.Storage.Path = filepath.Join(t.TempDir(), "dualfolio.db")
	clock := scheduler.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	id := uuid.NewString()

	first := newTestContainer(t, cfg, clock)
	sess, err := first.Sessions().Acquire(context.Background(), id)
	require.NoError(t, err)
	_, err = sess.Controller.Toggle()
	require.NoError(t, err)
	clock.Advance(time.Second)
	require.NoError(t, first.Close())

	second := newTestContainer(t, cfg, clock)
	defer second.Close()

	sess, err = second.Sessions().Acquire(context.Background(), id)
	require.NoError(t, err)
	persona, err := sess.Controller.CurrentPersona()
	require.NoError(t, err)
	assert.Equal(t, "frankhurt", persona.ID.String())
}

func TestNew_InvalidModerationRule(t *testing.T) {
	cfg := system.DefaultConfig()
	cfg.Storage.Backend = system.BackendSQLite
	cfg.Storage.Path = filepath.Join(t.TempDir(), "dualfolio.db")
	cfg.Contact.ModerationRules = []system.ModerationRuleConfig{
		{Name: "broken", Expr: "message contains"},
	}

	_, err := New(Options{Config: cfg, Logger: slog.New(slog.DiscardHandler)})
	require.Error(t, err)

	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "broken")

	// The database was released, so a second container can open it
	cfg.Contact.ModerationRules = nil
	c, err := New(Options{Config: cfg, Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestNew_MissingPersonaFile(t *testing.T) {
	cfg := system.DefaultConfig()
	cfg.Personas.File = filepath.Join(t.TempDir(), "absent.yaml")

	_, err := New(Options{Config: cfg, Logger: slog.New(slog.DiscardHandler)})
	var cfgErr *apperrors.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestContainer_CloseIsIdempotent(t *testing.T) {
	c, err := New(Options{Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Sessions().Acquire(context.Background(), "")
	assert.Error(t, err)
}

func TestNew_ContactMessagesAreScrubbed(t *testing.T) {
	cfg := system.DefaultConfig()
	cfg.Contact.Redaction.Gitleaks = false

	c := newTestContainer(t, cfg, scheduler.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	defer c.Close()

	resp, err := c.ContactService().Submit(context.Background(), "10.0.0.1", dto.ContactRequest{
		Name:    "Ada",
		Email:   "ada@example.com",
		Subject: "Leaked token",
		Message: "I found ghp_" + strings.Repeat("x", 36) + " in your repo.",
		Persona: "francisco",
	})
	require.NoError(t, err)

	msg, err := c.ContactRepository().FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "I found [REDACTED] in your repo.", msg.Message)
}
