// Package container provides dependency injection for the application.
package container

import (
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/dualfolio/dualfolio/internal/application/errors"
	"github.com/dualfolio/dualfolio/internal/application/ports"
	"github.com/dualfolio/dualfolio/internal/application/services"
	"github.com/dualfolio/dualfolio/internal/domain/repositories"
	domainservices "github.com/dualfolio/dualfolio/internal/domain/services"
	"github.com/dualfolio/dualfolio/internal/infrastructure/config"
	"github.com/dualfolio/dualfolio/internal/infrastructure/delivery"
	"github.com/dualfolio/dualfolio/internal/infrastructure/httpapi"
	"github.com/dualfolio/dualfolio/internal/infrastructure/persistence/memory"
	"github.com/dualfolio/dualfolio/internal/infrastructure/persistence/sqlite"
	"github.com/dualfolio/dualfolio/internal/infrastructure/persistence/storage"
	"github.com/dualfolio/dualfolio/internal/infrastructure/ratelimit"
	"github.com/dualfolio/dualfolio/internal/infrastructure/redaction"
	"github.com/dualfolio/dualfolio/internal/infrastructure/scheduler"
	"github.com/dualfolio/dualfolio/internal/infrastructure/system"
	"github.com/dualfolio/dualfolio/internal/infrastructure/validation"
	"github.com/dualfolio/dualfolio/internal/version"
)

// Container holds all application dependencies.
type Container struct {
	resolver *domainservices.PersonaResolver
	storage  *storage.Storage
	contacts repositories.ContactRepository
	sessions *httpapi.SessionManager
	contact  *services.ContactService
	limiter  *ratelimit.SlidingWindow
	server   *httpapi.Server
	clock    ports.Clock
	cfg      *system.Config
	logger   *slog.Logger
	closers  []func() error
}

// Options configure the container.
type Options struct {
	Config *system.Config
	Logger *slog.Logger
	// Scheduler drives switch transitions and session expiry. Defaults to
	// the wall clock.
	Scheduler interface {
		ports.Scheduler
		ports.Clock
	}
}

// New creates a new dependency injection container.
func New(opts Options) (*Container, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Config == nil {
		opts.Config = system.DefaultConfig()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.Real{}
	}
	cfg := opts.Config

	loader, err := config.NewPersonaLoader()
	if err != nil {
		return nil, err
	}
	registry, err := loader.Load(cfg.Personas.File)
	if err != nil {
		return nil, err
	}
	resolver := domainservices.NewPersonaResolver(registry, opts.Logger)

	c := &Container{
		resolver: resolver,
		clock:    opts.Scheduler,
		cfg:      cfg,
		logger:   opts.Logger,
	}

	var kv ports.KeyValueStore
	switch cfg.Storage.Backend {
	case system.BackendSQLite:
		store, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, store.Close)
		kv, c.contacts = store, store
	default:
		kv, c.contacts = memory.NewKeyValueStore(), memory.NewContactRepository()
	}
	c.storage = storage.New(kv, opts.Logger)

	// Close what is already open if wiring fails past this point
	ok := false
	defer func() {
		if !ok {
			_ = c.Close()
		}
	}()

	timing := services.TransitionTiming{
		Cover:  cfg.Transition.CoverDelay,
		Reveal: cfg.Transition.RevealDelay,
	}
	sched := opts.Scheduler
	factory := func(sessionID string, theme ports.ThemeMarker, announcer ports.Announcer) (*services.SwitchController, error) {
		return services.NewSwitchController(services.SwitchControllerDeps{
			Resolver:  resolver,
			Storage:   c.storage.WithPrefix(SessionPrefix(sessionID)),
			Scheduler: sched,
			Theme:     theme,
			Announcer: announcer,
			Logger:    opts.Logger.With("session", sessionID),
		}, timing)
	}
	c.sessions = httpapi.NewSessionManager(factory, sched, cfg.Session.IdleTimeout, opts.Logger)
	c.closers = append(c.closers, func() error {
		c.sessions.Close()
		return nil
	})

	validator, err := validation.NewContactValidator(registry.IDs())
	if err != nil {
		return nil, err
	}
	filter, err := moderationFilter(cfg.Contact.ModerationRules)
	if err != nil {
		return nil, err
	}
	c.limiter = ratelimit.NewSlidingWindow(cfg.Contact.RateLimit.MaxRequests, cfg.Contact.RateLimit.Window)
	c.contact = services.NewContactService(
		c.limiter,
		validator,
		filter,
		c.contacts,
		delivery.NewLogDelivery(opts.Logger),
		sched,
		opts.Logger,
	)
	if redact := cfg.Contact.Redaction; redact.Enabled {
		scrubber, err := redaction.New(redaction.Config{
			Patterns:        redact.Patterns,
			Salt:            redact.Salt,
			HashMode:        redact.HashMode,
			DisableGitleaks: !redact.Gitleaks,
		})
		if err != nil {
			return nil, apperrors.NewConfigurationError("contact.redaction", "failed to build secret scrubber", err)
		}
		c.contact.WithScrubber(scrubber)
	}

	c.server, err = httpapi.NewServer(httpapi.Options{
		Resolver: resolver,
		Sessions: c.sessions,
		Contact:  c.contact,
		Logger:   opts.Logger,
		Theme:    cfg.Theme,
		Version:  version.Get(),
	})
	if err != nil {
		return nil, err
	}

	ok = true
	return c, nil
}

// SessionPrefix namespaces the persisted switch flag of one visitor session.
func SessionPrefix(sessionID string) string {
	return "session:" + sessionID
}

func moderationFilter(rules []system.ModerationRuleConfig) (*domainservices.ContactFilter, error) {
	compiled := make([]domainservices.ModerationRule, 0, len(rules))
	for _, r := range rules {
		rule, err := domainservices.CompileModerationRule(r.Name, r.Expr)
		if err != nil {
			return nil, apperrors.NewConfigurationError("contact.moderation_rules", fmt.Sprintf("rule %q does not compile", r.Name), err)
		}
		compiled = append(compiled, rule)
	}
	return domainservices.NewContactFilter(compiled...), nil
}

// PersonaResolver returns the persona resolver.
func (c *Container) PersonaResolver() *domainservices.PersonaResolver {
	return c.resolver
}

// Storage returns the typed storage over the configured backend.
func (c *Container) Storage() *storage.Storage {
	return c.storage
}

// ContactRepository returns the contact message repository.
func (c *Container) ContactRepository() repositories.ContactRepository {
	return c.contacts
}

// Sessions returns the visitor session manager.
func (c *Container) Sessions() *httpapi.SessionManager {
	return c.sessions
}

// ContactService returns the contact form use case.
func (c *Container) ContactService() *services.ContactService {
	return c.contact
}

// RateLimiter returns the contact form rate limiter.
func (c *Container) RateLimiter() *ratelimit.SlidingWindow {
	return c.limiter
}

// Clock returns the clock driving transitions and expiry.
func (c *Container) Clock() ports.Clock {
	return c.clock
}

// Server returns the HTTP API.
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// SystemConfig returns the system configuration.
func (c *Container) SystemConfig() *system.Config {
	return c.cfg
}

// Logger returns the configured logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Close releases the sessions and the storage backend, most recent first.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
