// Package system provides infrastructure for process-level configuration.
// Values come from the config file (~/.dualfolio.yaml), DUALFOLIO_* environment
// variables and flags, merged by viper.
package system

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/dualfolio/dualfolio/internal/application/errors"
	"github.com/dualfolio/dualfolio/internal/domain/values"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "DUALFOLIO"

// EnvKeyReplacer maps nested keys to variable names: session.idle_timeout
// becomes DUALFOLIO_SESSION_IDLE_TIMEOUT.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Personas   PersonasConfig   `mapstructure:"personas"`
	Log        LogConfig        `mapstructure:"log"`
	Theme      ThemeConfig      `mapstructure:"theme"`
	Contact    ContactConfig    `mapstructure:"contact"`
	Transition TransitionConfig `mapstructure:"transition"`
	Session    SessionConfig    `mapstructure:"session"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// StorageConfig selects where switch flags and contact messages are kept.
type StorageConfig struct {
	// Backend is "memory" or "sqlite"
	Backend string `mapstructure:"backend"`
	// Path is the SQLite database file
	Path string `mapstructure:"path"`
}

// PersonasConfig points at an alternative persona registry file.
// An empty File selects the bundled registry.
type PersonasConfig struct {
	File string `mapstructure:"file"`
}

// LogConfig configures the optional JSON log file sink.
type LogConfig struct {
	File string `mapstructure:"file"`
}

// TransitionConfig holds the persona switch pacing.
type TransitionConfig struct {
	CoverDelay  time.Duration `mapstructure:"cover_delay"`
	RevealDelay time.Duration `mapstructure:"reveal_delay"`
}

// SessionConfig controls visitor session lifetime.
type SessionConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// ContactConfig configures the contact form.
type ContactConfig struct {
	ModerationRules []ModerationRuleConfig `mapstructure:"moderation_rules"`
	RateLimit       RateLimitConfig        `mapstructure:"rate_limit"`
	Redaction       RedactionConfig        `mapstructure:"redaction"`
}

// RedactionConfig controls how credentials pasted into contact messages are
// removed before the messages are stored.
type RedactionConfig struct {
	// Extra regular expressions to redact
	Patterns []string `mapstructure:"patterns"`
	// Salt keys the HMAC markers written in hash mode
	Salt     string `mapstructure:"salt"`
	Enabled  bool   `mapstructure:"enabled"`
	Gitleaks bool   `mapstructure:"gitleaks"`
	HashMode bool   `mapstructure:"hash_mode"`
}

// RateLimitConfig is a sliding window budget per client.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// ModerationRuleConfig is a named expression that rejects a message when true.
// Example: {name: no-links, expr: 'message contains "http://"'}
type ModerationRuleConfig struct {
	Name string `mapstructure:"name"`
	Expr string `mapstructure:"expr"`
}

// ThemeConfig holds the colour pair of each theme.
type ThemeConfig struct {
	Light PaletteConfig `mapstructure:"light"`
	Dark  PaletteConfig `mapstructure:"dark"`
}

// PaletteConfig is a foreground/background pair in #rrggbb notation.
type PaletteConfig struct {
	Foreground string `mapstructure:"foreground"`
	Background string `mapstructure:"background"`
}

// DefaultConfig returns a Config with safe defaults for all fields.
// This is used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
			Path:    "dualfolio.db",
		},
		Transition: TransitionConfig{
			CoverDelay:  500 * time.Millisecond,
			RevealDelay: 500 * time.Millisecond,
		},
		Session: SessionConfig{
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Contact: ContactConfig{
			RateLimit: RateLimitConfig{
				MaxRequests: 3,
				Window:      time.Minute,
			},
			ModerationRules: []ModerationRuleConfig{},
			Redaction: RedactionConfig{
				Enabled:  true,
				Gitleaks: true,
				Patterns: []string{},
			},
		},
		Theme: ThemeConfig{
			Light: PaletteConfig{Foreground: "#1a1a1a", Background: "#ffffff"},
			Dark:  PaletteConfig{Foreground: "#f5f5f5", Background: "#121212"},
		},
	}
}

// SetDefaults registers every key with its default so that environment
// overrides are visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("personas.file", d.Personas.File)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("transition.cover_delay", d.Transition.CoverDelay)
	v.SetDefault("transition.reveal_delay", d.Transition.RevealDelay)
	v.SetDefault("session.idle_timeout", d.Session.IdleTimeout)
	v.SetDefault("session.sweep_interval", d.Session.SweepInterval)
	v.SetDefault("contact.rate_limit.max_requests", d.Contact.RateLimit.MaxRequests)
	v.SetDefault("contact.rate_limit.window", d.Contact.RateLimit.Window)
	v.SetDefault("contact.moderation_rules", d.Contact.ModerationRules)
	v.SetDefault("contact.redaction.enabled", d.Contact.Redaction.Enabled)
	v.SetDefault("contact.redaction.gitleaks", d.Contact.Redaction.Gitleaks)
	v.SetDefault("contact.redaction.patterns", d.Contact.Redaction.Patterns)
	v.SetDefault("contact.redaction.hash_mode", d.Contact.Redaction.HashMode)
	v.SetDefault("contact.redaction.salt", d.Contact.Redaction.Salt)
	v.SetDefault("theme.light.foreground", d.Theme.Light.Foreground)
	v.SetDefault("theme.light.background", d.Theme.Light.Background)
	v.SetDefault("theme.dark.foreground", d.Theme.Dark.Foreground)
	v.SetDefault("theme.dark.background", d.Theme.Dark.Background)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.NewConfigurationError("config", "failed to decode configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of %s, %s", c.Storage.Backend, BackendMemory, BackendSQLite))
	}

	if c.Transition.CoverDelay < 0 || c.Transition.RevealDelay < 0 {
		errs = append(errs, errors.New("transition delays must not be negative"))
	}
	if c.Session.IdleTimeout <= 0 {
		errs = append(errs, errors.New("session.idle_timeout must be positive"))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("session.sweep_interval must be positive"))
	}
	if c.Contact.RateLimit.MaxRequests <= 0 {
		errs = append(errs, errors.New("contact.rate_limit.max_requests must be positive"))
	}
	if c.Contact.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("contact.rate_limit.window must be positive"))
	}
	for i, rule := range c.Contact.ModerationRules {
		if rule.Name == "" || rule.Expr == "" {
			errs = append(errs, fmt.Errorf("contact.moderation_rules[%d] needs a name and an expr", i))
		}
	}

	if c.Contact.Redaction.HashMode && c.Contact.Redaction.Salt == "" {
		errs = append(errs, errors.New("contact.redaction.salt is required in hash mode"))
	}
	for i, p := range c.Contact.Redaction.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("contact.redaction.patterns[%d]: %w", i, err))
		}
	}

	for _, theme := range []values.Theme{values.ThemeLight, values.ThemeDark} {
		if _, _, err := c.Theme.Colors(theme); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return apperrors.NewConfigurationError("config", "invalid configuration", errors.Join(errs...))
	}
	return nil
}

// Colors parses the palette for theme and checks it meets the minimum
// contrast ratio.
func (t ThemeConfig) Colors(theme values.Theme) (fg, bg values.Color, err error) {
	palette := t.Light
	if theme.IsDark() {
		palette = t.Dark
	}

	fg, err = values.ParseColor(palette.Foreground)
	if err != nil {
		return fg, bg, fmt.Errorf("theme.%s.foreground: %w", theme, err)
	}
	bg, err = values.ParseColor(palette.Background)
	if err != nil {
		return fg, bg, fmt.Errorf("theme.%s.background: %w", theme, err)
	}

	if ratio := values.ContrastRatio(fg, bg); ratio < values.MinContrastRatio {
		return fg, bg, fmt.Errorf("theme.%s contrast %.2f:1 is below %.1f:1", theme, ratio, values.MinContrastRatio)
	}
	return fg, bg, nil
}
