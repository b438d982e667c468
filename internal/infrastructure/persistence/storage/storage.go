// Package storage provides the typed JSON facade over a key-value store.
// It mirrors the browser storage contract: reads never fail (they fall back),
// writes report failure instead of raising it.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/dualfolio/dualfolio/internal/application/errors"
	"github.com/dualfolio/dualfolio/internal/application/ports"
)

// Ensure interface compliance
var _ ports.SwitchStorage = (*Storage)(nil)

// Storage serializes values as JSON into a ports.KeyValueStore.
//
// Get and Set are the fall-back/report-failure contract for general callers.
// The switch controller goes through Lookup (via LookupBool and SetBool)
// instead, because it has to tell a missing flag from a corrupted one.
type Storage struct {
	store  ports.KeyValueStore
	logger *slog.Logger
	prefix string
}

// New creates a Storage over store.
func New(store ports.KeyValueStore, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{store: store, logger: logger}
}

// WithPrefix returns a view whose keys are namespaced by prefix.
// Each visitor session gets its own view so switch flags do not collide.
func (s *Storage) WithPrefix(prefix string) *Storage {
	return &Storage{
		store:  s.store,
		logger: s.logger,
		prefix: s.prefix + prefix + ":",
	}
}

func (s *Storage) key(k string) string {
	return s.prefix + k
}

// Lookup reads key and decodes it into T.
// found is false with a nil error when the key is absent; a payload that
// does not decode into T is reported as an error.
func Lookup[T any](ctx context.Context, s *Storage, key string) (value T, found bool, err error) {
	data, err := s.store.Load(ctx, s.key(key))
	if errors.Is(err, ports.ErrKeyNotFound) {
		return value, false, nil
	}
	if err != nil {
		return value, false, fmt.Errorf("failed to read %q: %w", key, err)
	}

	if err := json.Unmarshal(data, &value); err != nil {
		var zero T
		return zero, true, fmt.Errorf("stored value for %q is not a %T: %w", key, zero, err)
	}
	return value, true, nil
}

// Get returns the value under key, or fallback when it is absent or unreadable.
func Get[T any](ctx context.Context, s *Storage, key string, fallback T) T {
	value, found, err := Lookup[T](ctx, s, key)
	if err != nil {
		s.logger.Debug("storage read failed, using fallback", "key", key, "error", err)
		return fallback
	}
	if !found {
		return fallback
	}
	return value
}

// Set stores value under key and reports whether the write succeeded.
func Set[T any](ctx context.Context, s *Storage, key string, value T) bool {
	if err := set(ctx, s, key, value); err != nil {
		s.logger.Debug("storage write failed", "key", key, "error", err)
		return false
	}
	return true
}

func set[T any](ctx context.Context, s *Storage, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewStorageWriteError(key, err)
	}
	if err := s.store.Store(ctx, s.key(key), data); err != nil {
		return apperrors.NewStorageWriteError(key, err)
	}
	return nil
}

// LookupBool implements ports.SwitchStorage.
func (s *Storage) LookupBool(ctx context.Context, key string) (bool, bool, error) {
	return Lookup[bool](ctx, s, key)
}

// SetBool implements ports.SwitchStorage.
func (s *Storage) SetBool(ctx context.Context, key string, value bool) error {
	return set(ctx, s, key, value)
}
