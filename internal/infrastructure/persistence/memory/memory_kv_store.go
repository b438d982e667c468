package memory

import (
	"context"
	"sync"

	"github.com/dualfolio/dualfolio/internal/application/ports"
)

// Ensure interface compliance
var _ ports.KeyValueStore = (*KeyValueStore)(nil)

// KeyValueStore is an in-memory ports.KeyValueStore.
// Values do not survive a restart.
type KeyValueStore struct {
	data     map[string][]byte
	writeErr error
	mu       sync.RWMutex
}

// NewKeyValueStore creates an empty store.
func NewKeyValueStore() *KeyValueStore {
	return &KeyValueStore{
		data: make(map[string][]byte),
	}
}

// Load returns the payload stored under key.
func (s *KeyValueStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, ports.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Store writes the payload for key.
func (s *KeyValueStore) Store(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// FailWrites makes every subsequent Store return err. A nil err restores writes.
// It simulates a full or disabled storage area.
func (s *KeyValueStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}
