package ports

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KeyValueStore.Load for absent keys.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is a durable, synchronous key-value slot store.
// Values are opaque serialized payloads.
type KeyValueStore interface {
	// Load returns the payload stored under key, or ErrKeyNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Store writes the payload for key, replacing any previous value.
	Store(ctx context.Context, key string, value []byte) error
}

// SwitchStorage is the typed view the switch controller persists through.
// Implementations never fail on read: Lookup distinguishes a missing key
// (found=false, err=nil) from a payload that does not decode (err != nil).
type SwitchStorage interface {
	LookupBool(ctx context.Context, key string) (value bool, found bool, err error)
	SetBool(ctx context.Context, key string, value bool) error
}

// SwitchKey is the storage slot holding the persona switch flag.
const SwitchKey = "isSwitchOn"
