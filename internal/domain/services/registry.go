package services

import (
	"errors"
	"fmt"

	"github.com/dualfolio/dualfolio/internal/domain/entities"
	"github.com/dualfolio/dualfolio/internal/domain/values"
)

// ErrEmptyRegistry is returned when a registry is built without personas.
var ErrEmptyRegistry = errors.New("persona registry must contain at least one persona")

// Registry is the immutable, insertion-ordered set of personas.
// It is built once at startup and never mutated afterwards, so it is safe
// for concurrent reads without locking.
type Registry struct {
	byID  map[string]*entities.Persona
	order []values.PersonaID
}

// NewRegistry validates the personas and freezes them in the given order.
func NewRegistry(personas ...entities.Persona) (*Registry, error) {
	if len(personas) == 0 {
		return nil, ErrEmptyRegistry
	}

	r := &Registry{
		byID:  make(map[string]*entities.Persona, len(personas)),
		order: make([]values.PersonaID, 0, len(personas)),
	}

	for i := range personas {
		p := personas[i].Clone()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		key := p.ID.String()
		if _, dup := r.byID[key]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", key)
		}
		r.byID[key] = &p
		r.order = append(r.order, p.ID)
	}

	return r, nil
}

// MustNewRegistry creates a Registry or panics
func MustNewRegistry(personas ...entities.Persona) *Registry {
	r, err := NewRegistry(personas...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultID returns the first registered id.
func (r *Registry) DefaultID() values.PersonaID {
	return r.order[0]
}

// Len returns the number of personas.
func (r *Registry) Len() int {
	return len(r.order)
}

// IDs returns the canonical ordering. The slice is a copy.
func (r *Registry) IDs() []values.PersonaID {
	return append([]values.PersonaID(nil), r.order...)
}

// Personas returns deep copies of all personas in canonical order.
func (r *Registry) Personas() []entities.Persona {
	out := make([]entities.Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id.String()].Clone())
	}
	return out
}

// Lookup returns a copy of the persona registered under id.
func (r *Registry) Lookup(id string) (entities.Persona, bool) {
	p, ok := r.byID[id]
	if !ok {
		return entities.Persona{}, false
	}
	return p.Clone(), true
}

// IndexOf returns the canonical position of id, or -1.
func (r *Registry) IndexOf(id string) int {
	for i, known := range r.order {
		if known.String() == id {
			return i
		}
	}
	return -1
}

// At returns the persona at canonical position i.
func (r *Registry) At(i int) entities.Persona {
	return r.byID[r.order[i].String()].Clone()
}
