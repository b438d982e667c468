package services

import (
	"log/slog"

	"github.com/dualfolio/dualfolio/internal/domain/entities"
	"github.com/dualfolio/dualfolio/internal/domain/values"
)

// PersonaResolver maps ids and the switch flag onto registered personas.
// All methods are pure lookups over the immutable Registry.
type PersonaResolver struct {
	registry *Registry
	logger   *slog.Logger
}

// NewPersonaResolver creates a resolver over registry.
func NewPersonaResolver(registry *Registry, logger *slog.Logger) *PersonaResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersonaResolver{
		registry: registry,
		logger:   logger,
	}
}

// Registry returns the underlying registry.
func (r *PersonaResolver) Registry() *Registry {
	return r.registry
}

// DefaultID returns the id used as fallback.
func (r *PersonaResolver) DefaultID() values.PersonaID {
	return r.registry.DefaultID()
}

// IsValidPersonaID reports whether x is a string (or PersonaID) naming a registered persona.
func (r *PersonaResolver) IsValidPersonaID(x any) bool {
	var id string
	switch v := x.(type) {
	case string:
		id = v
	case values.PersonaID:
		id = v.String()
	default:
		return false
	}
	_, ok := r.registry.byID[id]
	return ok
}

// PersonaExists reports whether id is registered.
func (r *PersonaResolver) PersonaExists(id string) bool {
	return r.IsValidPersonaID(id)
}

// GetPersona is the strict lookup. Unknown ids fail with *entities.PersonaNotFoundError.
func (r *PersonaResolver) GetPersona(id string) (entities.Persona, error) {
	p, ok := r.registry.Lookup(id)
	if !ok {
		return entities.Persona{}, &entities.PersonaNotFoundError{ID: id}
	}
	return p, nil
}

// GetPersonaSafe looks up id and falls back to the default persona when it is unknown.
func (r *PersonaResolver) GetPersonaSafe(id string) entities.Persona {
	p, err := r.GetPersona(id)
	if err != nil {
		r.logger.Warn("unknown persona, using default",
			"persona", id,
			"default", r.registry.DefaultID().String(),
			"error", err)
		return r.registry.At(0)
	}
	return p
}

// GetCurrentPersona projects the switch flag: off is the primary persona,
// on is the secondary. A single-persona registry maps both to the only entry.
func (r *PersonaResolver) GetCurrentPersona(isSwitchOn bool) entities.Persona {
	if isSwitchOn && r.registry.Len() > 1 {
		return r.registry.At(1)
	}
	return r.registry.At(0)
}

// GetOppositePersona returns the cyclic successor of id in canonical order.
// With two personas this is the other one.
func (r *PersonaResolver) GetOppositePersona(id string) (entities.Persona, error) {
	i := r.registry.IndexOf(id)
	if i < 0 {
		return entities.Persona{}, &entities.PersonaNotFoundError{ID: id}
	}
	return r.registry.At((i + 1) % r.registry.Len()), nil
}

// GetAllPersonas returns copies of every persona in canonical order.
func (r *PersonaResolver) GetAllPersonas() []entities.Persona {
	return r.registry.Personas()
}

// GetAllPersonaIDs returns the canonical id ordering.
func (r *PersonaResolver) GetAllPersonaIDs() []values.PersonaID {
	return r.registry.IDs()
}
