package entities

import (
	"errors"
	"fmt"
)

// ErrPersonaNotFound is matched by PersonaNotFoundError through errors.Is.
var ErrPersonaNotFound = errors.New("persona not found")

// PersonaNotFoundError indicates a strict lookup for an id that is not registered.
type PersonaNotFoundError struct {
	ID string
}

func (e *PersonaNotFoundError) Error() string {
	return fmt.Sprintf("persona not found: %q", e.ID)
}

// Is reports whether target is ErrPersonaNotFound.
func (e *PersonaNotFoundError) Is(target error) bool {
	return target == ErrPersonaNotFound
}
