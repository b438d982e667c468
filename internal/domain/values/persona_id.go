package values

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PersonaID identifies one of the personas in the registry.
// Enforces non-empty, trimmed, lower-case identifiers.
type PersonaID struct {
	value string
}

// NewPersonaID creates a PersonaID with validation
func NewPersonaID(id string) (PersonaID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return PersonaID{}, fmt.Errorf("persona id cannot be empty")
	}
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return PersonaID{}, fmt.Errorf("persona id %q contains invalid character %q", id, r)
		}
	}
	return PersonaID{value: id}, nil
}

// MustNewPersonaID creates a PersonaID or panics
func MustNewPersonaID(id string) PersonaID {
	pid, err := NewPersonaID(id)
	if err != nil {
		panic(err)
	}
	return pid
}

// String returns the string representation
func (p PersonaID) String() string {
	return p.value
}

// IsEmpty returns true if this is the zero value
func (p PersonaID) IsEmpty() bool {
	return p.value == ""
}

// Equals checks if two persona ids are equal
func (p PersonaID) Equals(other PersonaID) bool {
	return p.value == other.value
}

// MarshalJSON implements json.Marshaler
func (p PersonaID) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (p *PersonaID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid persona id JSON: %w", err)
	}

	id, err := NewPersonaID(s)
	if err != nil {
		return err
	}
	*p = id
	return nil
}

// MarshalYAML implements yaml.InterfaceMarshaler
func (p PersonaID) MarshalYAML() (interface{}, error) {
	return p.value, nil
}

// UnmarshalYAML implements yaml.InterfaceUnmarshaler
func (p *PersonaID) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	id, err := NewPersonaID(s)
	if err != nil {
		return err
	}
	*p = id
	return nil
}
