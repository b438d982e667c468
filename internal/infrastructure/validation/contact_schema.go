package validation

import (
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dualfolio/dualfolio/internal/application/ports"
	"github.com/dualfolio/dualfolio/internal/domain/values"
)

// Ensure interface compliance
var _ ports.ContactValidator = (*ContactValidator)(nil)

// Contact form field limits.
const (
	NameMinLength    = 2
	NameMaxLength    = 100
	SubjectMinLength = 2
	SubjectMaxLength = 200
	MessageMinLength = 10
	MessageMaxLength = 5000
)

// ContactValidator validates contact form documents. The persona field is
// restricted to the ids of the loaded registry.
type ContactValidator struct {
	schema *jsonschema.Schema
}

// NewContactValidator compiles the contact schema for the given persona ids.
func NewContactValidator(personaIDs []values.PersonaID) (*ContactValidator, error) {
	if len(personaIDs) == 0 {
		return nil, fmt.Errorf("contact schema requires at least one persona id")
	}

	schema, err := compileSchema("contact.schema.json", ContactSchema(personaIDs))
	if err != nil {
		return nil, err
	}
	return &ContactValidator{schema: schema}, nil
}

// ValidateContact implements ports.ContactValidator.
func (v *ContactValidator) ValidateContact(doc map[string]interface{}) error {
	return validate(v.schema, "contact", doc)
}

// ContactSchema renders the contact form JSON Schema.
func ContactSchema(personaIDs []values.PersonaID) []byte {
	ids := make([]string, len(personaIDs))
	for i, id := range personaIDs {
		ids[i] = id.String()
	}

	str := func(minLength, maxLength int) map[string]interface{} {
		return map[string]interface{}{
			"type":      "string",
			"minLength": minLength,
			"maxLength": maxLength,
			"pattern":   `\S`,
		}
	}

	schema := map[string]interface{}{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"title":                "Contact form submission",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"name", "email", "subject", "message", "persona"},
		"properties": map[string]interface{}{
			"name": str(NameMinLength, NameMaxLength),
			"email": map[string]interface{}{
				"type":      "string",
				"format":    "email",
				"maxLength": 254,
			},
			"subject": str(SubjectMinLength, SubjectMaxLength),
			"message": str(MessageMinLength, MessageMaxLength),
			"persona": map[string]interface{}{
				"type": "string",
				"enum": ids,
			},
		},
	}

	// A map of JSON-safe values always marshals
	data, _ := json.Marshal(schema)
	return data
}
