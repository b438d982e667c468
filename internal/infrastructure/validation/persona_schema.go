package validation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/personas.schema.json
var personasSchema []byte

// PersonaFileValidator validates persona registry files before they are decoded.
type PersonaFileValidator struct {
	schema *jsonschema.Schema
}

// NewPersonaFileValidator compiles the embedded persona file schema.
func NewPersonaFileValidator() (*PersonaFileValidator, error) {
	schema, err := compileSchema("personas.schema.json", personasSchema)
	if err != nil {
		return nil, err
	}
	return &PersonaFileValidator{schema: schema}, nil
}

// ValidateYAML checks a YAML persona file against the schema.
func (v *PersonaFileValidator) ValidateYAML(data []byte) error {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("failed to parse persona file: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode persona file: %w", err)
	}

	return validate(v.schema, "personas", doc)
}

// PersonasSchema returns the raw persona file schema.
func PersonasSchema() []byte {
	return append([]byte(nil), personasSchema...)
}
