// Package validation checks documents against JSON Schemas.
package validation

import (
	"bytes"
	"errors"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	apperrors "github.com/dualfolio/dualfolio/internal/application/errors"
)

// compileSchema compiles a single Draft 2020-12 schema document.
// Formats such as "email" are asserted, not just annotated.
func compileSchema(name string, schema []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	if err := compiler.AddResource(name, bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource %s: %w", name, err)
	}

	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	return compiled, nil
}

// validate runs schema against doc and converts failures into a
// *apperrors.ValidationError whose details list every violated location.
func validate(schema *jsonschema.Schema, field string, doc interface{}) error {
	err := schema.Validate(doc)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return apperrors.NewValidationError(field, err.Error())
	}
	return apperrors.NewValidationError(field, "does not match schema", schemaViolations(validationErr)...)
}

// schemaViolations flattens a JSON Schema validation error into readable lines.
func schemaViolations(err *jsonschema.ValidationError) []string {
	var messages []string

	var collect func(*jsonschema.ValidationError)
	collect = func(e *jsonschema.ValidationError) {
		// Leaf errors carry the useful messages; wrappers only repeat
		// "doesn't validate with ..."
		if len(e.Causes) == 0 && e.Message != "" {
			location := e.InstanceLocation
			if location == "" {
				location = "(root)"
			}
			messages = append(messages, fmt.Sprintf("%s: %s", location, e.Message))
		}

		for _, cause := range e.Causes {
			collect(cause)
		}
	}

	collect(err)

	if len(messages) == 0 {
		messages = append(messages, err.Error())
	}
	return messages
}
