package config

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/dualfolio/dualfolio/internal/application/errors"
)

// FuzzPersonaLoading fuzzes persona file parsing for panics and malformed input
// TARGETS: LoadFromReader() via schema validation, yaml.Unmarshal and NewRegistry
// EXPECTED: either a non-empty registry or a *apperrors.ConfigurationError
func FuzzPersonaLoading(f *testing.F) {
	seeds := []string{
		// Bundled registry
		string(BundledPersonas()),

		// Minimal single persona
		`personas:
  - id: solo
    name: Solo
    bio: Only one`,

		// Duplicate ids
		`personas:
  - id: twin
    name: A
    bio: First
  - id: twin
    name: B
    bio: Second`,

		// Empty list
		"personas: []",

		// Wrong types
		"personas:\n  - id: 42\n    name: [a, b]",

		// Deeply nested
		strings.Repeat("nested:\n  ", 1000) + "value: 1",

		// Many entries
		"personas:\n" + strings.Repeat("  - id: p\n    name: P\n    bio: B\n", 5000),

		// Invalid UTF-8
		"personas:\n  - id: \xff\xfe\n    name: x",

		// Anchors and aliases
		`personas:
  - &p
    id: a
    name: A
    bio: B
  - *p`,

		// Null bytes
		"personas:\n  - id: a\x00b\n    name: A",

		// Empty and whitespace
		"",
		"   \n\t  \n",

		// Malformed YAML
		"personas:\n  - id: a\n   name: bad indent",

		// Very long values
		"personas:\n  - id: a\n    name: " + strings.Repeat("x", 100000),

		// Unicode edge cases
		"personas:\n  - id: a\n    name: \U0001F600\u200B\uFEFF\n    bio: b",
	}

	for _, seed := range seeds {
		f.Add([]byte(seed))
	}

	loader, err := NewPersonaLoader()
	if err != nil {
		f.Fatalf("NewPersonaLoader: %v", err)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("PANIC on input (len=%d): %v", len(data), r)
			}
		}()

		registry, err := loader.LoadFromReader(bytes.NewReader(data))
		if err != nil {
			var cfgErr *apperrors.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("error is %T, want *apperrors.ConfigurationError: %v", err, err)
			}
			if registry != nil {
				t.Error("registry returned together with an error")
			}
			return
		}

		if registry == nil || registry.Len() == 0 {
			t.Error("successful load returned an empty registry")
		}
	})
}
