// Package config provides infrastructure for loading the persona registry.
// This package handles YAML parsing, schema validation, and file I/O.
package config

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	apperrors "github.com/dualfolio/dualfolio/internal/application/errors"
	"github.com/dualfolio/dualfolio/internal/domain/entities"
	domainservices "github.com/dualfolio/dualfolio/internal/domain/services"
	"github.com/dualfolio/dualfolio/internal/infrastructure/validation"
)

//go:embed personas.yaml
var bundledPersonas []byte

// personaFile is the on-disk layout of a persona registry.
type personaFile struct {
	Personas []entities.Persona `yaml:"personas"`
}

// PersonaLoader builds registries from YAML persona files.
// Every failure is a *apperrors.ConfigurationError: the application must not
// start without a usable registry.
type PersonaLoader struct {
	validator *validation.PersonaFileValidator
}

// NewPersonaLoader creates a new persona loader.
func NewPersonaLoader() (*PersonaLoader, error) {
	validator, err := validation.NewPersonaFileValidator()
	if err != nil {
		return nil, apperrors.NewConfigurationError("personas", "persona schema is unusable", err)
	}
	return &PersonaLoader{validator: validator}, nil
}

// LoadBundled builds the registry shipped with the binary.
func (l *PersonaLoader) LoadBundled() (*domainservices.Registry, error) {
	return l.LoadFromReader(bytes.NewReader(bundledPersonas))
}

// Load builds the registry from path. An empty path selects the bundled registry.
func (l *PersonaLoader) Load(path string) (*domainservices.Registry, error) {
	if path == "" {
		return l.LoadBundled()
	}

	// Security: Use os.OpenRoot to prevent path traversal attacks
	root, err := os.OpenRoot(filepath.Dir(path))
	if err != nil {
		return nil, apperrors.NewConfigurationError("personas", "failed to open persona directory", err)
	}
	defer func() {
		_ = root.Close() // Best-effort cleanup
	}()

	file, err := root.Open(filepath.Base(path))
	if err != nil {
		return nil, apperrors.NewConfigurationError("personas", "failed to open persona file", err)
	}
	defer func() {
		_ = file.Close() // Best-effort cleanup
	}()

	return l.LoadFromReader(file)
}

// LoadFromReader builds a registry from YAML read from r.
func (l *PersonaLoader) LoadFromReader(r io.Reader) (*domainservices.Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewConfigurationError("personas", "failed to read persona file", err)
	}

	if err := l.validator.ValidateYAML(data); err != nil {
		return nil, apperrors.NewConfigurationError("personas", "persona file is invalid", err)
	}

	var file personaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apperrors.NewConfigurationError("personas", "failed to decode persona YAML", err)
	}

	registry, err := domainservices.NewRegistry(file.Personas...)
	if err != nil {
		return nil, apperrors.NewConfigurationError("personas", "persona registry is invalid", err)
	}
	return registry, nil
}

// BundledPersonas returns the raw bundled persona file.
func BundledPersonas() []byte {
	return append([]byte(nil), bundledPersonas...)
}
