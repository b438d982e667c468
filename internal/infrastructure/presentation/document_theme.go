// Package presentation holds the per-session presentation collaborators of
// the switch controller: the document theme marker and the live region.
package presentation

import (
	"sync"

	"github.com/dualfolio/dualfolio/internal/application/ports"
	"github.com/dualfolio/dualfolio/internal/domain/values"
)

// Ensure interface compliance
var _ ports.ThemeMarker = (*DocumentTheme)(nil)

// DocumentTheme is the document-level dark marker of one session.
type DocumentTheme struct {
	mu   sync.RWMutex
	dark bool
}

// NewDocumentTheme creates a marker in the light state.
func NewDocumentTheme() *DocumentTheme {
	return &DocumentTheme{}
}

// SetDark implements ports.ThemeMarker.
func (d *DocumentTheme) SetDark(dark bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dark = dark
}

// IsDark reports whether the dark marker is present.
func (d *DocumentTheme) IsDark() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dark
}

// Theme returns the marker as a theme value.
func (d *DocumentTheme) Theme() values.Theme {
	return values.ThemeFor(d.IsDark())
}
