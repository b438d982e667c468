package dto

import (
	"time"

	"github.com/dualfolio/dualfolio/internal/domain/entities"
	"github.com/dualfolio/dualfolio/internal/domain/values"
	"github.com/google/uuid"
)

// ContactResponse acknowledges an accepted contact message.
type ContactResponse struct {
	ReceivedAt time.Time `json:"receivedAt"`
	Persona    string    `json:"persona"`
	ID         uuid.UUID `json:"id"`
}

// SessionView is the visitor-facing snapshot of a session.
type SessionView struct {
	Persona         entities.Persona `json:"persona"`
	Theme           values.Theme     `json:"theme"`
	Announcement    string           `json:"announcement,omitempty"`
	IsSwitchOn      bool             `json:"isSwitchOn"`
	IsLoaded        bool             `json:"isLoaded"`
	IsTransitioning bool             `json:"isTransitioning"`
}

// ThemePalette is the colour pair for the active theme.
type ThemePalette struct {
	Theme      values.Theme `json:"theme"`
	Foreground string       `json:"foreground"`
	Background string       `json:"background"`
	Contrast   float64      `json:"contrast"`
}
