// Package repositories defines interfaces for domain persistence.
package repositories

import (
	"context"
	"time"

	"github.com/dualfolio/dualfolio/internal/domain/entities"
	"github.com/google/uuid"
)

// ContactRepository defines the interface for persisting contact messages.
type ContactRepository interface {
	// Save persists a contact message.
	Save(ctx context.Context, msg *entities.ContactMessage) error

	// FindByID retrieves a contact message by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entities.ContactMessage, error)

	// FindByPersona retrieves recent messages addressed to a persona, newest first.
	FindByPersona(ctx context.Context, persona string, limit int) ([]*entities.ContactMessage, error)

	// FindBetween retrieves messages received within a time range, newest first.
	FindBetween(ctx context.Context, start, end time.Time) ([]*entities.ContactMessage, error)
}
