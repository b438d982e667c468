package entities

import (
	"time"

	"github.com/dualfolio/dualfolio/internal/domain/values"
	"github.com/google/uuid"
)

// ContactMessage is an accepted submission of the contact form.
type ContactMessage struct {
	ReceivedAt time.Time
	Name       string
	Email      string
	Subject    string
	Message    string
	ClientKey  string
	Persona    values.PersonaID
	ID         uuid.UUID
}

// NewContactMessage stamps a new message with an id and receive time.
func NewContactMessage(persona values.PersonaID, name, email, subject, message, clientKey string, receivedAt time.Time) *ContactMessage {
	return &ContactMessage{
		ID:         uuid.New(),
		Persona:    persona,
		Name:       name,
		Email:      email,
		Subject:    subject,
		Message:    message,
		ClientKey:  clientKey,
		ReceivedAt: receivedAt.UTC(),
	}
}
