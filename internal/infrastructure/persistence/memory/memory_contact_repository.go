// Package memory provides in-memory implementations of domain repositories.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dualfolio/dualfolio/internal/domain/entities"
	"github.com/dualfolio/dualfolio/internal/domain/repositories"
	"github.com/google/uuid"
)

// Ensure interface compliance
var _ repositories.ContactRepository = (*ContactRepository)(nil)

// ContactRepository is an in-memory implementation of ContactRepository.
// Useful for testing and ephemeral storage.
type ContactRepository struct {
	messages map[uuid.UUID]*entities.ContactMessage
	mu       sync.RWMutex
}

// NewContactRepository creates a new in-memory repository.
func NewContactRepository() *ContactRepository {
	return &ContactRepository{
		messages: make(map[uuid.UUID]*entities.ContactMessage),
	}
}

// Save persists a contact message.
func (r *ContactRepository) Save(_ context.Context, msg *entities.ContactMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *msg
	r.messages[msg.ID] = &stored
	return nil
}

// FindByID retrieves a contact message by its unique ID.
func (r *ContactRepository) FindByID(_ context.Context, id uuid.UUID) (*entities.ContactMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, ok := r.messages[id]
	if !ok {
		return nil, fmt.Errorf("contact message not found: %s", id)
	}
	out := *msg
	return &out, nil
}

// FindByPersona retrieves recent messages addressed to a persona.
func (r *ContactRepository) FindByPersona(_ context.Context, persona string, limit int) ([]*entities.ContactMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*entities.ContactMessage
	for _, msg := range r.messages {
		if msg.Persona.String() == persona {
			out := *msg
			matches = append(matches, &out)
		}
	}

	sortNewestFirst(matches)

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

// FindBetween retrieves messages received within [start, end].
func (r *ContactRepository) FindBetween(_ context.Context, start, end time.Time) ([]*entities.ContactMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*entities.ContactMessage
	for _, msg := range r.messages {
		if !msg.ReceivedAt.Before(start) && !msg.ReceivedAt.After(end) {
			out := *msg
			matches = append(matches, &out)
		}
	}

	sortNewestFirst(matches)

	return matches, nil
}

func sortNewestFirst(msgs []*entities.ContactMessage) {
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].ReceivedAt.After(msgs[j].ReceivedAt)
	})
}
