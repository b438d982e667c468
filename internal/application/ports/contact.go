package ports

import (
	"context"
	"time"

	"github.com/dualfolio/dualfolio/internal/domain/entities"
)

// ContactDelivery forwards accepted contact messages to the site owner.
type ContactDelivery interface {
	Deliver(ctx context.Context, msg *entities.ContactMessage) error
}

// RateLimiter decides whether a client may submit another request.
type RateLimiter interface {
	// Allow records an attempt at now. When the attempt is refused it returns
	// false and how long the client has to wait.
	Allow(clientKey string, now time.Time) (bool, time.Duration)

	// Refund forgets the attempt Allow accepted for clientKey at at, so a
	// submission that was turned away does not use up the window.
	Refund(clientKey string, at time.Time)
}

// ContactValidator checks a contact form document against its schema.
// Failures are reported as *apperrors.ValidationError.
type ContactValidator interface {
	ValidateContact(doc map[string]interface{}) error
}

// ContentScrubber removes credentials from free text. It returns the
// scrubbed text and how many secrets were replaced.
type ContentScrubber interface {
	Scrub(input string) (string, int)
}
