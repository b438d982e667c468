// Package delivery forwards accepted contact messages to the site owner.
package delivery

import (
	"context"
	"log/slog"

	"github.com/dualfolio/dualfolio/internal/application/ports"
	"github.com/dualfolio/dualfolio/internal/domain/entities"
)

// Ensure interface compliance
var _ ports.ContactDelivery = (*LogDelivery)(nil)

// LogDelivery records contact messages in the log instead of sending mail.
type LogDelivery struct {
	logger *slog.Logger
}

// NewLogDelivery creates a logging delivery.
func NewLogDelivery(logger *slog.Logger) *LogDelivery {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDelivery{logger: logger}
}

// Deliver implements ports.ContactDelivery.
func (d *LogDelivery) Deliver(ctx context.Context, msg *entities.ContactMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.logger.InfoContext(ctx, "contact message delivered",
		"id", msg.ID,
		"persona", msg.Persona.String(),
		"from", msg.Name,
		"email", msg.Email,
		"subject", msg.Subject,
		"length", len(msg.Message))
	return nil
}
