package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dualfolio/dualfolio/internal/application/dto"
	apperrors "github.com/dualfolio/dualfolio/internal/application/errors"
	"github.com/dualfolio/dualfolio/internal/application/ports"
	"github.com/dualfolio/dualfolio/internal/domain/entities"
	"github.com/dualfolio/dualfolio/internal/domain/repositories"
	domainservices "github.com/dualfolio/dualfolio/internal/domain/services"
	"github.com/dualfolio/dualfolio/internal/domain/values"
)

// ContactService orchestrates the contact form use case.
// Checks run in order: rate limit, schema, moderation. A submission turned
// away by the schema or by moderation is refunded to the rate limiter.
// Accepted messages are scrubbed of secrets, then saved before delivery so a
// delivery failure never loses a message.
type ContactService struct {
	limiter    ports.RateLimiter
	validator  ports.ContactValidator
	filter     *domainservices.ContactFilter
	repository repositories.ContactRepository
	delivery   ports.ContactDelivery
	scrubber   ports.ContentScrubber
	clock      ports.Clock
	logger     *slog.Logger
}

// NewContactService creates a contact service.
// A nil filter accepts every message.
func NewContactService(
	limiter ports.RateLimiter,
	validator ports.ContactValidator,
	filter *domainservices.ContactFilter,
	repository repositories.ContactRepository,
	delivery ports.ContactDelivery,
	clock ports.Clock,
	logger *slog.Logger,
) *ContactService {
	if filter == nil {
		filter = domainservices.NewContactFilter()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactService{
		limiter:    limiter,
		validator:  validator,
		filter:     filter,
		repository: repository,
		delivery:   delivery,
		clock:      clock,
		logger:     logger,
	}
}

// WithScrubber redacts secrets from the subject and message of accepted
// submissions before they are saved.
func (s *ContactService) WithScrubber(scrubber ports.ContentScrubber) *ContactService {
	s.scrubber = scrubber
	return s
}

// Submit accepts a contact form submission from clientKey.
func (s *ContactService) Submit(ctx context.Context, clientKey string, req dto.ContactRequest) (*dto.ContactResponse, error) {
	now := s.clock.Now()

	if ok, retryAfter := s.limiter.Allow(clientKey, now); !ok {
		s.logger.Info("contact submission rate limited",
			"client", clientKey,
			"retry_after", retryAfter)
		return nil, apperrors.NewRateLimitError(clientKey, retryAfter)
	}

	if err := s.validator.ValidateContact(req.Document()); err != nil {
		s.limiter.Refund(clientKey, now)
		return nil, err
	}

	persona, err := values.NewPersonaID(req.Persona)
	if err != nil {
		s.limiter.Refund(clientKey, now)
		return nil, apperrors.NewValidationError("persona", err.Error())
	}

	if ok, rule := s.filter.Accept(domainservices.ContactEnv{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
		Persona: persona.String(),
	}); !ok {
		s.logger.Info("contact submission rejected by moderation",
			"client", clientKey,
			"rule", rule)
		s.limiter.Refund(clientKey, now)
		return nil, apperrors.NewModerationError(rule)
	}

	subject, message := req.Subject, req.Message
	if s.scrubber != nil {
		var inSubject, inMessage int
		subject, inSubject = s.scrubber.Scrub(subject)
		message, inMessage = s.scrubber.Scrub(message)
		if n := inSubject + inMessage; n > 0 {
			s.logger.Warn("redacted secrets from contact message",
				"client", clientKey,
				"count", n)
		}
	}

	msg := entities.NewContactMessage(persona, req.Name, req.Email, subject, message, clientKey, now)
	if err := s.repository.Save(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save contact message: %w", err)
	}

	if err := s.delivery.Deliver(ctx, msg); err != nil {
		s.logger.Warn("contact message saved but not delivered",
			"id", msg.ID,
			"error", err)
	}

	s.logger.Info("contact message accepted",
		"id", msg.ID,
		"persona", persona.String())

	return &dto.ContactResponse{
		ID:         msg.ID,
		Persona:    persona.String(),
		ReceivedAt: msg.ReceivedAt,
	}, nil
}
