package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dualfolio/dualfolio/internal/application/dto"
	apperrors "github.com/dualfolio/dualfolio/internal/application/errors"
	"github.com/dualfolio/dualfolio/internal/domain/entities"
	domainservices "github.com/dualfolio/dualfolio/internal/domain/services"
	"github.com/dualfolio/dualfolio/internal/infrastructure/persistence/memory"
	"github.com/dualfolio/dualfolio/internal/infrastructure/ratelimit"
	"github.com/dualfolio/dualfolio/internal/infrastructure/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	err  error
	docs []map[string]interface{}
}

func (v *stubValidator) ValidateContact(doc map[string]interface{}) error {
	v.docs = append(v.docs, doc)
	return v.err
}

type recordingDelivery struct {
	err       error
	delivered []*entities.ContactMessage
}

func (d *recordingDelivery) Deliver(_ context.Context, msg *entities.ContactMessage) error {
	d.delivered = append(d.delivered, msg)
	return d.err
}

type contactFixture struct {
	service   *ContactService
	validator *stubValidator
	delivery  *recordingDelivery
	repo      *memory.ContactRepository
	clock     *scheduler.Manual
}

func newContactFixture(t *testing.T, rules ...string) *contactFixture {
	t.Helper()

	compiled := make([]domainservices.ModerationRule, 0, len(rules))
	for i, src := range rules {
		rule, err := domainservices.CompileModerationRule("rule-"+string(rune('a'+i)), src)
		require.NoError(t, err)
		compiled = append(compiled, rule)
	}

	f := &contactFixture{
		validator: &stubValidator{},
		delivery:  &recordingDelivery{},
		repo:      memory.NewContactRepository(),
		clock:     scheduler.NewManual(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
	}
	f.service = NewContactService(
		ratelimit.NewSlidingWindow(3, time.Minute),
		f.validator,
		domainservices.NewContactFilter(compiled...),
		f.repo,
		f.delivery,
		f.clock,
		slog.New(slog.DiscardHandler),
	)
	return f
}

func validRequest() dto.ContactRequest {
	return dto.ContactRequest{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Subject: "Hello there",
		Message: "I enjoyed reading your portfolio.",
		Persona: "francisco",
	}
}

func TestContactService_Submit(t *testing.T) {
	f := newContactFixture(t)
	ctx := context.Background()

	resp, err := f.service.Submit(ctx, "10.0.0.1", validRequest())
	require.NoError(t, err)

	assert.Equal(t, "francisco", resp.Persona)
	assert.Equal(t, f.clock.Now(), resp.ReceivedAt)
	assert.NotEmpty(t, resp.ID)

	stored, err := f.repo.FindByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", stored.Name)
	assert.Equal(t, "10.0.0.1", stored.ClientKey)

	require.Len(t, f.delivery.delivered, 1)
	assert.Equal(t, resp.ID, f.delivery.delivered[0].ID)

	require.Len(t, f.validator.docs, 1)
	assert.Equal(t, "ada@example.com", f.validator.docs[0]["email"])
}

func TestContactService_RateLimit(t *testing.T) {
	f := newContactFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.service.Submit(ctx, "10.0.0.1", validRequest())
		require.NoError(t, err)
		f.clock.Advance(10 * time.Second)
	}

	_, err := f.service.Submit(ctx, "10.0.0.1", validRequest())
	var rateErr *apperrors.RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 30*time.Second, rateErr.RetryAfter)
	assert.Len(t, f.validator.docs, 3, "rate limit is checked before validation")

	_, err = f.service.Submit(ctx, "10.0.0.2", validRequest())
	assert.NoError(t, err, "limits are per client")

	f.clock.Advance(30 * time.Second)
	_, err = f.service.Submit(ctx, "10.0.0.1", validRequest())
	assert.NoError(t, err)
}

func TestContactService_RejectedSubmissionsDoNotCount(t *testing.T) {
	f := newContactFixture(t, `message contains "casino"`)
	ctx := context.Background()

	f.validator.err = apperrors.NewValidationError("contact", "does not match schema", "/email: is not valid email")
	for i := 0; i < 3; i++ {
		_, err := f.service.Submit(ctx, "10.0.0.9", validRequest())
		var valErr *apperrors.ValidationError
		require.ErrorAs(t, err, &valErr)
	}
	f.validator.err = nil

	spam := validRequest()
	spam.Message = "Visit my casino for free spins."
	_, err := f.service.Submit(ctx, "10.0.0.9", spam)
	var modErr *apperrors.ModerationError
	require.ErrorAs(t, err, &modErr)

	blank := validRequest()
	blank.Persona = "   "
	_, err = f.service.Submit(ctx, "10.0.0.9", blank)
	require.Error(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.service.Submit(ctx, "10.0.0.9", validRequest())
		require.NoError(t, err, "accepted submission %d", i)
	}

	_, err = f.service.Submit(ctx, "10.0.0.9", validRequest())
	var rateErr *apperrors.RateLimitError
	assert.ErrorAs(t, err, &rateErr, "accepted submissions still use up the window")
}

func TestContactService_ValidationFailure(t *testing.T) {
	f := newContactFixture(t)
	f.validator.err = apperrors.NewValidationError("contact", "does not match schema", "/email: is not valid email")

	_, err := f.service.Submit(context.Background(), "10.0.0.1", validRequest())

	var valErr *apperrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, []string{"/email: is not valid email"}, valErr.Details)
	assert.Empty(t, f.delivery.delivered)
}

func TestContactService_Moderation(t *testing.T) {
	f := newContactFixture(t,
		`message contains "casino"`,
		`email endsWith "@spam.test"`,
	)
	ctx := context.Background()

	req := validRequest()
	req.Email = "bot@spam.test"
	_, err := f.service.Submit(ctx, "10.0.0.1", req)

	var modErr *apperrors.ModerationError
	require.ErrorAs(t, err, &modErr)
	assert.Equal(t, "rule-b", modErr.Rule)

	msgs, err := f.repo.FindByPersona(ctx, "francisco", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = f.service.Submit(ctx, "10.0.0.1", validRequest())
	assert.NoError(t, err)
}

func TestContactService_DeliveryFailureKeepsMessage(t *testing.T) {
	f := newContactFixture(t)
	f.delivery.err = errors.New("smtp unavailable")

	resp, err := f.service.Submit(context.Background(), "10.0.0.1", validRequest())
	require.NoError(t, err)

	_, err = f.repo.FindByID(context.Background(), resp.ID)
	assert.NoError(t, err)
}

func TestContactService_InvalidPersonaID(t *testing.T) {
	f := newContactFixture(t)
	req := validRequest()
	req.Persona = "   "

	_, err := f.service.Submit(context.Background(), "10.0.0.1", req)

	var valErr *apperrors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "persona", valErr.Field)
}

type replacingScrubber struct {
	secret string
}

func (s replacingScrubber) Scrub(input string) (string, int) {
	n := strings.Count(input, s.secret)
	return strings.ReplaceAll(input, s.secret, "[REDACTED]"), n
}

func TestContactService_ScrubsSecretsBeforeSaving(t *testing.T) {
	f := newContactFixture(t, `message contains "hunter2"`)
	f.service.WithScrubber(replacingScrubber{secret: "tok_123"})

	req := validRequest()
	req.Subject = "Key tok_123"
	req.Message = "My token is tok_123, please rotate tok_123."

	resp, err := f.service.Submit(context.Background(), "10.0.0.1", req)
	require.NoError(t, err)

	stored, err := f.repo.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Key [REDACTED]", stored.Subject)
	assert.Equal(t, "My token is [REDACTED], please rotate [REDACTED].", stored.Message)

	require.Len(t, f.delivery.delivered, 1)
	assert.NotContains(t, f.delivery.delivered[0].Message, "tok_123")

	// Moderation sees the original text
	req.Message = "the password is hunter2 ok"
	_, err = f.service.Submit(context.Background(), "10.0.0.2", req)
	var modErr *apperrors.ModerationError
	assert.ErrorAs(t, err, &modErr)
}
