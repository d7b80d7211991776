package service

import (
	"context"
	"errors"
	"fmt"

	"recipebox/internal/billing"
	"recipebox/internal/dedupe"
	"recipebox/internal/model"
	"recipebox/internal/repository"

	"github.com/rs/zerolog"
)

// WebhookStatus is reported back to Stripe in the response body.
type WebhookStatus string

const (
	WebhookProcessed WebhookStatus = WebhookStatus(billing.OutcomeApplied)
	WebhookIgnored   WebhookStatus = WebhookStatus(billing.OutcomeIgnored)
	WebhookDuplicate WebhookStatus = "duplicate"
)

// EventHandler applies a decoded billing event.
type EventHandler interface {
	Handle(ctx context.Context, evt billing.Event) (billing.Result, error)
}

// ChangeNotifier is told about every profile the webhook changed.
type ChangeNotifier interface {
	ProfileUpdated(ctx context.Context, userID, source, sourceID string, patch model.ProfilePatch)
}

type WebhookService interface {
	Process(ctx context.Context, payload []byte, signature string) (WebhookStatus, error)
}

type webhookService struct {
	secret      string
	handler     EventHandler
	deduper     dedupe.Deduper
	deadLetters repository.DeadLetterRepository
	notifier    ChangeNotifier
	logger      zerolog.Logger
}

// NewWebhookService wires the Stripe webhook pipeline. deduper, deadLetters
// and notifier may be nil.
func NewWebhookService(secret string, handler EventHandler, deduper dedupe.Deduper, deadLetters repository.DeadLetterRepository, notifier ChangeNotifier, logger zerolog.Logger) WebhookService {
	if deduper == nil {
		deduper = dedupe.Noop{}
	}
	return &webhookService{
		secret:      secret,
		handler:     handler,
		deduper:     deduper,
		deadLetters: deadLetters,
		notifier:    notifier,
		logger:      logger.With().Str("service", "WebhookService").Logger(),
	}
}

// Process verifies, decodes and applies one webhook delivery. Verification
// errors wrap billing.ErrNotConfigured, billing.ErrMissingSignature or
// billing.ErrInvalidSignature.
func (s *webhookService) Process(ctx context.Context, payload []byte, signature string) (WebhookStatus, error) {
	raw, err := billing.VerifyEvent(payload, signature, s.secret)
	if err != nil {
		return "", err
	}
	log := s.logger.With().Str("event_id", raw.ID).Str("event_type", string(raw.Type)).Logger()
	log.Info().Msg("Stripe webhook received")

	evt, err := billing.DecodeEvent(raw)
	if err != nil {
		// A redelivery would fail the same way, so the event is parked and acknowledged.
		log.Error().Err(err).Msg("Failed to decode Stripe event; recorded as dead letter")
		s.recordDeadLetter(ctx, raw.ID, string(raw.Type), payload, err, "undecodable")
		return WebhookIgnored, nil
	}
	if evt == nil {
		return WebhookIgnored, nil
	}

	claimed, err := s.deduper.Claim(ctx, raw.ID)
	if err != nil {
		// Processing twice is safe; dropping an event is not.
		log.Warn().Err(err).Msg("Event dedupe unavailable; processing anyway")
		claimed = true
	}
	if !claimed {
		log.Info().Msg("Duplicate Stripe event; skipping")
		return WebhookDuplicate, nil
	}

	res, err := s.handler.Handle(ctx, evt)
	if err != nil {
		log.Error().Err(err).Msg("Failed to apply Stripe event")
		s.recordFailure(ctx, raw.ID, string(raw.Type), payload, err)
		if relErr := s.deduper.Release(ctx, raw.ID); relErr != nil {
			log.Warn().Err(relErr).Msg("Failed to release dedupe key")
		}
		return "", fmt.Errorf("apply event %s: %w", raw.ID, err)
	}

	if res.Outcome == billing.OutcomeApplied && s.notifier != nil {
		s.notifier.ProfileUpdated(ctx, res.UserID, "stripe_webhook", raw.ID, res.Patch)
	}
	return WebhookStatus(res.Outcome), nil
}

func (s *webhookService) recordFailure(ctx context.Context, eventID, eventType string, payload []byte, cause error) {
	status := "unprocessed"
	if !errors.Is(cause, billing.ErrPatchFailed) {
		status = "retryable"
	}
	s.recordDeadLetter(ctx, eventID, eventType, payload, cause, status)
}

func (s *webhookService) recordDeadLetter(ctx context.Context, eventID, eventType string, payload []byte, cause error, status string) {
	if s.deadLetters == nil {
		return
	}
	err := s.deadLetters.Create(ctx, &model.DeadLetterEvent{
		Provider:  "stripe",
		EventID:   eventID,
		EventType: eventType,
		Payload:   string(payload),
		Error:     cause.Error(),
		Status:    status,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", eventID).Msg("Failed to record dead letter")
	}
}
