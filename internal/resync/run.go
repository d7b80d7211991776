// Package resync re-derives billing profiles from Stripe for every profile
// linked to a subscription, repairing state left behind by missed webhooks.
package resync

import (
	"context"
	"fmt"
	"time"

	"recipebox/internal/billing"
	"recipebox/internal/model"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
)

type ProfileLister interface {
	ListLinkedProfiles(ctx context.Context, limit, offset int) ([]model.BillingProfile, error)
}

type SubscriptionSource interface {
	RetrieveSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

// PatchApplier writes a patch the same way webhook events do.
type PatchApplier interface {
	Apply(ctx context.Context, userID, email string, patch model.ProfilePatch) error
}

type ChangeNotifier interface {
	ProfileUpdated(ctx context.Context, userID, source, sourceID string, patch model.ProfilePatch)
}

// Stats summarises one pass.
type Stats struct {
	Scanned int
	Changed int
	Failed  int
}

type Syncer struct {
	profiles  ProfileLister
	stripe    SubscriptionSource
	applier   PatchApplier
	notifier  ChangeNotifier
	batchSize int
	logger    zerolog.Logger
	now       func() time.Time
}

func NewSyncer(profiles ProfileLister, stripe SubscriptionSource, applier PatchApplier, notifier ChangeNotifier, batchSize int, logger zerolog.Logger) *Syncer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Syncer{
		profiles:  profiles,
		stripe:    stripe,
		applier:   applier,
		notifier:  notifier,
		batchSize: batchSize,
		logger:    logger.With().Str("service", "BillingResync").Logger(),
		now:       time.Now,
	}
}

// RunOnce walks all linked profiles. Per-profile failures are counted and
// logged; only a failure to list profiles aborts the pass.
func (s *Syncer) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats
	for offset := 0; ; offset += s.batchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		batch, err := s.profiles.ListLinkedProfiles(ctx, s.batchSize, offset)
		if err != nil {
			return stats, fmt.Errorf("list linked profiles at offset %d: %w", offset, err)
		}
		for i := range batch {
			stats.Scanned++
			changed, err := s.syncProfile(ctx, &batch[i])
			if err != nil {
				stats.Failed++
				s.logger.Error().Err(err).Str("user_id", batch[i].UserID).Msg("Failed to re-sync billing profile")
				continue
			}
			if changed {
				stats.Changed++
			}
		}
		if len(batch) < s.batchSize {
			break
		}
	}
	s.logger.Info().
		Int("scanned", stats.Scanned).
		Int("changed", stats.Changed).
		Int("failed", stats.Failed).
		Msg("Billing re-sync pass finished")
	return stats, nil
}

func (s *Syncer) syncProfile(ctx context.Context, p *model.BillingProfile) (bool, error) {
	if p.StripeSubscriptionID == nil || *p.StripeSubscriptionID == "" {
		return false, nil
	}
	sub, err := s.stripe.RetrieveSubscription(ctx, *p.StripeSubscriptionID)
	if err != nil {
		return false, err
	}
	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	} else if p.StripeCustomerID != nil {
		customerID = *p.StripeCustomerID
	}

	patch := billing.PatchFromSubscription(sub, customerID, false, s.now())
	if !differs(p, patch) {
		return false, nil
	}
	if err := s.applier.Apply(ctx, p.UserID, p.Email, patch); err != nil {
		return false, err
	}
	s.logger.Info().
		Str("user_id", p.UserID).
		Str("subscription_id", sub.ID).
		Str("from_status", string(p.SubscriptionStatus)).
		Str("to_status", string(patch.SubscriptionStatus)).
		Msg("Billing profile corrected from Stripe")
	if s.notifier != nil {
		s.notifier.ProfileUpdated(ctx, p.UserID, "resync", sub.ID, patch)
	}
	return true, nil
}

func differs(p *model.BillingProfile, patch model.ProfilePatch) bool {
	if p.PlanTier != patch.PlanTier || p.SubscriptionStatus != patch.SubscriptionStatus {
		return true
	}
	switch {
	case p.ProExpiresAt == nil && patch.ProExpiresAt == nil:
		return false
	case p.ProExpiresAt == nil || patch.ProExpiresAt == nil:
		return true
	default:
		return !p.ProExpiresAt.Equal(*patch.ProExpiresAt)
	}
}

// Run executes RunOnce on the cron schedule until ctx is cancelled. Passes
// never overlap.
func Run(ctx context.Context, logger zerolog.Logger, syncer *Syncer, schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		if _, err := syncer.RunOnce(ctx); err != nil {
			logger.Error().Err(err).Msg("Billing re-sync pass failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid re-sync schedule %q: %w", schedule, err)
	}

	logger.Info().Str("schedule", schedule).Msg("Starting billing re-sync worker")
	c.Start()
	<-ctx.Done()
	logger.Info().Msg("Shutting down billing re-sync worker")
	<-c.Stop().Done()
	return nil
}
