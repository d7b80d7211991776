package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"recipebox/internal/config"
	"recipebox/internal/model"

	"github.com/rs/zerolog"
)

// BillingProfileUpdated is published after a webhook or re-sync changed a
// user's billing profile.
type BillingProfileUpdated struct {
	UserID             string                   `json:"user_id"`
	PlanTier           model.PlanTier           `json:"plan_tier"`
	SubscriptionStatus model.SubscriptionStatus `json:"subscription_status"`
	ProExpiresAt       *time.Time               `json:"pro_expires_at"`
	Source             string                   `json:"source"`
	SourceID           string                   `json:"source_id,omitempty"`
	OccurredAt         time.Time                `json:"occurred_at"`
}

// BillingNotifier publishes billing changes. A notifier without a topic does
// nothing, and publish failures are only logged.
type BillingNotifier struct {
	pub    Publisher
	topic  string
	logger zerolog.Logger
}

func NewBillingNotifier(pub Publisher, topic string, logger zerolog.Logger) *BillingNotifier {
	return &BillingNotifier{
		pub:    pub,
		topic:  topic,
		logger: logger.With().Str("service", "BillingNotifier").Logger(),
	}
}

func (n *BillingNotifier) ProfileUpdated(ctx context.Context, userID, source, sourceID string, patch model.ProfilePatch) {
	if n == nil || n.pub == nil || n.topic == "" {
		return
	}
	msg := BillingProfileUpdated{
		UserID:             userID,
		PlanTier:           patch.PlanTier,
		SubscriptionStatus: patch.SubscriptionStatus,
		ProExpiresAt:       patch.ProExpiresAt,
		Source:             source,
		SourceID:           sourceID,
		OccurredAt:         time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to encode billing notification")
		return
	}
	id, err := n.pub.Publish(ctx, n.topic, payload, map[string]string{
		"type":    "billing.profile_updated",
		"user_id": userID,
	})
	if err != nil {
		n.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to publish billing notification")
		return
	}
	n.logger.Debug().Str("message_id", id).Str("user_id", userID).Msg("Billing notification published")
}

// NewNotifierFromConfig returns the billing change notifier. Without a topic it is a
// no-op notifier that holds no client.
func NewNotifierFromConfig(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*BillingNotifier, func(), error) {
	if cfg.PubSubBillingTopic == "" {
		return NewBillingNotifier(nil, "", logger), func() {}, nil
	}
	pub, err := NewPublisher(ctx, cfg.GCPProjectID)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Str("topic", cfg.PubSubBillingTopic).Msg("Billing change notifications enabled")
	return NewBillingNotifier(pub, cfg.PubSubBillingTopic, logger), func() { _ = pub.Close() }, nil
}
