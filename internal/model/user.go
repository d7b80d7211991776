package model

import "time"

// PlanTier is derived from the subscription state; clients never set it.
type PlanTier string

const (
	PlanFree PlanTier = "free"
	PlanPro  PlanTier = "pro"
)

// SubscriptionStatus is the local view of a Stripe subscription status.
type SubscriptionStatus string

const (
	StatusInactive SubscriptionStatus = "inactive"
	StatusTrial    SubscriptionStatus = "trial"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

// BillingProfile is a row of user_profiles, one per application user.
type BillingProfile struct {
	UserID                 string             `db:"user_id" json:"user_id"`
	Email                  string             `db:"email" json:"email"`
	DisplayName            string             `db:"display_name" json:"display_name"`
	Bio                    string             `db:"bio" json:"bio"`
	PlanTier               PlanTier           `db:"plan_tier" json:"plan_tier"`
	SubscriptionStatus     SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	ProExpiresAt           *time.Time         `db:"pro_expires_at" json:"pro_expires_at,omitempty"`
	StripeCustomerID       *string            `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID   *string            `db:"stripe_subscription_id" json:"stripe_subscription_id,omitempty"`
	StripePriceID          *string            `db:"stripe_price_id" json:"stripe_price_id,omitempty"`
	StripeCurrentPeriodEnd *time.Time         `db:"stripe_current_period_end" json:"stripe_current_period_end,omitempty"`
	CreatedAt              time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time          `db:"updated_at" json:"updated_at"`
}

// ProfilePatch is the billing update computed from a Stripe event.
//
// PlanTier, SubscriptionStatus and ProExpiresAt are always written; a nil
// ProExpiresAt stores NULL. The Stripe correlation fields are only written
// when non-nil.
type ProfilePatch struct {
	PlanTier               PlanTier
	SubscriptionStatus     SubscriptionStatus
	ProExpiresAt           *time.Time
	StripeCustomerID       *string
	StripeSubscriptionID   *string
	StripePriceID          *string
	StripeCurrentPeriodEnd *time.Time
}

// Reduced keeps only the columns present in every schema revision.
func (p ProfilePatch) Reduced() ProfilePatch {
	return ProfilePatch{
		PlanTier:           p.PlanTier,
		SubscriptionStatus: p.SubscriptionStatus,
		ProExpiresAt:       p.ProExpiresAt,
	}
}

// ProfileDetails holds the user-editable profile fields.
type ProfileDetails struct {
	DisplayName *string
	Bio         *string
}
