package dto

import "time"

// CheckoutRequest is the body of POST /billing/checkout.
type CheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=monthly annual"`
}

type SessionURLResponse struct {
	URL string `json:"url"`
}

type BillingStatusResponse struct {
	PlanTier           string     `json:"plan_tier"`
	SubscriptionStatus string     `json:"subscription_status"`
	ProExpiresAt       *time.Time `json:"pro_expires_at"`
	HasProAccess       bool       `json:"has_pro_access"`
	HasStripeCustomer  bool       `json:"has_stripe_customer"`
}

// WebhookResponse acknowledges a Stripe delivery.
type WebhookResponse struct {
	Received bool   `json:"received"`
	Status   string `json:"status"`
}
