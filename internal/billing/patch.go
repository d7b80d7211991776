package billing

import (
	"strings"
	"time"

	"recipebox/internal/model"

	"github.com/stripe/stripe-go/v82"
)

// PatchFromSubscription builds the full profile patch for sub. customerID
// overrides the subscription's own customer reference when set. forceCanceled
// pins the status to canceled regardless of the payload's status.
func PatchFromSubscription(sub *stripe.Subscription, customerID string, forceCanceled bool, now time.Time) model.ProfilePatch {
	providerStatus := string(sub.Status)
	if forceCanceled {
		providerStatus = string(stripe.SubscriptionStatusCanceled)
	}
	periodEnd := SubscriptionPeriodEndUnix(sub)

	tier := model.PlanFree
	if HasProAccess(providerStatus, periodEnd, now) {
		tier = model.PlanPro
	}

	if customerID == "" && sub.Customer != nil {
		customerID = sub.Customer.ID
	}

	return model.ProfilePatch{
		PlanTier:               tier,
		SubscriptionStatus:     ToBillingStatus(providerStatus),
		ProExpiresAt:           unixToTime(periodEnd),
		StripeCustomerID:       optionalString(customerID),
		StripeSubscriptionID:   optionalString(sub.ID),
		StripePriceID:          optionalString(firstPriceID(sub)),
		StripeCurrentPeriodEnd: unixToTime(periodEnd),
	}
}

// CheckoutFallbackPatch is applied when a checkout completes before the
// subscription object is attached to the session.
func CheckoutFallbackPatch(customerID string) model.ProfilePatch {
	return model.ProfilePatch{
		PlanTier:           model.PlanPro,
		SubscriptionStatus: model.StatusActive,
		ProExpiresAt:       nil,
		StripeCustomerID:   optionalString(customerID),
	}
}

func firstPriceID(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	item := sub.Items.Data[0]
	if item == nil || item.Price == nil {
		return ""
	}
	return strings.TrimSpace(item.Price.ID)
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
