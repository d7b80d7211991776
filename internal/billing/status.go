package billing

import (
	"time"

	"recipebox/internal/model"

	"github.com/stripe/stripe-go/v82"
)

// ToBillingStatus maps a Stripe subscription status onto the local status set.
// Unknown values map to inactive.
func ToBillingStatus(providerStatus string) model.SubscriptionStatus {
	switch stripe.SubscriptionStatus(providerStatus) {
	case stripe.SubscriptionStatusTrialing:
		return model.StatusTrial
	case stripe.SubscriptionStatusActive:
		return model.StatusActive
	case stripe.SubscriptionStatusPastDue:
		return model.StatusPastDue
	case stripe.SubscriptionStatusCanceled,
		stripe.SubscriptionStatusUnpaid,
		stripe.SubscriptionStatusIncomplete,
		stripe.SubscriptionStatusIncompleteExpired,
		stripe.SubscriptionStatusPaused:
		return model.StatusCanceled
	default:
		return model.StatusInactive
	}
}

// HasProAccess reports whether a subscription in providerStatus entitles the
// user to the pro tier at now. A canceled subscription keeps access until its
// already-paid period ends.
func HasProAccess(providerStatus string, periodEnd *int64, now time.Time) bool {
	switch stripe.SubscriptionStatus(providerStatus) {
	case stripe.SubscriptionStatusActive,
		stripe.SubscriptionStatusTrialing,
		stripe.SubscriptionStatusPastDue:
		return true
	case stripe.SubscriptionStatusCanceled:
		return periodEnd != nil && *periodEnd > now.Unix()
	default:
		return false
	}
}

// SubscriptionPeriodEndUnix returns when access lapses for sub, trying the
// first item's current period end, then cancel_at, then trial_end. Nil when
// none of them is set.
func SubscriptionPeriodEndUnix(sub *stripe.Subscription) *int64 {
	if sub == nil {
		return nil
	}
	candidates := make([]int64, 0, 3)
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0] != nil {
		candidates = append(candidates, sub.Items.Data[0].CurrentPeriodEnd)
	}
	candidates = append(candidates, sub.CancelAt, sub.TrialEnd)
	for _, v := range candidates {
		if v > 0 {
			end := v
			return &end
		}
	}
	return nil
}

// storedHasProAccess re-derives access from what a profile row holds.
func storedHasProAccess(status model.SubscriptionStatus, expiresAt *time.Time, now time.Time) bool {
	switch status {
	case model.StatusActive, model.StatusTrial, model.StatusPastDue:
		return true
	case model.StatusCanceled:
		return expiresAt != nil && expiresAt.After(now)
	default:
		return false
	}
}

// ProfileHasProAccess evaluates the access predicate for a stored profile.
func ProfileHasProAccess(p *model.BillingProfile, now time.Time) bool {
	if p == nil {
		return false
	}
	return storedHasProAccess(p.SubscriptionStatus, p.ProExpiresAt, now)
}

func unixToTime(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}
