package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipebox/internal/model"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
)

// ErrPatchFailed is returned when neither the full nor the reduced profile
// update could be written.
var ErrPatchFailed = errors.New("billing profile update failed")

// ProfileStore is the subset of the profile repository the reconciler needs.
// Lookups return "" with a nil error when no user matches.
type ProfileStore interface {
	FindUserByCustomerID(ctx context.Context, customerID string) (string, error)
	FindUserByEmail(ctx context.Context, email string) (string, error)
	UpsertProfileStub(ctx context.Context, userID, email string) error
	UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) error
	UpdateProfileReduced(ctx context.Context, userID string, patch model.ProfilePatch) error
}

// StripeAPI retrieves objects that events only reference by id.
type StripeAPI interface {
	RetrieveSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	RetrieveCustomer(ctx context.Context, id string) (*stripe.Customer, error)
}

type Outcome string

const (
	OutcomeApplied Outcome = "processed"
	OutcomeIgnored Outcome = "ignored"
)

// Result describes what Handle did with an event.
type Result struct {
	Outcome    Outcome
	UserID     string
	ResolvedBy string
	Patch      model.ProfilePatch
}

// Reconciler maps Stripe lifecycle events onto user billing profiles.
type Reconciler struct {
	store  ProfileStore
	stripe StripeAPI
	logger zerolog.Logger
	now    func() time.Time
}

// NewReconciler returns a Reconciler. api may be nil, in which case checkout
// sessions that reference a subscription fail with ErrNotConfigured.
func NewReconciler(store ProfileStore, api StripeAPI, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		stripe: api,
		logger: logger.With().Str("service", "BillingReconciler").Logger(),
		now:    time.Now,
	}
}

// Handle resolves the user an event belongs to and applies the matching
// patch. Events with no resolvable user are ignored without error.
func (r *Reconciler) Handle(ctx context.Context, evt Event) (Result, error) {
	switch e := evt.(type) {
	case CheckoutCompleted:
		return r.handleCheckoutCompleted(ctx, e)
	case SubscriptionChanged:
		return r.handleSubscription(ctx, e.ID, e.Type, e.Subscription, false)
	case SubscriptionDeleted:
		return r.handleSubscription(ctx, e.ID, EventSubscriptionDeleted, e.Subscription, true)
	default:
		return Result{Outcome: OutcomeIgnored}, nil
	}
}

func (r *Reconciler) handleCheckoutCompleted(ctx context.Context, e CheckoutCompleted) (Result, error) {
	cs := e.Session
	if cs == nil {
		return Result{Outcome: OutcomeIgnored}, nil
	}
	customerID := ""
	if cs.Customer != nil {
		customerID = strings.TrimSpace(cs.Customer.ID)
	}
	email := checkoutEmail(cs)

	userID, resolvedBy := ResolveUser(ctx, r.logger,
		Static("client_reference_id", cs.ClientReferenceID),
		Static("metadata", cs.Metadata["user_id"]),
		r.byCustomerID(customerID),
		r.byEmail(email),
	)
	if userID == "" {
		r.logger.Warn().
			Str("event_id", e.ID).
			Str("session_id", cs.ID).
			Str("stripe_customer_id", customerID).
			Msg("checkout.session.completed: no user linked to session; ignoring")
		return Result{Outcome: OutcomeIgnored}, nil
	}

	var patch model.ProfilePatch
	if cs.Subscription != nil && strings.TrimSpace(cs.Subscription.ID) != "" {
		if r.stripe == nil {
			return Result{}, fmt.Errorf("%w: cannot retrieve subscription %s without an API key", ErrNotConfigured, cs.Subscription.ID)
		}
		sub, err := r.stripe.RetrieveSubscription(ctx, cs.Subscription.ID)
		if err != nil {
			return Result{}, fmt.Errorf("retrieve subscription %s: %w", cs.Subscription.ID, err)
		}
		patch = PatchFromSubscription(sub, customerID, false, r.now())
	} else {
		patch = CheckoutFallbackPatch(customerID)
	}

	if err := r.Apply(ctx, userID, email, patch); err != nil {
		return Result{}, err
	}
	r.logApplied(e.ID, EventCheckoutCompleted, userID, resolvedBy, patch)
	return Result{Outcome: OutcomeApplied, UserID: userID, ResolvedBy: resolvedBy, Patch: patch}, nil
}

func (r *Reconciler) handleSubscription(ctx context.Context, eventID string, eventType stripe.EventType, sub *stripe.Subscription, forceCanceled bool) (Result, error) {
	if sub == nil {
		return Result{Outcome: OutcomeIgnored}, nil
	}
	customerID := ""
	if sub.Customer != nil {
		customerID = strings.TrimSpace(sub.Customer.ID)
	}
	email := r.customerEmail(ctx, sub.Customer)

	userID, resolvedBy := ResolveUser(ctx, r.logger,
		Static("metadata", sub.Metadata["user_id"]),
		r.byCustomerID(customerID),
		r.byEmail(email),
	)
	if userID == "" {
		r.logger.Warn().
			Str("event_id", eventID).
			Str("event_type", string(eventType)).
			Str("subscription_id", sub.ID).
			Str("stripe_customer_id", customerID).
			Msg("No user linked to subscription; ignoring")
		return Result{Outcome: OutcomeIgnored}, nil
	}

	patch := PatchFromSubscription(sub, customerID, forceCanceled, r.now())
	if err := r.Apply(ctx, userID, email, patch); err != nil {
		return Result{}, err
	}
	r.logApplied(eventID, eventType, userID, resolvedBy, patch)
	return Result{Outcome: OutcomeApplied, UserID: userID, ResolvedBy: resolvedBy, Patch: patch}, nil
}

// Apply writes patch to the user's profile. The row is created first because
// an update of a missing row silently matches nothing. When the full update
// fails, typically on a schema without the Stripe columns, only the core
// billing columns are written.
func (r *Reconciler) Apply(ctx context.Context, userID, email string, patch model.ProfilePatch) error {
	if err := r.store.UpsertProfileStub(ctx, userID, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return fmt.Errorf("%w: ensure profile row for user %s: %v", ErrPatchFailed, userID, err)
	}

	err := r.store.UpdateProfile(ctx, userID, patch)
	if err == nil {
		return nil
	}
	r.logger.Warn().Err(err).Str("user_id", userID).Msg("Full billing update failed; retrying with core columns only")

	if reducedErr := r.store.UpdateProfileReduced(ctx, userID, patch.Reduced()); reducedErr != nil {
		r.logger.Error().Err(reducedErr).Str("user_id", userID).Msg("Reduced billing update failed")
		return fmt.Errorf("%w for user %s: %w", ErrPatchFailed, userID, errors.Join(err, reducedErr))
	}
	return nil
}

func (r *Reconciler) byCustomerID(customerID string) IdentityLookup {
	return IdentityLookup{
		Name: "stripe_customer_id",
		Lookup: func(ctx context.Context) (string, error) {
			if customerID == "" {
				return "", nil
			}
			return r.store.FindUserByCustomerID(ctx, customerID)
		},
	}
}

func (r *Reconciler) byEmail(email string) IdentityLookup {
	return IdentityLookup{
		Name: "email",
		Lookup: func(ctx context.Context) (string, error) {
			email := strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				return "", nil
			}
			return r.store.FindUserByEmail(ctx, email)
		},
	}
}

// customerEmail returns the customer's email, fetching the customer when the
// event only carries its id. Failures yield "".
func (r *Reconciler) customerEmail(ctx context.Context, cust *stripe.Customer) string {
	if cust == nil || strings.TrimSpace(cust.ID) == "" {
		return ""
	}
	if cust.Email != "" || r.stripe == nil {
		return cust.Email
	}
	full, err := r.stripe.RetrieveCustomer(ctx, cust.ID)
	if err != nil {
		r.logger.Warn().Err(err).Str("stripe_customer_id", cust.ID).Msg("Failed to fetch Stripe customer email")
		return ""
	}
	if full == nil || full.Deleted {
		return ""
	}
	return full.Email
}

func (r *Reconciler) logApplied(eventID string, eventType stripe.EventType, userID, resolvedBy string, patch model.ProfilePatch) {
	r.logger.Info().
		Str("event_id", eventID).
		Str("event_type", string(eventType)).
		Str("user_id", userID).
		Str("resolved_by", resolvedBy).
		Str("plan_tier", string(patch.PlanTier)).
		Str("subscription_status", string(patch.SubscriptionStatus)).
		Msg("Billing profile updated")
}

func checkoutEmail(cs *stripe.CheckoutSession) string {
	if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
		return cs.CustomerDetails.Email
	}
	if cs.CustomerEmail != "" {
		return cs.CustomerEmail
	}
	if cs.Customer != nil {
		return cs.Customer.Email
	}
	return ""
}
