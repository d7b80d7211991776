package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	// ErrNotConfigured is returned when a required Stripe secret is missing.
	ErrNotConfigured = errors.New("stripe is not configured")
	// ErrMissingSignature is returned when the Stripe-Signature header is empty.
	ErrMissingSignature = errors.New("missing stripe signature")
	// ErrInvalidSignature is returned when the payload fails verification.
	ErrInvalidSignature = errors.New("invalid stripe signature")
)

const (
	EventCheckoutCompleted   = stripe.EventTypeCheckoutSessionCompleted
	EventSubscriptionCreated = stripe.EventTypeCustomerSubscriptionCreated
	EventSubscriptionUpdated = stripe.EventTypeCustomerSubscriptionUpdated
	EventSubscriptionDeleted = stripe.EventTypeCustomerSubscriptionDeleted
)

// Event is one of CheckoutCompleted, SubscriptionChanged or SubscriptionDeleted.
type Event interface {
	EventID() string
	EventType() stripe.EventType
	isEvent()
}

type CheckoutCompleted struct {
	ID      string
	Session *stripe.CheckoutSession
}

type SubscriptionChanged struct {
	ID           string
	Type         stripe.EventType // created or updated
	Subscription *stripe.Subscription
}

type SubscriptionDeleted struct {
	ID           string
	Subscription *stripe.Subscription
}

func (e CheckoutCompleted) EventID() string { return e.ID }
func (e CheckoutCompleted) EventType() stripe.EventType { return EventCheckoutCompleted }
func (CheckoutCompleted) isEvent() {}
func (e SubscriptionChanged) EventID() string { return e.ID }
func (e SubscriptionChanged) EventType() stripe.EventType { return e.Type }
func (SubscriptionChanged) isEvent() {}
func (e SubscriptionDeleted) EventID() string { return e.ID }
func (e SubscriptionDeleted) EventType() stripe.EventType { return EventSubscriptionDeleted }
func (SubscriptionDeleted) isEvent() {}

// VerifyEvent authenticates payload against the Stripe-Signature header.
func VerifyEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	if strings.TrimSpace(secret) == "" {
		return stripe.Event{}, ErrNotConfigured
	}
	if strings.TrimSpace(sigHeader) == "" {
		return stripe.Event{}, ErrMissingSignature
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

// DecodeEvent turns a verified Stripe event into one of the handled kinds.
// It returns a nil Event for types the reconciler does not handle.
func DecodeEvent(evt stripe.Event) (Event, error) {
	if evt.Data == nil {
		return nil, fmt.Errorf("event %s has no data", evt.ID)
	}
	switch evt.Type {
	case EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("decode checkout.session: %w", err)
		}
		return CheckoutCompleted{ID: evt.ID, Session: &cs}, nil
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		return SubscriptionChanged{ID: evt.ID, Type: evt.Type, Subscription: &sub}, nil
	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		return SubscriptionDeleted{ID: evt.ID, Subscription: &sub}, nil
	default:
		return nil, nil
	}
}
