package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipebox/internal/billing"
	"recipebox/internal/model"
	"recipebox/internal/repository"
	"recipebox/internal/stripeclient"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
)

var (
	ErrNoStripeCustomer = errors.New("no stripe customer for user")
	ErrInvalidPlan      = errors.New("invalid plan")
)

const (
	PlanMonthly = "monthly"
	PlanAnnual  = "annual"
)

// StripeGateway is the part of the Stripe client used to start checkouts and
// portal sessions.
type StripeGateway interface {
	CreateCustomer(ctx context.Context, userID, email, name string) (*stripe.Customer, error)
	CreateCheckoutSession(ctx context.Context, in stripeclient.CheckoutInput) (*stripe.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)
}

// BillingStatus is the caller's billing state with access re-derived at read time.
type BillingStatus struct {
	PlanTier           model.PlanTier
	SubscriptionStatus model.SubscriptionStatus
	ProExpiresAt       *time.Time
	HasProAccess       bool
	HasStripeCustomer  bool
}

type BillingService interface {
	CreateCheckoutSession(ctx context.Context, userID, email, plan string) (string, error)
	CreatePortalSession(ctx context.Context, userID string) (string, error)
	GetStatus(ctx context.Context, userID, email string) (*BillingStatus, error)
}

// BillingConfig carries price ids and return URLs.
type BillingConfig struct {
	PriceMonthly      string
	PriceAnnual       string
	CheckoutReturnURL string
	PortalReturnURL   string
}

type billingService struct {
	cfg     BillingConfig
	repo    repository.ProfileRepository
	gateway StripeGateway
	logger  zerolog.Logger
	now     func() time.Time
}

// NewBillingService returns a BillingService. A nil gateway disables checkout
// and portal sessions with billing.ErrNotConfigured.
func NewBillingService(cfg BillingConfig, repo repository.ProfileRepository, gateway StripeGateway, logger zerolog.Logger) BillingService {
	return &billingService{
		cfg:     cfg,
		repo:    repo,
		gateway: gateway,
		logger:  logger.With().Str("service", "BillingService").Logger(),
		now:     time.Now,
	}
}

func (s *billingService) priceFor(plan string) (string, error) {
	var price string
	switch plan {
	case PlanMonthly:
		price = s.cfg.PriceMonthly
	case PlanAnnual:
		price = s.cfg.PriceAnnual
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPlan, plan)
	}
	if price == "" {
		return "", fmt.Errorf("%w: no price configured for plan %s", billing.ErrNotConfigured, plan)
	}
	return price, nil
}

func (s *billingService) CreateCheckoutSession(ctx context.Context, userID, email, plan string) (string, error) {
	priceID, err := s.priceFor(plan)
	if err != nil {
		return "", err
	}
	if s.gateway == nil {
		return "", billing.ErrNotConfigured
	}

	profile, err := s.ensureProfile(ctx, userID, email)
	if err != nil {
		return "", err
	}
	customerID, err := s.ensureCustomer(ctx, profile, email)
	if err != nil {
		return "", err
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, stripeclient.CheckoutInput{
		UserID:     userID,
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: s.cfg.CheckoutReturnURL + "?status=success",
		CancelURL:  s.cfg.CheckoutReturnURL + "?status=cancel",
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("plan", plan).Msg("Failed to create Stripe checkout session")
		return "", err
	}
	return sess.URL, nil
}

// ensureCustomer returns the stored Stripe customer id, creating and storing
// one on first checkout.
func (s *billingService) ensureCustomer(ctx context.Context, profile *model.BillingProfile, email string) (string, error) {
	if profile.StripeCustomerID != nil && *profile.StripeCustomerID != "" {
		return *profile.StripeCustomerID, nil
	}
	if profile.Email != "" {
		email = profile.Email
	}
	cust, err := s.gateway.CreateCustomer(ctx, profile.UserID, email, profile.DisplayName)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", profile.UserID).Msg("Failed to create Stripe customer")
		return "", err
	}
	if err := s.repo.SetStripeCustomerID(ctx, profile.UserID, cust.ID); err != nil {
		s.logger.Error().Err(err).Str("user_id", profile.UserID).Msg("Failed to store stripe customer id in user_profiles")
		return "", err
	}
	s.logger.Info().Str("user_id", profile.UserID).Str("stripe_customer_id", cust.ID).Msg("Stripe customer created")
	return cust.ID, nil
}

func (s *billingService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	if s.gateway == nil {
		return "", billing.ErrNotConfigured
	}
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}
	if profile == nil || profile.StripeCustomerID == nil || *profile.StripeCustomerID == "" {
		return "", ErrNoStripeCustomer
	}
	sess, err := s.gateway.CreatePortalSession(ctx, *profile.StripeCustomerID, s.cfg.PortalReturnURL)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create Stripe billing portal session")
		return "", err
	}
	return sess.URL, nil
}

func (s *billingService) GetStatus(ctx context.Context, userID, email string) (*BillingStatus, error) {
	profile, err := s.ensureProfile(ctx, userID, email)
	if err != nil {
		return nil, err
	}
	return &BillingStatus{
		PlanTier:           profile.PlanTier,
		SubscriptionStatus: profile.SubscriptionStatus,
		ProExpiresAt:       profile.ProExpiresAt,
		HasProAccess:       billing.ProfileHasProAccess(profile, s.now()),
		HasStripeCustomer:  profile.StripeCustomerID != nil && *profile.StripeCustomerID != "",
	}, nil
}

func (s *billingService) ensureProfile(ctx context.Context, userID, email string) (*model.BillingProfile, error) {
	if err := s.repo.UpsertProfileStub(ctx, userID, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, err
	}
	return s.repo.GetProfile(ctx, userID)
}
