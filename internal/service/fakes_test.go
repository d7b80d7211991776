package service

import (
	"context"
	"strings"
	"time"

	"recipebox/internal/model"
	"recipebox/internal/repository"
	"recipebox/internal/stripeclient"

	"github.com/stripe/stripe-go/v82"
)

type fakeProfileRepo struct {
	profiles   map[string]*model.BillingProfile
	upsertErr  error
	customerFn func(userID, customerID string) error
}

func newFakeProfileRepo(profiles ...*model.BillingProfile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: map[string]*model.BillingProfile{}}
	for _, p := range profiles {
		r.profiles[p.UserID] = p
	}
	return r
}

func (r *fakeProfileRepo) GetProfile(_ context.Context, userID string) (*model.BillingProfile, error) {
	p, ok := r.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) FindUserByCustomerID(_ context.Context, customerID string) (string, error) {
	for id, p := range r.profiles {
		if p.StripeCustomerID != nil && *p.StripeCustomerID == customerID {
			return id, nil
		}
	}
	return "", nil
}

func (r *fakeProfileRepo) FindUserByEmail(_ context.Context, email string) (string, error) {
	for id, p := range r.profiles {
		if strings.EqualFold(p.Email, email) {
			return id, nil
		}
	}
	return "", nil
}

func (r *fakeProfileRepo) UpsertProfileStub(_ context.Context, userID, email string) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	if _, ok := r.profiles[userID]; !ok {
		r.profiles[userID] = &model.BillingProfile{
			UserID:             userID,
			Email:              strings.ToLower(email),
			PlanTier:           model.PlanFree,
			SubscriptionStatus: model.StatusInactive,
		}
	}
	return nil
}

func (r *fakeProfileRepo) UpdateProfile(_ context.Context, userID string, patch model.ProfilePatch) error {
	p, ok := r.profiles[userID]
	if !ok {
		return nil
	}
	p.PlanTier, p.SubscriptionStatus, p.ProExpiresAt = patch.PlanTier, patch.SubscriptionStatus, patch.ProExpiresAt
	if patch.StripeCustomerID != nil {
		p.StripeCustomerID = patch.StripeCustomerID
	}
	if patch.StripeSubscriptionID != nil {
		p.StripeSubscriptionID = patch.StripeSubscriptionID
	}
	return nil
}

func (r *fakeProfileRepo) UpdateProfileReduced(ctx context.Context, userID string, patch model.ProfilePatch) error {
	return r.UpdateProfile(ctx, userID, patch.Reduced())
}

func (r *fakeProfileRepo) UpdateProfileDetails(_ context.Context, userID string, details model.ProfileDetails) (*model.BillingProfile, error) {
	p, ok := r.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if details.DisplayName != nil {
		p.DisplayName = *details.DisplayName
	}
	if details.Bio != nil {
		p.Bio = *details.Bio
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) SetStripeCustomerID(_ context.Context, userID, customerID string) error {
	if r.customerFn != nil {
		if err := r.customerFn(userID, customerID); err != nil {
			return err
		}
	}
	p, ok := r.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	p.StripeCustomerID = &customerID
	return nil
}

func (r *fakeProfileRepo) ListLinkedProfiles(context.Context, int, int) ([]model.BillingProfile, error) {
	return nil, nil
}

type fakeGateway struct {
	customers []string
	checkouts []stripeclient.CheckoutInput
	portals   []string
	err       error
}

func (g *fakeGateway) CreateCustomer(_ context.Context, userID, email, _ string) (*stripe.Customer, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.customers = append(g.customers, userID+"|"+email)
	return &stripe.Customer{ID: "cus_new"}, nil
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, in stripeclient.CheckoutInput) (*stripe.CheckoutSession, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.checkouts = append(g.checkouts, in)
	return &stripe.CheckoutSession{URL: "https://checkout.stripe.test/" + in.PriceID}, nil
}

func (g *fakeGateway) CreatePortalSession(_ context.Context, customerID, _ string) (*stripe.BillingPortalSession, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.portals = append(g.portals, customerID)
	return &stripe.BillingPortalSession{URL: "https://portal.stripe.test/" + customerID}, nil
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
