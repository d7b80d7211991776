package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"recipebox/internal/api/v1/dto"
	"recipebox/internal/billing"
	"recipebox/internal/middleware"
	"recipebox/internal/model"
	"recipebox/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth authenticates every request that carries an X-Test-User header.
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get("X-Test-User")
		if user == "" {
			http.Error(w, "Authorization header missing", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), middleware.UserContextKey, user)
		ctx = context.WithValue(ctx, middleware.EmailContextKey, user+"@example.com")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type fakeBillingService struct {
	plan       string
	checkout   error
	portal     error
	status     *service.BillingStatus
	statusUser string
}

func (f *fakeBillingService) CreateCheckoutSession(_ context.Context, _, _, plan string) (string, error) {
	f.plan = plan
	if f.checkout != nil {
		return "", f.checkout
	}
	return "https://checkout.test/" + plan, nil
}

func (f *fakeBillingService) CreatePortalSession(context.Context, string) (string, error) {
	if f.portal != nil {
		return "", f.portal
	}
	return "https://portal.test", nil
}

func (f *fakeBillingService) GetStatus(_ context.Context, userID, _ string) (*service.BillingStatus, error) {
	f.statusUser = userID
	return f.status, nil
}

type fakeWebhookService struct {
	status service.WebhookStatus
	err    error
	sig    string
}

func (f *fakeWebhookService) Process(_ context.Context, _ []byte, sig string) (service.WebhookStatus, error) {
	f.sig = sig
	return f.status, f.err
}

type fakeUserService struct {
	profile *model.BillingProfile
	err     error
}

func (f *fakeUserService) Get(context.Context, string, string) (*model.BillingProfile, error) {
	return f.profile, f.err
}

func (f *fakeUserService) UpdateDetails(_ context.Context, _, _ string, d model.ProfileDetails) (*model.BillingProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if d.DisplayName != nil {
		f.profile.DisplayName = *d.DisplayName
	}
	return f.profile, nil
}

func newTestRouter(b service.BillingService, wh service.WebhookService, u service.UserService) http.Handler {
	r := chi.NewRouter()
	v := validator.New(validator.WithRequiredStructEnabled())
	NewBillingHandler(b, v, zerolog.Nop()).RegisterRoutes(r, fakeAuth)
	NewWebhookHandler(wh, zerolog.Nop()).RegisterRoutes(r)
	NewUserHandler(u, v, zerolog.Nop()).RegisterRoutes(r, fakeAuth)
	return r
}

func do(h http.Handler, method, path, user, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCheckout(t *testing.T) {
	svc := &fakeBillingService{}
	h := newTestRouter(svc, &fakeWebhookService{}, &fakeUserService{})

	rec := do(h, http.MethodPost, "/billing/checkout", "", `{"plan":"monthly"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodPost, "/billing/checkout", "user-1", `{"plan":"weekly"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/billing/checkout", "user-1", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/billing/checkout", "user-1", `{"plan":"annual"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.SessionURLResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "https://checkout.test/annual", resp.URL)

	svc.checkout = billing.ErrNotConfigured
	rec = do(h, http.MethodPost, "/billing/checkout", "user-1", `{"plan":"annual"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	svc.checkout = errors.New("stripe down")
	rec = do(h, http.MethodPost, "/billing/checkout", "user-1", `{"plan":"annual"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPortalAndStatus(t *testing.T) {
	svc := &fakeBillingService{status: &service.BillingStatus{
		PlanTier:           model.PlanPro,
		SubscriptionStatus: model.StatusCanceled,
		HasProAccess:       true,
	}}
	h := newTestRouter(svc, &fakeWebhookService{}, &fakeUserService{})

	rec := do(h, http.MethodPost, "/billing/portal", "user-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.portal = service.ErrNoStripeCustomer
	rec = do(h, http.MethodPost, "/billing/portal", "user-1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(h, http.MethodGet, "/billing/status", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st dto.BillingStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, "pro", st.PlanTier)
	assert.Equal(t, "canceled", st.SubscriptionStatus)
	assert.True(t, st.HasProAccess)
	assert.Equal(t, "user-1", svc.statusUser)
}

func TestStripeWebhook(t *testing.T) {
	tests := []struct {
		name     string
		status   service.WebhookStatus
		err      error
		wantCode int
		wantBody string
	}{
		{"processed", service.WebhookProcessed, nil, http.StatusOK, "processed"},
		{"ignored", service.WebhookIgnored, nil, http.StatusOK, "ignored"},
		{"duplicate", service.WebhookDuplicate, nil, http.StatusOK, "duplicate"},
		{"not configured", "", billing.ErrNotConfigured, http.StatusServiceUnavailable, ""},
		{"missing signature", "", billing.ErrMissingSignature, http.StatusBadRequest, ""},
		{"bad signature", "", billing.ErrInvalidSignature, http.StatusBadRequest, ""},
		{"patch failed", "", billing.ErrPatchFailed, http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wh := &fakeWebhookService{status: tt.status, err: tt.err}
			h := newTestRouter(&fakeBillingService{}, wh, &fakeUserService{})

			rec := do(h, http.MethodPost, "/billing/webhook", "", `{}`, "Stripe-Signature", "t=1,v1=abc")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "t=1,v1=abc", wh.sig)
			if tt.wantBody != "" {
				var resp dto.WebhookResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.True(t, resp.Received)
				assert.Equal(t, tt.wantBody, resp.Status)
			}
		})
	}
}

func TestUserRoutes(t *testing.T) {
	us := &fakeUserService{profile: &model.BillingProfile{UserID: "user-1", PlanTier: model.PlanFree}}
	h := newTestRouter(&fakeBillingService{}, &fakeWebhookService{}, us)

	rec := do(h, http.MethodGet, "/users/me", "user-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var u dto.UserResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&u))
	assert.Equal(t, "user-1", u.UserID)
	assert.Equal(t, "free", u.PlanTier)

	rec = do(h, http.MethodPatch, "/users/me", "user-1", `{"display_name":"Nonna"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"display_name":"Nonna"`)

	rec = do(h, http.MethodPatch, "/users/me", "user-1", `{"bio":"`+strings.Repeat("a", 501)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	us.err = &service.FlaggedContentError{Fields: map[string][]string{"bio": {"casino"}}}
	rec = do(h, http.MethodPatch, "/users/me", "user-1", `{"bio":"casino"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var mod dto.ModerationErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&mod))
	assert.Equal(t, []string{"casino"}, mod.Fields["bio"])

	rec = do(h, http.MethodGet, "/users/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
