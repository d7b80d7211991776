package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"recipebox/internal/api/v1/dto"
	"recipebox/internal/billing"
	"recipebox/internal/middleware"
	"recipebox/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// BillingHandler handles checkout, portal and billing status endpoints.
type BillingHandler struct {
	billingSvc service.BillingService
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billingSvc service.BillingService, v *validator.Validate, logger zerolog.Logger) *BillingHandler {
	return &BillingHandler{billingSvc: billingSvc, validate: v, logger: logger}
}

// RegisterRoutes registers the authenticated billing endpoints.
func (h *BillingHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/billing/checkout", h.Checkout)
		r.Post("/billing/portal", h.Portal)
		r.Get("/billing/status", h.Status)
	})
}

// Checkout godoc
// @Summary Start a Stripe Checkout session for the Pro plan
// @Description Creates the Stripe customer on first use and returns the Checkout URL.
// @Tags billing
// @Accept json
// @Produce json
// @Param checkout body dto.CheckoutRequest true "Plan to subscribe to"
// @Success 200 {object} dto.SessionURLResponse
// @Failure 400 {string} string "invalid request payload"
// @Failure 401 {string} string "unauthorized"
// @Failure 503 {string} string "billing is not configured"
// @Failure 500 {string} string "failed to create checkout session"
// @Router /billing/checkout [post]
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req dto.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	url, err := h.billingSvc.CreateCheckoutSession(r.Context(), userID, middleware.Email(r.Context()), req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPlan):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, billing.ErrNotConfigured):
			http.Error(w, "billing is not configured", http.StatusServiceUnavailable)
		default:
			h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to create checkout session")
			http.Error(w, "failed to create checkout session", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.SessionURLResponse{URL: url})
}

// Portal godoc
// @Summary Create a Stripe Customer Portal session
// @Description Generates a Stripe Customer Portal session URL for the authenticated user.
// @Tags billing
// @Produce json
// @Success 200 {object} dto.SessionURLResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 409 {string} string "no billing account"
// @Failure 500 {string} string "failed to create portal session"
// @Router /billing/portal [post]
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	url, err := h.billingSvc.CreatePortalSession(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoStripeCustomer):
			http.Error(w, "no billing account", http.StatusConflict)
		case errors.Is(err, billing.ErrNotConfigured):
			http.Error(w, "billing is not configured", http.StatusServiceUnavailable)
		default:
			h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to create portal session")
			http.Error(w, "failed to create portal session", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.SessionURLResponse{URL: url})
}

// Status godoc
// @Summary Get the caller's billing status
// @Tags billing
// @Produce json
// @Success 200 {object} dto.BillingStatusResponse
// @Failure 401 {string} string "unauthorized"
// @Router /billing/status [get]
func (h *BillingHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	st, err := h.billingSvc.GetStatus(r.Context(), userID, middleware.Email(r.Context()))
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load billing status")
		http.Error(w, "failed to load billing status", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.BillingStatusResponse{
		PlanTier:           string(st.PlanTier),
		SubscriptionStatus: string(st.SubscriptionStatus),
		ProExpiresAt:       st.ProExpiresAt,
		HasProAccess:       st.HasProAccess,
		HasStripeCustomer:  st.HasStripeCustomer,
	})
}

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("failed to encode response")
	}
}
