package handler

import (
	"errors"
	"io"
	"net/http"

	"recipebox/internal/api/v1/dto"
	"recipebox/internal/billing"
	"recipebox/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxWebhookBodyBytes = 1 << 20

// WebhookHandler receives Stripe webhook deliveries. It is authenticated by
// the Stripe-Signature header, not by a bearer token.
type WebhookHandler struct {
	webhookSvc service.WebhookService
	logger     zerolog.Logger
}

func NewWebhookHandler(webhookSvc service.WebhookService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc, logger: logger}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/billing/webhook", h.Stripe)
}

// Stripe godoc
// @Summary Stripe webhook receiver
// @Tags billing
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} dto.WebhookResponse
// @Failure 400 {string} string "signature verification failed"
// @Failure 500 {string} string "failed to process event"
// @Failure 503 {string} string "webhook secret not configured"
// @Router /billing/webhook [post]
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}

	status, err := h.webhookSvc.Process(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrNotConfigured):
			http.Error(w, "webhook secret not configured", http.StatusServiceUnavailable)
		case errors.Is(err, billing.ErrMissingSignature):
			http.Error(w, "missing signature", http.StatusBadRequest)
		case errors.Is(err, billing.ErrInvalidSignature):
			h.logger.Warn().Err(err).Msg("Signature verification failed for Stripe webhook")
			http.Error(w, "signature verification failed", http.StatusBadRequest)
		default:
			http.Error(w, "failed to process event", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.WebhookResponse{Received: true, Status: string(status)})
}
