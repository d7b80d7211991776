package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"recipebox/internal/api/v1/dto"
	"recipebox/internal/middleware"
	"recipebox/internal/model"
	"recipebox/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type UserHandler struct {
	userService service.UserService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewUserHandler(userService service.UserService, v *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{userService: userService, validate: v, logger: logger}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMw func(http.Handler) http.Handler) {
	r.With(authMw).Get("/users/me", h.getUser)
	r.With(authMw).Patch("/users/me", h.updateUser)
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.Get(r.Context(), userID, middleware.Email(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load user")
			http.Error(w, "failed to load user", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toUserResponse(user))
}

func (h *UserHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	// 1. Extract UserID from context
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	// 2. Decode and validate
	var req dto.UserUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	// 3. Update
	user, err := h.userService.UpdateDetails(r.Context(), userID, middleware.Email(r.Context()), model.ProfileDetails{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	})
	if err != nil {
		var flagged *service.FlaggedContentError
		switch {
		case errors.As(err, &flagged):
			writeJSON(w, h.logger, http.StatusUnprocessableEntity, dto.ModerationErrorResponse{
				Error:  "content not allowed",
				Fields: flagged.Fields,
			})
		case errors.Is(err, service.ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to update user")
			http.Error(w, "failed to update user", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, h.logger, http.StatusOK, toUserResponse(user))
}

func toUserResponse(u *model.BillingProfile) dto.UserResponseDTO {
	return dto.UserResponseDTO{
		UserID:             u.UserID,
		Email:              u.Email,
		DisplayName:        u.DisplayName,
		Bio:                u.Bio,
		PlanTier:           string(u.PlanTier),
		SubscriptionStatus: string(u.SubscriptionStatus),
		ProExpiresAt:       u.ProExpiresAt,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
