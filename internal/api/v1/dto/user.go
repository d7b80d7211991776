package dto

import "time"

// UserUpdateDTO is used for PATCH /users/me. Omitted fields are left unchanged.
type UserUpdateDTO struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=1,max=60"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
}

// UserResponseDTO is returned in API responses
type UserResponseDTO struct {
	UserID             string     `json:"user_id"`
	Email              string     `json:"email"`
	DisplayName        string     `json:"display_name"`
	Bio                string     `json:"bio"`
	PlanTier           string     `json:"plan_tier"`
	SubscriptionStatus string     `json:"subscription_status"`
	ProExpiresAt       *time.Time `json:"pro_expires_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type ModerationErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}
