package user

import (
	"time"

	"github.com/sahilhd/unify/internal/models"
)

// UserResponse is the account snapshot returned by auth and profile routes.
type UserResponse struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	APIKey             string    `json:"api_key,omitempty"`
	Credits            float64   `json:"credits"`
	RateLimitPerMinute int       `json:"rate_limit_per_minute"`
	DailyQuota         int       `json:"daily_quota"`
	IsActive           bool      `json:"is_active"`
	IsAdmin            bool      `json:"is_admin"`
	CreatedAt          time.Time `json:"created_at"`
	Token              string    `json:"token,omitempty"`
}

func FromModel(u *models.User) UserResponse {
	return UserResponse{
		ID:                 u.ID,
		Email:              u.Email,
		APIKey:             u.APIKey,
		Credits:            u.Credits,
		RateLimitPerMinute: u.RateLimitPerMinute,
		DailyQuota:         u.DailyQuota,
		IsActive:           u.IsActive,
		IsAdmin:            u.IsAdmin,
		CreatedAt:          u.CreatedAt,
	}
}
