package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                 string    `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Email              string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash       string    `gorm:"not null" json:"-"`
	APIKey             string    `gorm:"uniqueIndex;not null" json:"api_key"`
	Credits            float64   `gorm:"type:decimal(10,4);not null;default:0" json:"credits"`
	RateLimitPerMinute int       `gorm:"not null;default:60" json:"rate_limit_per_minute"`
	DailyQuota         int       `gorm:"not null;default:10000" json:"daily_quota"`
	IsActive           bool      `gorm:"not null;default:true" json:"is_active"`
	IsAdmin            bool      `gorm:"not null;default:false" json:"is_admin"`
	EmailVerified      bool      `gorm:"not null;default:false" json:"email_verified"`
	Version            int       `gorm:"default:1" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}
