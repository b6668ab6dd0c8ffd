package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UsageLog is the append-only audit trail: one row per chat attempt,
// success or failure.
type UsageLog struct {
	ID             string         `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt      time.Time      `gorm:"index;precision:3" json:"created_at"`
	UserID         string         `gorm:"index;not null;type:varchar(36)" json:"user_id"`
	Model          string         `gorm:"not null" json:"model"`
	Provider       string         `gorm:"not null" json:"provider"`
	TokensUsed     int            `gorm:"not null" json:"tokens_used"`
	Cost           float64        `gorm:"type:decimal(10,6);not null" json:"cost"`
	ResponseTimeMs int            `json:"response_time_ms"`
	// No column default: GORM omits zero-valued fields that have one on
	// insert, so Success=false must reach the row as an explicit value.
	Success        bool           `gorm:"not null" json:"success"`
	ErrorMessage   string         `gorm:"type:text" json:"error_message,omitempty"`
	RequestParams  datatypes.JSON `gorm:"type:jsonb" json:"request_params,omitempty" swaggertype:"object"`
}

func (UsageLog) TableName() string {
	return "usage_logs"
}

func (l *UsageLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}
