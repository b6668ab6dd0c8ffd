package models

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionTypeCreditPurchase TransactionType = "credit_purchase"
	TransactionTypeUsageCharge    TransactionType = "usage_charge"
	TransactionTypeRefund         TransactionType = "refund"
)

// BillingHistory is the append-only ledger of credit movements.
type BillingHistory struct {
	ID                    string          `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt             time.Time       `gorm:"index;precision:3" json:"created_at"`
	UserID                string          `gorm:"index;not null;type:varchar(36)" json:"user_id"`
	Amount                float64         `gorm:"type:decimal(10,4);not null" json:"amount"`
	Description           string          `gorm:"not null" json:"description"`
	TransactionType       TransactionType `gorm:"type:varchar(50);index;not null" json:"transaction_type"`
	StripePaymentIntentID string          `gorm:"index" json:"stripe_payment_intent_id,omitempty"`
	StripeRefundID        string          `gorm:"index" json:"stripe_refund_id,omitempty"`
	Hash                  string          `gorm:"type:varchar(64);default:''" json:"-"` // HMAC SHA256
}

func (BillingHistory) TableName() string {
	return "billing_history"
}

func (b *BillingHistory) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// GenerateHash generates a tamper-proof hash for the ledger entry
func (b *BillingHistory) GenerateHash(secret string) string {
	data := fmt.Sprintf("%s|%d|%.4f|%s|%s|%s",
		b.UserID, b.CreatedAt.UnixNano(), b.Amount,
		b.Description, b.TransactionType, b.StripePaymentIntentID)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
