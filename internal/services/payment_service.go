package services

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/sahilhd/unify/config"
	"github.com/sahilhd/unify/internal/database"
	"github.com/sahilhd/unify/internal/models"
	"github.com/sahilhd/unify/internal/payment"
	"github.com/sahilhd/unify/internal/payment/stripepay"
)

var ErrUnknownCreditPackage = errors.New("unknown credit package")
var ErrPaymentNotSucceeded = errors.New("payment has not succeeded")
var ErrPaymentAlreadyApplied = errors.New("payment has already been applied")

// CreditPackage is a purchasable bundle of credits.
type CreditPackage struct {
	Credits   int   `json:"credits"`
	PriceUSD  int64 `json:"price_usd"`
	PriceCent int64 `json:"price_cents"`
}

var creditPackages = map[int]int64{
	100:  10,
	500:  45,
	1000: 80,
	2000: 150,
	5000: 350,
}

// ListCreditPackages returns the purchasable bundles, smallest first.
func ListCreditPackages() []CreditPackage {
	out := make([]CreditPackage, 0, len(creditPackages))
	for credits, usd := range creditPackages {
		out = append(out, CreditPackage{Credits: credits, PriceUSD: usd, PriceCent: usd * 100})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Credits < out[j].Credits })
	return out
}

// paymentDriver is swapped in tests to avoid real processor calls.
var paymentDriver payment.Driver

func getPaymentDriver(cfg *config.Config) (payment.Driver, error) {
	if paymentDriver != nil {
		return paymentDriver, nil
	}
	driver, err := stripepay.NewDriver(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	if err != nil {
		return nil, err
	}
	paymentDriver = driver
	return driver, nil
}

// CreatePaymentIntent opens a card payment for a credit package and returns
// the client secret the frontend completes it with.
func CreatePaymentIntent(userID string, credits int, cfg *config.Config) (*payment.Intent, error) {
	usd, ok := creditPackages[credits]
	if !ok {
		return nil, fmt.Errorf("%w: %d credits", ErrUnknownCreditPackage, credits)
	}

	driver, err := getPaymentDriver(cfg)
	if err != nil {
		return nil, err
	}

	return driver.CreateIntent(usd*100, "usd", map[string]string{
		"user_id": userID,
		"credits": fmt.Sprintf("%d", credits),
	})
}

// applyPaidCredits grants the credits for a settled payment exactly once,
// keyed by the payment intent id.
func applyPaidCredits(userID string, credits int, intentID string) (*models.BillingHistory, error) {
	var existing models.BillingHistory
	err := database.DB.Where("stripe_payment_intent_id = ?", intentID).First(&existing).Error
	if err == nil {
		return nil, ErrPaymentAlreadyApplied
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	description := fmt.Sprintf("Purchased %d credits", credits)
	return AddCredits(userID, float64(credits), description, models.TransactionTypeCreditPurchase, intentID, "")
}

// ConfirmPayment verifies an intent settled at the processor and credits the
// account. Safe to call more than once for the same intent.
func ConfirmPayment(userID, intentID string, cfg *config.Config) (*models.BillingHistory, error) {
	driver, err := getPaymentDriver(cfg)
	if err != nil {
		return nil, err
	}

	intent, err := driver.RetrieveIntent(intentID)
	if err != nil {
		return nil, err
	}
	if intent.Status != "succeeded" {
		return nil, ErrPaymentNotSucceeded
	}

	credits, err := creditsFromMetadata(intent.Metadata)
	if err != nil {
		return nil, err
	}
	if owner := intent.Metadata["user_id"]; owner != "" && owner != userID {
		return nil, errors.New("payment intent belongs to another account")
	}

	return applyPaidCredits(userID, credits, intentID)
}

// HandlePaymentWebhook processes a signature-verified processor callback.
// Only payment_intent.succeeded events move credits.
func HandlePaymentWebhook(payload []byte, signature string, cfg *config.Config) error {
	driver, err := getPaymentDriver(cfg)
	if err != nil {
		return err
	}

	event, err := driver.VerifyWebhook(payload, signature)
	if err != nil {
		return err
	}
	if event.Type != "payment_intent.succeeded" {
		return nil
	}

	credits, err := creditsFromMetadata(event.Metadata)
	if err != nil {
		return err
	}
	userID := event.Metadata["user_id"]
	if userID == "" {
		return errors.New("payment intent has no user_id metadata")
	}

	_, err = applyPaidCredits(userID, credits, event.IntentID)
	if errors.Is(err, ErrPaymentAlreadyApplied) {
		// Webhook retries and confirm-payment can race; first writer wins.
		return nil
	}
	return err
}

// RefundPayment reverses a credit purchase: processor refund, credit
// clawback and a negative ledger row.
func RefundPayment(intentID string, cfg *config.Config) (*models.BillingHistory, error) {
	var purchase models.BillingHistory
	err := database.DB.
		Where("stripe_payment_intent_id = ? AND transaction_type = ?", intentID, models.TransactionTypeCreditPurchase).
		First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("no purchase found for payment intent")
		}
		return nil, err
	}

	var refunded models.BillingHistory
	err = database.DB.
		Where("stripe_payment_intent_id = ? AND transaction_type = ?", intentID, models.TransactionTypeRefund).
		First(&refunded).Error
	if err == nil {
		return nil, ErrPaymentAlreadyApplied
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	driver, err := getPaymentDriver(cfg)
	if err != nil {
		return nil, err
	}

	refundID, err := driver.Refund(intentID, 0)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Refund of %s", purchase.Description)
	return AddCredits(purchase.UserID, -purchase.Amount, description, models.TransactionTypeRefund, intentID, refundID)
}

func creditsFromMetadata(metadata map[string]string) (int, error) {
	raw := metadata["credits"]
	if raw == "" {
		return 0, errors.New("payment intent has no credits metadata")
	}
	var credits int
	if _, err := fmt.Sscanf(raw, "%d", &credits); err != nil {
		return 0, fmt.Errorf("invalid credits metadata: %q", raw)
	}
	if _, ok := creditPackages[credits]; !ok {
		return 0, fmt.Errorf("%w: %d credits", ErrUnknownCreditPackage, credits)
	}
	return credits, nil
}
