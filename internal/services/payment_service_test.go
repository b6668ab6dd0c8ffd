package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilhd/unify/config"
	"github.com/sahilhd/unify/internal/database"
	"github.com/sahilhd/unify/internal/models"
	"github.com/sahilhd/unify/internal/payment"
)

type fakePaymentDriver struct {
	intents map[string]*payment.Intent
	refunds int
	event   *payment.WebhookEvent
}

func newFakePaymentDriver() *fakePaymentDriver {
	return &fakePaymentDriver{intents: make(map[string]*payment.Intent)}
}

func (f *fakePaymentDriver) CreateIntent(amountCents int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	intent := &payment.Intent{
		ID:           fmt.Sprintf("pi_%d", len(f.intents)+1),
		ClientSecret: "secret",
		AmountCents:  amountCents,
		Currency:     currency,
		Status:       "requires_payment_method",
		Metadata:     metadata,
	}
	f.intents[intent.ID] = intent
	return intent, nil
}

func (f *fakePaymentDriver) RetrieveIntent(id string) (*payment.Intent, error) {
	intent, ok := f.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", id)
	}
	return intent, nil
}

func (f *fakePaymentDriver) Refund(intentID string, amountCents int64) (string, error) {
	f.refunds++
	return fmt.Sprintf("re_%d", f.refunds), nil
}

func (f *fakePaymentDriver) VerifyWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if signature != "valid" {
		return nil, fmt.Errorf("webhook signature verification failed")
	}
	return f.event, nil
}

func withFakeDriver(t *testing.T) *fakePaymentDriver {
	t.Helper()
	fake := newFakePaymentDriver()
	orig := paymentDriver
	paymentDriver = fake
	t.Cleanup(func() { paymentDriver = orig })
	return fake
}

func paymentTestConfig() *config.Config {
	return &config.Config{
		StripeSecretKey:     "sk_test",
		StripeWebhookSecret: "whsec_test",
	}
}

func TestListCreditPackages(t *testing.T) {
	packages := ListCreditPackages()
	require.Len(t, packages, 5)
	assert.Equal(t, 100, packages[0].Credits)
	assert.Equal(t, int64(10), packages[0].PriceUSD)
	assert.Equal(t, 5000, packages[4].Credits)
	assert.Equal(t, int64(350), packages[4].PriceUSD)
}

func TestCreatePaymentIntent(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()
	fake := withFakeDriver(t)

	user := seedUser(t, 0)

	intent, err := CreatePaymentIntent(user.ID, 500, paymentTestConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(4500), intent.AmountCents)
	assert.Equal(t, user.ID, intent.Metadata["user_id"])
	assert.Equal(t, "500", intent.Metadata["credits"])
	assert.Len(t, fake.intents, 1)

	_, err = CreatePaymentIntent(user.ID, 123, paymentTestConfig())
	assert.ErrorIs(t, err, ErrUnknownCreditPackage)
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()
	fake := withFakeDriver(t)

	user := seedUser(t, 0)
	cfg := paymentTestConfig()

	intent, err := CreatePaymentIntent(user.ID, 100, cfg)
	require.NoError(t, err)

	// Not settled yet.
	_, err = ConfirmPayment(user.ID, intent.ID, cfg)
	assert.ErrorIs(t, err, ErrPaymentNotSucceeded)

	fake.intents[intent.ID].Status = "succeeded"

	entry, err := ConfirmPayment(user.ID, intent.ID, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, entry.Amount, 1e-9)

	var updated models.User
	database.DB.Where("id = ?", user.ID).First(&updated)
	assert.InDelta(t, 100.0, updated.Credits, 1e-9)

	// Confirming again must not double-credit.
	_, err = ConfirmPayment(user.ID, intent.ID, cfg)
	assert.ErrorIs(t, err, ErrPaymentAlreadyApplied)

	database.DB.Where("id = ?", user.ID).First(&updated)
	assert.InDelta(t, 100.0, updated.Credits, 1e-9)
}

func TestConfirmPaymentWrongOwner(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()
	fake := withFakeDriver(t)

	user := seedUser(t, 0)
	cfg := paymentTestConfig()

	intent, err := CreatePaymentIntent(user.ID, 100, cfg)
	require.NoError(t, err)
	fake.intents[intent.ID].Status = "succeeded"

	_, err = ConfirmPayment("someone-else", intent.ID, cfg)
	assert.ErrorContains(t, err, "another account")
}

func TestHandlePaymentWebhook(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()
	fake := withFakeDriver(t)

	user := seedUser(t, 0)
	cfg := paymentTestConfig()

	fake.event = &payment.WebhookEvent{
		Type:        "payment_intent.succeeded",
		IntentID:    "pi_hook",
		AmountCents: 1000,
		Metadata:    map[string]string{"user_id": user.ID, "credits": "100"},
	}

	err := HandlePaymentWebhook([]byte(`{}`), "bogus", cfg)
	assert.ErrorContains(t, err, "signature")

	require.NoError(t, HandlePaymentWebhook([]byte(`{}`), "valid", cfg))

	var updated models.User
	database.DB.Where("id = ?", user.ID).First(&updated)
	assert.InDelta(t, 100.0, updated.Credits, 1e-9)

	// Webhook retries are absorbed.
	require.NoError(t, HandlePaymentWebhook([]byte(`{}`), "valid", cfg))
	database.DB.Where("id = ?", user.ID).First(&updated)
	assert.InDelta(t, 100.0, updated.Credits, 1e-9)

	// Unrelated event types are ignored.
	fake.event = &payment.WebhookEvent{Type: "payment_intent.created"}
	require.NoError(t, HandlePaymentWebhook([]byte(`{}`), "valid", cfg))
}

func TestRefundPayment(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()
	fake := withFakeDriver(t)

	user := seedUser(t, 0)
	cfg := paymentTestConfig()

	intent, err := CreatePaymentIntent(user.ID, 100, cfg)
	require.NoError(t, err)
	fake.intents[intent.ID].Status = "succeeded"
	_, err = ConfirmPayment(user.ID, intent.ID, cfg)
	require.NoError(t, err)

	entry, err := RefundPayment(intent.ID, cfg)
	require.NoError(t, err)
	assert.InDelta(t, -100.0, entry.Amount, 1e-9)
	assert.Equal(t, models.TransactionTypeRefund, entry.TransactionType)
	assert.NotEmpty(t, entry.StripeRefundID)

	var updated models.User
	database.DB.Where("id = ?", user.ID).First(&updated)
	assert.InDelta(t, 0.0, updated.Credits, 1e-9)

	// Double refunds are rejected.
	_, err = RefundPayment(intent.ID, cfg)
	assert.ErrorIs(t, err, ErrPaymentAlreadyApplied)

	_, err = RefundPayment("pi_unknown", cfg)
	assert.ErrorContains(t, err, "no purchase found")
}
