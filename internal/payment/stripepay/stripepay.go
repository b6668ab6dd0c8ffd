package stripepay

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"

	"github.com/sahilhd/unify/internal/payment"
)

// Driver implements payment.Driver against the Stripe API.
type Driver struct {
	client        *client.API
	webhookSecret string
}

func NewDriver(apiKey, webhookSecret string) (*Driver, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("stripe API key is required")
	}
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &Driver{client: sc, webhookSecret: webhookSecret}, nil
}

func (d *Driver) CreateIntent(amountCents int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := d.client.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return intentFromStripe(pi), nil
}

func (d *Driver) RetrieveIntent(id string) (*payment.Intent, error) {
	pi, err := d.client.PaymentIntents.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent: %w", err)
	}
	return intentFromStripe(pi), nil
}

func (d *Driver) Refund(intentID string, amountCents int64) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	if amountCents > 0 {
		params.Amount = stripe.Int64(amountCents)
	}

	r, err := d.client.Refunds.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create refund: %w", err)
	}
	return r.ID, nil
}

func (d *Driver) VerifyWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, d.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	out := &payment.WebhookEvent{Type: string(event.Type)}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err == nil && pi.ID != "" {
		out.IntentID = pi.ID
		out.AmountCents = pi.Amount
		out.Metadata = pi.Metadata
	}
	return out, nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *payment.Intent {
	return &payment.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}
}
