package payment

// Intent is a pending or settled card payment at the processor.
type Intent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
	Status       string
	Metadata     map[string]string
}

// WebhookEvent is a processor callback after signature verification.
type WebhookEvent struct {
	Type        string
	IntentID    string
	AmountCents int64
	Metadata    map[string]string
}

// Driver is the interface that all payment drivers must implement.
type Driver interface {
	// CreateIntent opens a payment for the given amount and returns the
	// client secret the frontend needs to complete it.
	CreateIntent(amountCents int64, currency string, metadata map[string]string) (*Intent, error)

	// RetrieveIntent fetches the current state of a payment.
	RetrieveIntent(id string) (*Intent, error)

	// Refund reverses a settled payment, fully or partially, and returns the
	// processor's refund ID.
	Refund(intentID string, amountCents int64) (string, error)

	// VerifyWebhook checks the callback signature and decodes the event.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
