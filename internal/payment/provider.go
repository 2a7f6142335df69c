// Package payment defines the external payment provider boundary: intent
// creation and retrieval, refunds, and signed webhook notifications.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusSucceeded IntentStatus = "succeeded"
	IntentStatusFailed    IntentStatus = "failed"
	IntentStatusCancelled IntentStatus = "cancelled"
)

// Intent is the provider-side payment intent for one registration.
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
}

// Provider is the black-box payment gateway the core consumes. Calls are
// expected to respect ctx deadlines and fail rather than hang.
type Provider interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (Intent, error)
	RetrieveIntent(ctx context.Context, id string) (Intent, error)
	Refund(ctx context.Context, intentID string, amount decimal.Decimal) error
}
