package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Payment tracks the lifecycle of one external payment intent for a
// registration. It is created alongside a pending paid registration and
// updated only by reconciliation.
type Payment struct {
	ID             string
	RegistrationID string
	IntentID       string
	Amount         decimal.Decimal
	Status         PaymentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
