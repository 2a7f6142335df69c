package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RegistrationStatus string

const (
	RegistrationStatusConfirmed RegistrationStatus = "confirmed"
	RegistrationStatusWaitlist  RegistrationStatus = "waitlist"
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
)

type PaymentState string

const (
	PaymentStatePending   PaymentState = "pending"
	PaymentStateCompleted PaymentState = "completed"
	PaymentStateFailed    PaymentState = "failed"
	PaymentStateRefunded  PaymentState = "refunded"
)

// MaxSeatsPerRegistration caps how many seats one attendee can book at once.
const MaxSeatsPerRegistration = 4

// Registration is one attendee's booking of N seats against an event.
// Status and PaymentStatus only transition through the registration
// service or payment reconciliation.
type Registration struct {
	ID             string
	EventID        string
	Name           string
	Email          string
	Seats          int
	Status         RegistrationStatus
	PaymentStatus  PaymentState
	TotalAmount    decimal.Decimal
	ReminderSentAt *time.Time
	CreatedAt      time.Time
}
