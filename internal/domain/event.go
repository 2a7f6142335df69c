package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
)

// Event represents a capacity-bounded offering attendees register for.
// Remaining is the authoritative seat counter; it is only ever mutated
// through conditional updates in the storage layer.
type Event struct {
	ID            string
	Title         string
	Description   string
	StartsAt      time.Time
	EndsAt        time.Time
	Capacity      int
	Remaining     int
	Price         decimal.Decimal
	AllowWaitlist bool
	Status        EventStatus
	CreatedAt     time.Time
}

// IsFree reports whether registrations for the event cost nothing.
func (e Event) IsFree() bool {
	return e.Price.IsZero()
}
