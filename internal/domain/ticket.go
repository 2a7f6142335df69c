package domain

import "time"

// Ticket is one redeemable, individually check-in-able unit tied to a
// single seat of a registration. Exactly one ticket is minted per seat
// at the moment seats are durably committed. Check-in is one-way.
type Ticket struct {
	ID             string
	RegistrationID string
	TicketCode     string
	QRData         string
	CheckedIn      bool
	CheckedInAt    *time.Time
	CreatedAt      time.Time
}
