package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CheckinRepository backs ticket verification and the one-way check-in
// transition.
type CheckinRepository struct {
	querier
}

func NewCheckinRepository(pool *pgxpool.Pool) *CheckinRepository {
	return &CheckinRepository{querier{pool: pool}}
}

func (r *CheckinRepository) GetTicketByCode(ctx context.Context, code string) (domain.Ticket, error) {
	const query = `
SELECT id, registration_id, ticket_code, qr_data, checked_in, checked_in_at, created_at
FROM tickets
WHERE ticket_code = $1`

	var t domain.Ticket
	err := r.queryRow(ctx, query, code).Scan(
		&t.ID, &t.RegistrationID, &t.TicketCode, &t.QRData, &t.CheckedIn, &t.CheckedInAt, &t.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket by code: %w", err)
	}
	return t, nil
}

func (r *CheckinRepository) GetRegistration(ctx context.Context, id string) (domain.Registration, error) {
	const query = `
SELECT id, event_id, name, email, seats, status, payment_status, total_amount, reminder_sent_at, created_at
FROM registrations
WHERE id = $1`

	var reg domain.Registration
	err := r.queryRow(ctx, query, id).Scan(
		&reg.ID, &reg.EventID, &reg.Name, &reg.Email, &reg.Seats,
		&reg.Status, &reg.PaymentStatus, &reg.TotalAmount, &reg.ReminderSentAt, &reg.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Registration{}, domain.ErrRegistrationNotFound
		}
		return domain.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (r *CheckinRepository) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	const query = `
SELECT id, title, description, starts_at, ends_at, capacity, remaining, price, allow_waitlist, status, created_at
FROM events
WHERE id = $1`

	var e domain.Event
	err := r.queryRow(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt,
		&e.Capacity, &e.Remaining, &e.Price, &e.AllowWaitlist, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// CheckInTicket flips checked_in exactly once. The WHERE clause carries the
// state guard, so concurrent scans of the same code resolve to one winner;
// the losers see ErrAlreadyCheckedIn.
func (r *CheckinRepository) CheckInTicket(ctx context.Context, code string, at time.Time) (domain.Ticket, error) {
	const stmt = `
UPDATE tickets
SET checked_in = TRUE, checked_in_at = $2
WHERE ticket_code = $1 AND checked_in = FALSE
RETURNING id, registration_id, ticket_code, qr_data, checked_in, checked_in_at, created_at`

	var t domain.Ticket
	err := r.queryRow(ctx, stmt, code, at).Scan(
		&t.ID, &t.RegistrationID, &t.TicketCode, &t.QRData, &t.CheckedIn, &t.CheckedInAt, &t.CreatedAt,
	)
	if err == nil {
		return t, nil
	}
	if err != pgx.ErrNoRows {
		return domain.Ticket{}, fmt.Errorf("check in ticket: %w", err)
	}

	// No row updated: the code is unknown or the ticket is already used.
	var exists bool
	if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE ticket_code = $1)`, code).Scan(&exists); err != nil {
		return domain.Ticket{}, fmt.Errorf("check ticket: %w", err)
	}
	if !exists {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return domain.Ticket{}, domain.ErrAlreadyCheckedIn
}
