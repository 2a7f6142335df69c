package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, title, description, starts_at, ends_at, capacity, remaining, price, allow_waitlist, status, created_at`

// AdminRepository backs organizer-facing event management, registration
// listings, cancellation, and aggregate stats.
type AdminRepository struct {
	querier
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{querier{pool: pool}}
}

func (r *AdminRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, title, description, starts_at, ends_at, capacity, remaining, price, allow_waitlist, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.exec(ctx, stmt,
		event.ID, event.Title, event.Description, event.StartsAt, event.EndsAt,
		event.Capacity, event.Remaining, event.Price, event.AllowWaitlist, event.Status, event.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *AdminRepository) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	var e domain.Event
	err := r.queryRow(ctx, query, id).Scan(
		&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt,
		&e.Capacity, &e.Remaining, &e.Price, &e.AllowWaitlist, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *AdminRepository) ListEvents(ctx context.Context, publishedOnly bool) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY starts_at ASC`
	if publishedOnly {
		query = `SELECT ` + eventColumns + ` FROM events WHERE status = 'published' ORDER BY starts_at ASC`
	}

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt,
			&e.Capacity, &e.Remaining, &e.Price, &e.AllowWaitlist, &e.Status, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate events: %w", rows.Err())
	}
	return events, nil
}

// UpdateEvent persists admin edits. Capacity edits shift remaining by the
// same delta, floored at zero so the counter invariant holds.
func (r *AdminRepository) UpdateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
UPDATE events
SET title = $2,
    description = $3,
    starts_at = $4,
    ends_at = $5,
    remaining = GREATEST(0, remaining + ($6 - capacity)),
    capacity = $6,
    price = $7,
    allow_waitlist = $8
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		event.ID, event.Title, event.Description, event.StartsAt, event.EndsAt,
		event.Capacity, event.Price, event.AllowWaitlist,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *AdminRepository) SetEventStatus(ctx context.Context, id string, status domain.EventStatus) error {
	const stmt = `UPDATE events SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// DeleteEvent removes the event; registrations, tickets, and payments go
// with it via FK cascade.
func (r *AdminRepository) DeleteEvent(ctx context.Context, id string) error {
	tag, err := r.exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *AdminRepository) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]domain.Registration, error) {
	const existsQuery = `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`
	var exists bool
	if err := r.queryRow(ctx, existsQuery, eventID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return nil, domain.ErrEventNotFound
	}

	const query = `
SELECT id, event_id, name, email, seats, status, payment_status, total_amount, reminder_sent_at, created_at
FROM registrations
WHERE event_id = $1
ORDER BY created_at ASC`

	rows, err := r.query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []domain.Registration
	for rows.Next() {
		var reg domain.Registration
		if err := rows.Scan(
			&reg.ID, &reg.EventID, &reg.Name, &reg.Email, &reg.Seats,
			&reg.Status, &reg.PaymentStatus, &reg.TotalAmount, &reg.ReminderSentAt, &reg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate registrations: %w", rows.Err())
	}
	return regs, nil
}

func (r *AdminRepository) GetRegistrationForUpdate(ctx context.Context, id string) (domain.Registration, error) {
	const query = `
SELECT id, event_id, name, email, seats, status, payment_status, total_amount, reminder_sent_at, created_at
FROM registrations
WHERE id = $1
FOR UPDATE`

	var reg domain.Registration
	err := r.queryRow(ctx, query, id).Scan(
		&reg.ID, &reg.EventID, &reg.Name, &reg.Email, &reg.Seats,
		&reg.Status, &reg.PaymentStatus, &reg.TotalAmount, &reg.ReminderSentAt, &reg.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Registration{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Registration{}, domain.ErrRegistrationNotFound
		}
		return domain.Registration{}, fmt.Errorf("get registration for update: %w", err)
	}
	return reg, nil
}

func (r *AdminRepository) UpdateRegistrationState(ctx context.Context, id string, status domain.RegistrationStatus, payState domain.PaymentState) error {
	const stmt = `UPDATE registrations SET status = $2, payment_status = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, status, payState)
	if err != nil {
		return fmt.Errorf("update registration state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRegistrationNotFound
	}
	return nil
}

func (r *AdminRepository) GetPrimaryPaymentForUpdate(ctx context.Context, registrationID string) (domain.Payment, error) {
	const query = `
SELECT id, registration_id, intent_id, amount, status, created_at, updated_at
FROM payments
WHERE registration_id = $1
ORDER BY created_at DESC
LIMIT 1
FOR UPDATE`

	var p domain.Payment
	err := r.queryRow(ctx, query, registrationID).Scan(
		&p.ID, &p.RegistrationID, &p.IntentID, &p.Amount, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("get payment for registration: %w", err)
	}
	return p, nil
}

func (r *AdminRepository) UpdatePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus, at time.Time) error {
	const stmt = `UPDATE payments SET status = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, paymentID, status, at)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

// Stats aggregates the organizer dashboard numbers in one round trip.
func (r *AdminRepository) Stats(ctx context.Context) (domain.Stats, error) {
	const query = `
SELECT
	(SELECT COUNT(*) FROM events),
	(SELECT COUNT(*) FROM registrations WHERE status <> 'cancelled'),
	(SELECT COALESCE(SUM(total_amount), 0) FROM registrations WHERE payment_status = 'completed')`

	var s domain.Stats
	if err := r.queryRow(ctx, query).Scan(&s.TotalEvents, &s.TotalRegistrations, &s.Revenue); err != nil {
		return domain.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return s, nil
}
