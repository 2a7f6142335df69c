package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReconciliationRepository backs payment reconciliation: intent lookup by
// external id, payment/registration state transitions, and the capacity
// and ticket effects of a confirmed payment.
type ReconciliationRepository struct {
	querier
}

func NewReconciliationRepository(pool *pgxpool.Pool) *ReconciliationRepository {
	return &ReconciliationRepository{querier{pool: pool}}
}

// GetPaymentByIntentForUpdate locks the payment row so replayed provider
// notifications for the same intent serialize instead of racing.
func (r *ReconciliationRepository) GetPaymentByIntentForUpdate(ctx context.Context, intentID string) (domain.Payment, error) {
	const query = `
SELECT id, registration_id, intent_id, amount, status, created_at, updated_at
FROM payments
WHERE intent_id = $1
FOR UPDATE`

	var p domain.Payment
	err := r.queryRow(ctx, query, intentID).Scan(
		&p.ID, &p.RegistrationID, &p.IntentID, &p.Amount, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("get payment by intent: %w", err)
	}
	return p, nil
}

// GetPrimaryPayment returns the newest payment for a registration.
// Registrations have at most one payment in practice.
func (r *ReconciliationRepository) GetPrimaryPayment(ctx context.Context, registrationID string) (domain.Payment, error) {
	const query = `
SELECT id, registration_id, intent_id, amount, status, created_at, updated_at
FROM payments
WHERE registration_id = $1
ORDER BY created_at DESC
LIMIT 1`

	var p domain.Payment
	err := r.queryRow(ctx, query, registrationID).Scan(
		&p.ID, &p.RegistrationID, &p.IntentID, &p.Amount, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Payment{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("get payment for registration: %w", err)
	}
	return p, nil
}

func (r *ReconciliationRepository) UpdatePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus, at time.Time) error {
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

func (r *ReconciliationRepository) GetRegistration(ctx context.Context, id string) (domain.Registration, error) {
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
		if isInvalidUUID(err) {
			return domain.Registration{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Registration{}, domain.ErrRegistrationNotFound
		}
		return domain.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (r *ReconciliationRepository) UpdateRegistrationState(ctx context.Context, id string, status domain.RegistrationStatus, payState domain.PaymentState) error {
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

func (r *ReconciliationRepository) GetEvent(ctx context.Context, id string) (domain.Event, error) {
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

func (r *ReconciliationRepository) CountTickets(ctx context.Context, registrationID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE registration_id = $1`

	var count int
	if err := r.queryRow(ctx, query, registrationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return count, nil
}

func (r *ReconciliationRepository) CreateTickets(ctx context.Context, tickets []domain.Ticket) error {
	const stmt = `
INSERT INTO tickets (id, registration_id, ticket_code, qr_data, checked_in, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	for _, t := range tickets {
		_, err := r.exec(ctx, stmt, t.ID, t.RegistrationID, t.TicketCode, t.QRData, t.CheckedIn, t.CreatedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrRegistrationNotFound
			}
			return fmt.Errorf("create ticket %s: %w", t.TicketCode, err)
		}
	}
	return nil
}
