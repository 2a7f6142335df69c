package postgres

import (
	"context"
	"fmt"

	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RegistrationRepository backs the registration workflow: the locked
// admission decision, seat reservation, and the rows minted alongside it.
type RegistrationRepository struct {
	querier
}

func NewRegistrationRepository(pool *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{querier{pool: pool}}
}

// GetEventForUpdate locks the event row for the duration of the enclosing
// transaction so the admission decision is serialized per event.
func (r *RegistrationRepository) GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	const query = `
SELECT id, title, description, starts_at, ends_at, capacity, remaining, price, allow_waitlist, status, created_at
FROM events
WHERE id = $1
FOR UPDATE`

	var e domain.Event
	err := r.queryRow(ctx, query, eventID).Scan(
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
		return domain.Event{}, fmt.Errorf("get event for update: %w", err)
	}
	return e, nil
}

func (r *RegistrationRepository) CreateRegistration(ctx context.Context, reg domain.Registration) error {
	const stmt = `
INSERT INTO registrations (id, event_id, name, email, seats, status, payment_status, total_amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		reg.ID, reg.EventID, reg.Name, reg.Email, reg.Seats,
		reg.Status, reg.PaymentStatus, reg.TotalAmount, reg.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (r *RegistrationRepository) CreateTickets(ctx context.Context, tickets []domain.Ticket) error {
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

func (r *RegistrationRepository) CreatePayment(ctx context.Context, p domain.Payment) error {
	const stmt = `
INSERT INTO payments (id, registration_id, intent_id, amount, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt, p.ID, p.RegistrationID, p.IntentID, p.Amount, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrRegistrationNotFound
		}
		if isUniqueViolation(err) {
			return domain.ErrConflictingState
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}
