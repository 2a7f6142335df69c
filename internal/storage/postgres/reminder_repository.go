package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReminderRepository backs the reminder sweep: candidate selection and the
// per-registration sent-flag claim.
type ReminderRepository struct {
	querier
}

func NewReminderRepository(pool *pgxpool.Pool) *ReminderRepository {
	return &ReminderRepository{querier{pool: pool}}
}

// DueReminders returns confirmed, fully paid registrations whose event
// starts inside [from, to) and that have no reminder recorded.
func (r *ReminderRepository) DueReminders(ctx context.Context, from, to time.Time) ([]domain.ReminderCandidate, error) {
	const query = `
SELECT reg.id, reg.name, reg.email, e.title, e.starts_at
FROM registrations reg
JOIN events e ON e.id = reg.event_id
WHERE reg.status = 'confirmed'
  AND reg.payment_status = 'completed'
  AND reg.reminder_sent_at IS NULL
  AND e.starts_at >= $1
  AND e.starts_at < $2
ORDER BY e.starts_at ASC`

	rows, err := r.query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("select due reminders: %w", err)
	}
	defer rows.Close()

	var due []domain.ReminderCandidate
	for rows.Next() {
		var c domain.ReminderCandidate
		if err := rows.Scan(&c.RegistrationID, &c.Name, &c.Email, &c.EventTitle, &c.EventStartsAt); err != nil {
			return nil, fmt.Errorf("scan reminder candidate: %w", err)
		}
		due = append(due, c)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reminders: %w", rows.Err())
	}
	return due, nil
}

// ClaimReminder marks a registration as reminded if and only if no other
// sweep got there first. Returns false when the claim was lost.
func (r *ReminderRepository) ClaimReminder(ctx context.Context, registrationID string, at time.Time) (bool, error) {
	const stmt = `
UPDATE registrations
SET reminder_sent_at = $2
WHERE id = $1 AND reminder_sent_at IS NULL`

	tag, err := r.exec(ctx, stmt, registrationID, at)
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
