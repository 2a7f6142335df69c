package postgres

import (
	"context"
	"fmt"

	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CapacityLedger owns the remaining-seats counter for every event. Both
// operations are single conditional updates, so concurrent admission
// decisions for the same event cannot lose an update: either the WHERE
// clause matched and the seats were taken, or nothing happened.
type CapacityLedger struct {
	querier
}

func NewCapacityLedger(pool *pgxpool.Pool) *CapacityLedger {
	return &CapacityLedger{querier{pool: pool}}
}

// TryReserve decrements remaining by seats if and only if enough seats are
// left, returning the counter after the decrement.
func (l *CapacityLedger) TryReserve(ctx context.Context, eventID string, seats int) (int, error) {
	if seats <= 0 {
		return 0, domain.ErrInvalidSeats
	}

	const stmt = `
UPDATE events
SET remaining = remaining - $2
WHERE id = $1 AND remaining >= $2
RETURNING remaining`

	var remaining int
	err := l.queryRow(ctx, stmt, eventID, seats).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if isInvalidUUID(err) {
		return 0, domain.ErrInvalidID
	}
	if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("reserve seats: %w", err)
	}

	// No row matched: either the event is gone or the seats are.
	var exists bool
	if err := l.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return 0, domain.ErrEventNotFound
	}
	return 0, domain.ErrCapacityExceeded
}

// Release restores seats on cancellation or refund. The result is bounded
// above by the event's capacity.
func (l *CapacityLedger) Release(ctx context.Context, eventID string, seats int) error {
	if seats <= 0 {
		return domain.ErrInvalidSeats
	}

	const stmt = `
UPDATE events
SET remaining = LEAST(capacity, remaining + $2)
WHERE id = $1`

	tag, err := l.exec(ctx, stmt, eventID, seats)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("release seats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}
