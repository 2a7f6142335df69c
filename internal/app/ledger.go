package app

import "context"

// Ledger is the capacity ledger: the single point of truth for seat
// admission. TryReserve either takes the seats atomically or reports why
// it could not; Release gives seats back, bounded by the event capacity.
type Ledger interface {
	TryReserve(ctx context.Context, eventID string, seats int) (int, error)
	Release(ctx context.Context, eventID string, seats int) error
}
