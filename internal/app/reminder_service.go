package app

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/garyaschafer/PathRegister/internal/clock"
	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/garyaschafer/PathRegister/internal/notify"
)

// ReminderStore is the persistence needed by the reminder sweep.
type ReminderStore interface {
	DueReminders(ctx context.Context, from, to time.Time) ([]domain.ReminderCandidate, error)
	ClaimReminder(ctx context.Context, registrationID string, at time.Time) (bool, error)
}

// ReminderService sends day-before reminders to confirmed attendees. Each
// registration is claimed before its mail goes out, so reminders are
// at-most-once even with overlapping sweeps or multiple instances.
type ReminderService struct {
	store   ReminderStore
	sender  notify.Sender
	clock   clock.Clock
	logger  *log.Logger
	running atomic.Bool
}

func NewReminderService(store ReminderStore, sender notify.Sender, clk clock.Clock, logger *log.Logger) *ReminderService {
	if logger == nil {
		logger = log.Default()
	}
	return &ReminderService{store: store, sender: sender, clock: clk, logger: logger}
}

// RunOnce sweeps registrations whose event starts 23 to 24 hours from now.
// The one-hour window paired with a sub-hour sweep interval means every
// registration is seen at least once without being seen twice.
func (s *ReminderService) RunOnce(ctx context.Context) (sent int, err error) {
	if !s.running.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer s.running.Store(false)

	now := s.clock.Now()
	from := now.Add(23 * time.Hour)
	to := now.Add(24 * time.Hour)

	due, err := s.store.DueReminders(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}
	s.logger.Printf("reminder sweep: %d candidate(s) in %s", len(due), formatWindow(from, to))

	for _, c := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		claimed, err := s.store.ClaimReminder(ctx, c.RegistrationID, now)
		if err != nil {
			s.logger.Printf("claim reminder for %s: %v", c.RegistrationID, err)
			continue
		}
		if !claimed {
			continue
		}
		subject, text := reminderEmail(c)
		if err := s.sender.Send(ctx, c.Email, subject, text, ""); err != nil {
			// The claim stands; a failed send is logged, not retried.
			s.logger.Printf("send reminder to %s: %v", c.Email, err)
			continue
		}
		sent++
	}
	return sent, nil
}

// Run sweeps on the given interval until the context is cancelled.
func (s *ReminderService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Printf("reminder sweep: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
