package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/garyaschafer/PathRegister/internal/testutil"
)

func TestReminderRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewReminderRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	insertConfirmed := func(ctx context.Context, eventID, email string) string {
		return testutil.InsertRegistration(t, ctx, pool, domain.Registration{
			EventID:       eventID,
			Name:          "Ada",
			Email:         email,
			Seats:         1,
			Status:        domain.RegistrationStatusConfirmed,
			PaymentStatus: domain.PaymentStateCompleted,
			TotalAmount:   decimal.Zero,
		})
	}

	t.Run("DueReminders filters by window and state", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		inWindow := testutil.InsertEventStartingAt(t, ctx, pool, "Tomorrow", now.Add(23*time.Hour+30*time.Minute), 10)
		early := testutil.InsertEventStartingAt(t, ctx, pool, "Today", now.Add(2*time.Hour), 10)
		late := testutil.InsertEventStartingAt(t, ctx, pool, "Next week", now.Add(100*time.Hour), 10)

		wantID := insertConfirmed(ctx, inWindow, "due@example.com")
		insertConfirmed(ctx, early, "early@example.com")
		insertConfirmed(ctx, late, "late@example.com")

		// In the window but wrong state.
		testutil.InsertRegistration(t, ctx, pool, domain.Registration{
			EventID: inWindow, Name: "P", Email: "pending@example.com", Seats: 1,
			Status: domain.RegistrationStatusConfirmed, PaymentStatus: domain.PaymentStatePending,
			TotalAmount: decimal.NewFromInt(10),
		})
		testutil.InsertRegistration(t, ctx, pool, domain.Registration{
			EventID: inWindow, Name: "W", Email: "wait@example.com", Seats: 1,
			Status: domain.RegistrationStatusWaitlist, PaymentStatus: domain.PaymentStatePending,
			TotalAmount: decimal.Zero,
		})

		due, err := repo.DueReminders(ctx, now.Add(23*time.Hour), now.Add(24*time.Hour))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(due) != 1 {
			t.Fatalf("expected 1 candidate, got %d: %+v", len(due), due)
		}
		if due[0].RegistrationID != wantID || due[0].Email != "due@example.com" {
			t.Fatalf("unexpected candidate: %+v", due[0])
		}
		if due[0].EventTitle != "Tomorrow" {
			t.Fatalf("expected event title, got %q", due[0].EventTitle)
		}
	})

	t.Run("ClaimReminder wins once", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()

		eventID := testutil.InsertEventStartingAt(t, ctx, pool, "Tomorrow", now.Add(23*time.Hour+30*time.Minute), 10)
		regID := insertConfirmed(ctx, eventID, "due@example.com")

		claimed, err := repo.ClaimReminder(ctx, regID, now)
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if !claimed {
			t.Fatal("expected first claim to win")
		}

		claimed, err = repo.ClaimReminder(ctx, regID, now)
		if err != nil {
			t.Fatalf("second claim: %v", err)
		}
		if claimed {
			t.Fatal("expected second claim to lose")
		}

		// Claimed registrations disappear from the candidate set.
		due, err := repo.DueReminders(ctx, now.Add(23*time.Hour), now.Add(24*time.Hour))
		if err != nil {
			t.Fatalf("due reminders: %v", err)
		}
		if len(due) != 0 {
			t.Fatalf("expected no candidates after claim, got %+v", due)
		}
	})
}
