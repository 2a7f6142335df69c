package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyaschafer/PathRegister/internal/clock"
	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/garyaschafer/PathRegister/internal/payment"
	"github.com/garyaschafer/PathRegister/internal/ticketcode"
)

func newReconciliationFixture(t *testing.T) (*ReconciliationService, *memStore, *fakeProvider, *fakeSender) {
	t.Helper()
	store := newMemStore()
	provider := newFakeProvider()
	sender := newFakeSender()
	clk := clock.NewFixed(testTime)
	codes := ticketcode.New("https://reg.example.com", clk)
	svc := NewReconciliationService(store, &memLedger{store: store}, provider, sender, codes, clk, nil)
	return svc, store, provider, sender
}

// seedPendingPaid sets up an event with a pending paid registration and
// its payment row, as left behind by a payment_required registration.
func seedPendingPaid(store *memStore, remaining int) (domain.Registration, domain.Payment) {
	event := publishedEvent("ev1", 10, decimal.NewFromInt(25), false)
	event.Remaining = remaining
	store.putEvent(event)

	reg := domain.Registration{
		ID:            "reg1",
		EventID:       "ev1",
		Name:          "Ada",
		Email:         "ada@example.com",
		Seats:         2,
		Status:        domain.RegistrationStatusConfirmed,
		PaymentStatus: domain.PaymentStatePending,
		TotalAmount:   decimal.NewFromInt(50),
		CreatedAt:     testTime,
	}
	store.putRegistration(reg)

	p := domain.Payment{
		ID:             "pay1",
		RegistrationID: "reg1",
		IntentID:       "pi_1",
		Amount:         decimal.NewFromInt(50),
		Status:         domain.PaymentStatusPending,
		CreatedAt:      testTime,
		UpdatedAt:      testTime,
	}
	store.putPayment(p)
	return reg, p
}

func TestHandleIntentSucceeded(t *testing.T) {
	svc, store, _, sender := newReconciliationFixture(t)
	seedPendingPaid(store, 10)

	err := svc.HandleEvent(context.Background(), payment.Event{Type: payment.EventIntentSucceeded, IntentID: "pi_1"})
	require.NoError(t, err)

	reg := store.registration("reg1")
	assert.Equal(t, domain.RegistrationStatusConfirmed, reg.Status)
	assert.Equal(t, domain.PaymentStateCompleted, reg.PaymentStatus)
	assert.Equal(t, 8, store.event("ev1").Remaining)
	assert.Len(t, store.ticketsFor("reg1"), 2)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Subject, "registered")
}

func TestHandleIntentSucceededReplayIsIdempotent(t *testing.T) {
	svc, store, _, sender := newReconciliationFixture(t)
	seedPendingPaid(store, 10)

	evt := payment.Event{Type: payment.EventIntentSucceeded, IntentID: "pi_1"}
	require.NoError(t, svc.HandleEvent(context.Background(), evt))
	require.NoError(t, svc.HandleEvent(context.Background(), evt))
	require.NoError(t, svc.HandleEvent(context.Background(), evt))

	assert.Equal(t, 8, store.event("ev1").Remaining)
	assert.Len(t, store.ticketsFor("reg1"), 2)
	assert.Len(t, sender.messages(), 1)
}

func TestHandleIntentSucceededAfterSellout(t *testing.T) {
	svc, store, provider, sender := newReconciliationFixture(t)
	seedPendingPaid(store, 1) // only one seat left for a two-seat registration

	err := svc.HandleEvent(context.Background(), payment.Event{Type: payment.EventIntentSucceeded, IntentID: "pi_1"})
	require.NoError(t, err)

	reg := store.registration("reg1")
	assert.Equal(t, domain.RegistrationStatusCancelled, reg.Status)
	assert.Equal(t, domain.PaymentStateRefunded, reg.PaymentStatus)
	assert.Equal(t, 1, store.event("ev1").Remaining)
	assert.Empty(t, store.ticketsFor("reg1"))

	assert.Equal(t, []string{"pi_1"}, provider.refunds())
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Subject, "Refund")
}

func TestHandleIntentFailed(t *testing.T) {
	svc, store, _, _ := newReconciliationFixture(t)
	seedPendingPaid(store, 10)

	err := svc.HandleEvent(context.Background(), payment.Event{Type: payment.EventIntentFailed, IntentID: "pi_1"})
	require.NoError(t, err)

	reg := store.registration("reg1")
	assert.Equal(t, domain.RegistrationStatusCancelled, reg.Status)
	assert.Equal(t, domain.PaymentStateFailed, reg.PaymentStatus)
	assert.Equal(t, 10, store.event("ev1").Remaining)
}

func TestHandleIntentFailedAfterSuccessIsNoOp(t *testing.T) {
	svc, store, _, _ := newReconciliationFixture(t)
	seedPendingPaid(store, 10)

	require.NoError(t, svc.HandleEvent(context.Background(), payment.Event{Type: payment.EventIntentSucceeded, IntentID: "pi_1"}))
	require.NoError(t, svc.HandleEvent(context.Background(), payment.Event{Type: payment.EventIntentFailed, IntentID: "pi_1"}))

	reg := store.registration("reg1")
	assert.Equal(t, domain.RegistrationStatusConfirmed, reg.Status)
	assert.Equal(t, domain.PaymentStateCompleted, reg.PaymentStatus)
}

func TestHandleRefundReleasesCapacity(t *testing.T) {
	svc, store, _, _ := newReconciliationFixture(t)
	seedPendingPaid(store, 10)

	require.NoError(t, svc.HandleEvent(context.Background(), payment.Event{Type: payment.EventIntentSucceeded, IntentID: "pi_1"}))
	require.Equal(t, 8, store.event("ev1").Remaining)

	require.NoError(t, svc.HandleEvent(context.Background(), payment.Event{Type: payment.EventRefundCompleted, IntentID: "pi_1"}))

	reg := store.registration("reg1")
	assert.Equal(t, domain.RegistrationStatusCancelled, reg.Status)
	assert.Equal(t, domain.PaymentStateRefunded, reg.PaymentStatus)
	assert.Equal(t, 10, store.event("ev1").Remaining)
}

func TestHandleRefundForPendingPaymentIsNoOp(t *testing.T) {
	svc, store, _, _ := newReconciliationFixture(t)
	seedPendingPaid(store, 10)

	require.NoError(t, svc.HandleEvent(context.Background(), payment.Event{Type: payment.EventRefundCompleted, IntentID: "pi_1"}))

	reg := store.registration("reg1")
	assert.Equal(t, domain.PaymentStatePending, reg.PaymentStatus)
	assert.Equal(t, 10, store.event("ev1").Remaining)
}

func TestHandleUnknownIntentIsAcknowledged(t *testing.T) {
	svc, _, _, _ := newReconciliationFixture(t)

	err := svc.HandleEvent(context.Background(), payment.Event{Type: payment.EventIntentSucceeded, IntentID: "pi_unknown"})
	assert.NoError(t, err)
}

func TestHandleUnknownEventTypeIsIgnored(t *testing.T) {
	svc, _, _, _ := newReconciliationFixture(t)

	err := svc.HandleEvent(context.Background(), payment.Event{Type: "charge.disputed", IntentID: "pi_1"})
	assert.NoError(t, err)
}

func TestCompletePendingRegistration(t *testing.T) {
	svc, store, provider, _ := newReconciliationFixture(t)
	seedPendingPaid(store, 10)
	provider.retrieved["pi_1"] = payment.Intent{ID: "pi_1", Status: payment.IntentStatusSucceeded}

	reg, err := svc.CompletePendingRegistration(context.Background(), "reg1")
	require.NoError(t, err)

	assert.Equal(t, domain.RegistrationStatusConfirmed, reg.Status)
	assert.Equal(t, domain.PaymentStateCompleted, reg.PaymentStatus)
	assert.Equal(t, 8, store.event("ev1").Remaining)
}

func TestCompletePendingRegistrationStillPending(t *testing.T) {
	svc, store, provider, _ := newReconciliationFixture(t)
	seedPendingPaid(store, 10)
	provider.retrieved["pi_1"] = payment.Intent{ID: "pi_1", Status: payment.IntentStatusPending}

	_, err := svc.CompletePendingRegistration(context.Background(), "reg1")
	assert.ErrorIs(t, err, domain.ErrConflictingState)
	assert.Equal(t, 10, store.event("ev1").Remaining)
}

func TestCompleteAlreadySettledRegistration(t *testing.T) {
	svc, store, provider, _ := newReconciliationFixture(t)
	reg, _ := seedPendingPaid(store, 10)
	reg.PaymentStatus = domain.PaymentStateCompleted
	store.putRegistration(reg)

	got, err := svc.CompletePendingRegistration(context.Background(), "reg1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStateCompleted, got.PaymentStatus)
	// The provider is never consulted for settled registrations.
	assert.Zero(t, provider.retrieveCount)
}

func TestConcurrentSucceededNotifications(t *testing.T) {
	svc, store, _, sender := newReconciliationFixture(t)
	seedPendingPaid(store, 10)

	const n = 8
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			done <- svc.HandleEvent(context.Background(), payment.Event{Type: payment.EventIntentSucceeded, IntentID: "pi_1"})
		}()
	}
	deadline := time.After(5 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-deadline:
			t.Fatal("timed out waiting for handlers")
		}
	}

	assert.Equal(t, 8, store.event("ev1").Remaining)
	assert.Len(t, store.ticketsFor("reg1"), 2)
	assert.Len(t, sender.messages(), 1)
}
