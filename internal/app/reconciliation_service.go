package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/garyaschafer/PathRegister/internal/clock"
	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/garyaschafer/PathRegister/internal/notify"
	"github.com/garyaschafer/PathRegister/internal/payment"
	"github.com/garyaschafer/PathRegister/internal/ticketcode"
)

// ReconciliationStore is the persistence needed to settle a payment
// notification against the local payment and registration rows.
type ReconciliationStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetPaymentByIntentForUpdate(ctx context.Context, intentID string) (domain.Payment, error)
	GetPrimaryPayment(ctx context.Context, registrationID string) (domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus, at time.Time) error
	GetRegistration(ctx context.Context, id string) (domain.Registration, error)
	UpdateRegistrationState(ctx context.Context, id string, status domain.RegistrationStatus, payState domain.PaymentState) error
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	CountTickets(ctx context.Context, registrationID string) (int, error)
	CreateTickets(ctx context.Context, tickets []domain.Ticket) error
}

// ReconciliationService applies provider payment outcomes to registrations.
// Every entry point is idempotent: the payment row is locked by intent id,
// and transitions that already happened are acknowledged without effect.
type ReconciliationService struct {
	store    ReconciliationStore
	ledger   Ledger
	provider payment.Provider
	sender   notify.Sender
	codes    *ticketcode.Generator
	clock    clock.Clock
	logger   *log.Logger
}

func NewReconciliationService(
	store ReconciliationStore,
	ledger Ledger,
	provider payment.Provider,
	sender notify.Sender,
	codes *ticketcode.Generator,
	clk clock.Clock,
	logger *log.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = log.Default()
	}
	return &ReconciliationService{
		store:    store,
		ledger:   ledger,
		provider: provider,
		sender:   sender,
		codes:    codes,
		clock:    clk,
		logger:   logger,
	}
}

// settlement carries post-commit side effects out of the transaction.
type settlement struct {
	registration domain.Registration
	event        domain.Event
	tickets      []domain.Ticket
	kind         settlementKind
}

type settlementKind int

const (
	settledNone settlementKind = iota
	settledConfirmed
	settledSoldOut
)

// HandleEvent routes one provider notification. Intents we have no record
// of are acknowledged and logged rather than erroring, so the provider
// does not retry forever over somebody else's traffic.
func (s *ReconciliationService) HandleEvent(ctx context.Context, evt payment.Event) error {
	var err error
	switch evt.Type {
	case payment.EventIntentSucceeded:
		err = s.applySucceeded(ctx, evt.IntentID)
	case payment.EventIntentFailed:
		err = s.applyFailed(ctx, evt.IntentID)
	case payment.EventRefundCompleted:
		err = s.applyRefund(ctx, evt.IntentID)
	default:
		s.logger.Printf("ignoring provider event type %q", evt.Type)
		return nil
	}
	if errors.Is(err, domain.ErrPaymentNotFound) {
		s.logger.Printf("provider event %s for unknown intent %s", evt.Type, evt.IntentID)
		return nil
	}
	return err
}

// CompletePendingRegistration reconciles a registration by asking the
// provider directly, covering the client-redirect path when the async
// notification has not arrived yet.
func (s *ReconciliationService) CompletePendingRegistration(ctx context.Context, registrationID string) (domain.Registration, error) {
	reg, err := s.store.GetRegistration(ctx, registrationID)
	if err != nil {
		return domain.Registration{}, err
	}
	if reg.PaymentStatus != domain.PaymentStatePending {
		return reg, nil
	}

	p, err := s.store.GetPrimaryPayment(ctx, reg.ID)
	if err != nil {
		return domain.Registration{}, err
	}
	intent, err := s.provider.RetrieveIntent(ctx, p.IntentID)
	if err != nil {
		s.logger.Printf("retrieve intent %s: %v", p.IntentID, err)
		return domain.Registration{}, domain.ErrProviderUnavailable
	}

	switch intent.Status {
	case payment.IntentStatusSucceeded:
		if err := s.applySucceeded(ctx, p.IntentID); err != nil {
			return domain.Registration{}, err
		}
	case payment.IntentStatusFailed:
		if err := s.applyFailed(ctx, p.IntentID); err != nil {
			return domain.Registration{}, err
		}
	default:
		return domain.Registration{}, domain.ErrConflictingState
	}
	return s.store.GetRegistration(ctx, registrationID)
}

// applySucceeded confirms the registration the intent paid for. Capacity is
// taken here, inside the transaction; if the event sold out in the
// meantime the payment is marked cancelled and refunded after commit.
func (s *ReconciliationService) applySucceeded(ctx context.Context, intentID string) error {
	now := s.clock.Now()
	var out settlement

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.store.GetPaymentByIntentForUpdate(txCtx, intentID)
		if err != nil {
			return err
		}
		if p.Status == domain.PaymentStatusSucceeded || p.Status == domain.PaymentStatusCancelled {
			return nil
		}

		reg, err := s.store.GetRegistration(txCtx, p.RegistrationID)
		if err != nil {
			return err
		}
		event, err := s.store.GetEvent(txCtx, reg.EventID)
		if err != nil {
			return err
		}

		if _, err := s.ledger.TryReserve(txCtx, reg.EventID, reg.Seats); err != nil {
			if !errors.Is(err, domain.ErrCapacityExceeded) {
				return err
			}
			// Sold out between intent creation and payment. The money is
			// returned and the registration closed.
			if err := s.store.UpdatePaymentStatus(txCtx, p.ID, domain.PaymentStatusCancelled, now); err != nil {
				return err
			}
			if err := s.store.UpdateRegistrationState(txCtx, reg.ID, domain.RegistrationStatusCancelled, domain.PaymentStateRefunded); err != nil {
				return err
			}
			out = settlement{registration: reg, event: event, kind: settledSoldOut}
			return nil
		}

		if err := s.store.UpdatePaymentStatus(txCtx, p.ID, domain.PaymentStatusSucceeded, now); err != nil {
			return err
		}
		if err := s.store.UpdateRegistrationState(txCtx, reg.ID, domain.RegistrationStatusConfirmed, domain.PaymentStateCompleted); err != nil {
			return err
		}

		existing, err := s.store.CountTickets(txCtx, reg.ID)
		if err != nil {
			return err
		}
		var tickets []domain.Ticket
		if existing == 0 {
			tickets, err = mintTickets(s.codes, reg.ID, reg.Seats, now)
			if err != nil {
				return err
			}
			if err := s.store.CreateTickets(txCtx, tickets); err != nil {
				return err
			}
		}
		out = settlement{registration: reg, event: event, tickets: tickets, kind: settledConfirmed}
		return nil
	})
	if err != nil {
		return err
	}

	switch out.kind {
	case settledConfirmed:
		subject, text, htmlBody := confirmationEmail(out.registration, out.event, out.tickets)
		if err := s.sender.Send(ctx, out.registration.Email, subject, text, htmlBody); err != nil {
			s.logger.Printf("send confirmation to %s: %v", out.registration.Email, err)
		}
	case settledSoldOut:
		if err := s.provider.Refund(ctx, intentID, out.registration.TotalAmount); err != nil {
			s.logger.Printf("refund intent %s after sellout: %v", intentID, err)
		}
		subject, text := soldOutRefundEmail(out.registration, out.event)
		if err := s.sender.Send(ctx, out.registration.Email, subject, text, ""); err != nil {
			s.logger.Printf("send sellout notice to %s: %v", out.registration.Email, err)
		}
	}
	return nil
}

func (s *ReconciliationService) applyFailed(ctx context.Context, intentID string) error {
	now := s.clock.Now()
	return s.store.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.store.GetPaymentByIntentForUpdate(txCtx, intentID)
		if err != nil {
			return err
		}
		if p.Status != domain.PaymentStatusPending {
			return nil
		}
		if err := s.store.UpdatePaymentStatus(txCtx, p.ID, domain.PaymentStatusFailed, now); err != nil {
			return err
		}
		return s.store.UpdateRegistrationState(txCtx, p.RegistrationID, domain.RegistrationStatusCancelled, domain.PaymentStateFailed)
	})
}

// applyRefund handles a provider-side refund completing. Capacity is given
// back only when the payment had actually succeeded and taken seats.
func (s *ReconciliationService) applyRefund(ctx context.Context, intentID string) error {
	now := s.clock.Now()
	return s.store.WithTx(ctx, func(txCtx context.Context) error {
		p, err := s.store.GetPaymentByIntentForUpdate(txCtx, intentID)
		if err != nil {
			return err
		}
		wasSucceeded := p.Status == domain.PaymentStatusSucceeded
		if !wasSucceeded && p.Status != domain.PaymentStatusCancelled {
			return nil
		}

		reg, err := s.store.GetRegistration(txCtx, p.RegistrationID)
		if err != nil {
			return err
		}
		if wasSucceeded {
			if err := s.ledger.Release(txCtx, reg.EventID, reg.Seats); err != nil {
				return err
			}
			if err := s.store.UpdatePaymentStatus(txCtx, p.ID, domain.PaymentStatusCancelled, now); err != nil {
				return err
			}
		}
		if reg.PaymentStatus != domain.PaymentStateRefunded {
			if err := s.store.UpdateRegistrationState(txCtx, reg.ID, domain.RegistrationStatusCancelled, domain.PaymentStateRefunded); err != nil {
				return err
			}
		}
		return nil
	})
}
