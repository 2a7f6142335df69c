package app

import (
	"context"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyaschafer/PathRegister/internal/clock"
	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/garyaschafer/PathRegister/internal/notify"
	"github.com/garyaschafer/PathRegister/internal/payment"
	"github.com/garyaschafer/PathRegister/internal/ticketcode"
)

// RegistrationStore is the persistence needed by the registration workflow.
type RegistrationStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error)
	CreateRegistration(ctx context.Context, reg domain.Registration) error
	CreateTickets(ctx context.Context, tickets []domain.Ticket) error
	CreatePayment(ctx context.Context, p domain.Payment) error
}

// RegistrationService decides confirmed / waitlisted / payment-required
// outcomes and orchestrates ticket issuance.
type RegistrationService struct {
	store    RegistrationStore
	ledger   Ledger
	provider payment.Provider
	sender   notify.Sender
	codes    *ticketcode.Generator
	clock    clock.Clock
	logger   *log.Logger
	currency string
}

func NewRegistrationService(
	store RegistrationStore,
	ledger Ledger,
	provider payment.Provider,
	sender notify.Sender,
	codes *ticketcode.Generator,
	clk clock.Clock,
	logger *log.Logger,
) *RegistrationService {
	if logger == nil {
		logger = log.Default()
	}
	return &RegistrationService{
		store:    store,
		ledger:   ledger,
		provider: provider,
		sender:   sender,
		codes:    codes,
		clock:    clk,
		logger:   logger,
		currency: "usd",
	}
}

type Outcome string

const (
	OutcomeConfirmed       Outcome = "confirmed"
	OutcomeWaitlisted      Outcome = "waitlist"
	OutcomePaymentRequired Outcome = "payment_required"
)

type RegisterInput struct {
	EventID string
	Name    string
	Email   string
	Seats   int
}

type RegisterResult struct {
	Outcome      Outcome
	Registration domain.Registration
	Tickets      []domain.Ticket
	ClientSecret string
}

// Register runs the admission decision for one request. The event row is
// locked for the duration of the transaction, so remaining-seat checks and
// the ledger decrement cannot interleave with a concurrent request for the
// same event.
//
// Paid registrations do not reserve capacity here; seats are taken when
// the payment confirms (see ReconciliationService). Two buyers can
// therefore both receive an intent for the last seat, and the loser is
// refunded at confirmation time.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	if err := validateRegisterInput(&in); err != nil {
		return RegisterResult{}, err
	}

	now := s.clock.Now()
	var result RegisterResult

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.store.GetEventForUpdate(txCtx, in.EventID)
		if err != nil {
			return err
		}
		if event.Status != domain.EventStatusPublished {
			return domain.ErrEventNotPublished
		}

		total := event.Price.Mul(decimal.NewFromInt(int64(in.Seats)))

		if event.Remaining < in.Seats {
			if !event.AllowWaitlist {
				return domain.ErrCapacityExceeded
			}
			reg := domain.Registration{
				ID:            newID(),
				EventID:       event.ID,
				Name:          in.Name,
				Email:         in.Email,
				Seats:         in.Seats,
				Status:        domain.RegistrationStatusWaitlist,
				PaymentStatus: domain.PaymentStatePending,
				TotalAmount:   decimal.Zero,
				CreatedAt:     now,
			}
			if err := s.store.CreateRegistration(txCtx, reg); err != nil {
				return err
			}
			result = RegisterResult{Outcome: OutcomeWaitlisted, Registration: reg}
			return nil
		}

		if total.IsZero() {
			if _, err := s.ledger.TryReserve(txCtx, event.ID, in.Seats); err != nil {
				return err
			}
			reg := domain.Registration{
				ID:            newID(),
				EventID:       event.ID,
				Name:          in.Name,
				Email:         in.Email,
				Seats:         in.Seats,
				Status:        domain.RegistrationStatusConfirmed,
				PaymentStatus: domain.PaymentStateCompleted,
				TotalAmount:   decimal.Zero,
				CreatedAt:     now,
			}
			if err := s.store.CreateRegistration(txCtx, reg); err != nil {
				return err
			}
			tickets, err := mintTickets(s.codes, reg.ID, in.Seats, now)
			if err != nil {
				return err
			}
			if err := s.store.CreateTickets(txCtx, tickets); err != nil {
				return err
			}
			result = RegisterResult{Outcome: OutcomeConfirmed, Registration: reg, Tickets: tickets}
			return nil
		}

		// Paid path: the registration is recorded pending with no capacity
		// commitment, so an abandoned checkout never strands seats.
		reg := domain.Registration{
			ID:            newID(),
			EventID:       event.ID,
			Name:          in.Name,
			Email:         in.Email,
			Seats:         in.Seats,
			Status:        domain.RegistrationStatusConfirmed,
			PaymentStatus: domain.PaymentStatePending,
			TotalAmount:   total,
			CreatedAt:     now,
		}
		if err := s.store.CreateRegistration(txCtx, reg); err != nil {
			return err
		}
		result = RegisterResult{Outcome: OutcomePaymentRequired, Registration: reg}
		return nil
	})
	if err != nil {
		return RegisterResult{}, err
	}

	switch result.Outcome {
	case OutcomeConfirmed:
		s.notifyConfirmation(ctx, result.Registration, result.Tickets)
	case OutcomePaymentRequired:
		secret, err := s.createIntent(ctx, &result.Registration)
		if err != nil {
			return RegisterResult{}, err
		}
		result.ClientSecret = secret
	}
	return result, nil
}

// createIntent asks the provider for a payment intent and records it. The
// registration row already exists; if the provider is down the request
// fails but the pending row is safe to retry or expire.
func (s *RegistrationService) createIntent(ctx context.Context, reg *domain.Registration) (string, error) {
	intent, err := s.provider.CreateIntent(ctx, reg.TotalAmount, s.currency, map[string]string{
		"registration_id": reg.ID,
		"event_id":        reg.EventID,
	})
	if err != nil {
		s.logger.Printf("create intent for registration %s: %v", reg.ID, err)
		return "", domain.ErrProviderUnavailable
	}

	now := s.clock.Now()
	p := domain.Payment{
		ID:             newID(),
		RegistrationID: reg.ID,
		IntentID:       intent.ID,
		Amount:         reg.TotalAmount,
		Status:         domain.PaymentStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return "", err
	}
	return intent.ClientSecret, nil
}

func (s *RegistrationService) notifyConfirmation(ctx context.Context, reg domain.Registration, tickets []domain.Ticket) {
	event, err := s.store.GetEventForUpdate(ctx, reg.EventID)
	if err != nil {
		s.logger.Printf("load event for confirmation mail: %v", err)
		return
	}
	subject, text, htmlBody := confirmationEmail(reg, event, tickets)
	if err := s.sender.Send(ctx, reg.Email, subject, text, htmlBody); err != nil {
		s.logger.Printf("send confirmation to %s: %v", reg.Email, err)
	}
}

func validateRegisterInput(in *RegisterInput) error {
	if in.EventID == "" {
		return domain.ValidationError{Field: "event_id", Reason: "required"}
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return domain.ValidationError{Field: "name", Reason: "required"}
	}
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if !isValidEmail(in.Email) {
		return domain.ValidationError{Field: "email", Reason: "not a valid email address"}
	}
	if in.Seats < 1 || in.Seats > domain.MaxSeatsPerRegistration {
		return domain.ValidationError{Field: "seats", Reason: "must be between 1 and 4"}
	}
	return nil
}

// isValidEmail does a basic structural check; real validation is the mail
// relay's problem.
func isValidEmail(email string) bool {
	local, host, ok := strings.Cut(email, "@")
	if !ok {
		return false
	}
	return local != "" && strings.Contains(host, ".")
}
