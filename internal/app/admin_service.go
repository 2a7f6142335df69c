package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyaschafer/PathRegister/internal/clock"
	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/garyaschafer/PathRegister/internal/notify"
	"github.com/garyaschafer/PathRegister/internal/payment"
)

// AdminStore is the persistence needed by organizer operations.
type AdminStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateEvent(ctx context.Context, event domain.Event) error
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	ListEvents(ctx context.Context, publishedOnly bool) ([]domain.Event, error)
	UpdateEvent(ctx context.Context, event domain.Event) error
	SetEventStatus(ctx context.Context, id string, status domain.EventStatus) error
	DeleteEvent(ctx context.Context, id string) error
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]domain.Registration, error)
	GetRegistrationForUpdate(ctx context.Context, id string) (domain.Registration, error)
	UpdateRegistrationState(ctx context.Context, id string, status domain.RegistrationStatus, payState domain.PaymentState) error
	GetPrimaryPaymentForUpdate(ctx context.Context, registrationID string) (domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus, at time.Time) error
	Stats(ctx context.Context) (domain.Stats, error)
}

// AdminService implements the organizer surface: event lifecycle,
// registration listings, cancellations with refunds, and dashboard stats.
type AdminService struct {
	store    AdminStore
	ledger   Ledger
	provider payment.Provider
	sender   notify.Sender
	clock    clock.Clock
	logger   *log.Logger
}

func NewAdminService(
	store AdminStore,
	ledger Ledger,
	provider payment.Provider,
	sender notify.Sender,
	clk clock.Clock,
	logger *log.Logger,
) *AdminService {
	if logger == nil {
		logger = log.Default()
	}
	return &AdminService{
		store:    store,
		ledger:   ledger,
		provider: provider,
		sender:   sender,
		clock:    clk,
		logger:   logger,
	}
}

type EventInput struct {
	Title         string
	Description   string
	StartsAt      time.Time
	EndsAt        time.Time
	Capacity      int
	Price         decimal.Decimal
	AllowWaitlist bool
}

func validateEventInput(in *EventInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.ValidationError{Field: "title", Reason: "required"}
	}
	if in.Capacity < 1 {
		return domain.ValidationError{Field: "capacity", Reason: "must be at least 1"}
	}
	if in.Price.IsNegative() {
		return domain.ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if in.StartsAt.IsZero() || in.EndsAt.IsZero() {
		return domain.ValidationError{Field: "starts_at", Reason: "start and end times are required"}
	}
	if !in.StartsAt.Before(in.EndsAt) {
		return domain.ValidationError{Field: "ends_at", Reason: "must be after starts_at"}
	}
	return nil
}

// CreateEvent makes a new draft event with its full capacity available.
func (s *AdminService) CreateEvent(ctx context.Context, in EventInput) (domain.Event, error) {
	if err := validateEventInput(&in); err != nil {
		return domain.Event{}, err
	}
	event := domain.Event{
		ID:            newID(),
		Title:         in.Title,
		Description:   in.Description,
		StartsAt:      in.StartsAt,
		EndsAt:        in.EndsAt,
		Capacity:      in.Capacity,
		Remaining:     in.Capacity,
		Price:         in.Price,
		AllowWaitlist: in.AllowWaitlist,
		Status:        domain.EventStatusDraft,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *AdminService) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return s.store.GetEvent(ctx, id)
}

func (s *AdminService) ListEvents(ctx context.Context, publishedOnly bool) ([]domain.Event, error) {
	return s.store.ListEvents(ctx, publishedOnly)
}

// UpdateEvent applies edits. Shrinking capacity never cancels existing
// confirmed registrations; remaining is adjusted by the capacity delta and
// floored at zero in the store.
func (s *AdminService) UpdateEvent(ctx context.Context, id string, in EventInput) (domain.Event, error) {
	if err := validateEventInput(&in); err != nil {
		return domain.Event{}, err
	}
	event := domain.Event{
		ID:            id,
		Title:         in.Title,
		Description:   in.Description,
		StartsAt:      in.StartsAt,
		EndsAt:        in.EndsAt,
		Capacity:      in.Capacity,
		Price:         in.Price,
		AllowWaitlist: in.AllowWaitlist,
	}
	if err := s.store.UpdateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return s.store.GetEvent(ctx, id)
}

func (s *AdminService) PublishEvent(ctx context.Context, id string) (domain.Event, error) {
	if err := s.store.SetEventStatus(ctx, id, domain.EventStatusPublished); err != nil {
		return domain.Event{}, err
	}
	return s.store.GetEvent(ctx, id)
}

func (s *AdminService) UnpublishEvent(ctx context.Context, id string) (domain.Event, error) {
	if err := s.store.SetEventStatus(ctx, id, domain.EventStatusDraft); err != nil {
		return domain.Event{}, err
	}
	return s.store.GetEvent(ctx, id)
}

func (s *AdminService) DeleteEvent(ctx context.Context, id string) error {
	return s.store.DeleteEvent(ctx, id)
}

// CopyEvent duplicates an event as a fresh draft with full capacity and no
// registrations, for recurring events an organizer runs again.
func (s *AdminService) CopyEvent(ctx context.Context, id string) (domain.Event, error) {
	src, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	dup := domain.Event{
		ID:            newID(),
		Title:         "Copy of " + src.Title,
		Description:   src.Description,
		StartsAt:      src.StartsAt,
		EndsAt:        src.EndsAt,
		Capacity:      src.Capacity,
		Remaining:     src.Capacity,
		Price:         src.Price,
		AllowWaitlist: src.AllowWaitlist,
		Status:        domain.EventStatusDraft,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.store.CreateEvent(ctx, dup); err != nil {
		return domain.Event{}, err
	}
	return dup, nil
}

func (s *AdminService) ListRegistrations(ctx context.Context, eventID string) ([]domain.Registration, error) {
	return s.store.ListRegistrationsByEvent(ctx, eventID)
}

func (s *AdminService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.store.Stats(ctx)
}

// CancelRegistration closes out a registration. Confirmed, fully paid
// seats go back to the ledger; succeeded payments are refunded through the
// provider after commit. Already cancelled registrations are a no-op
// conflict.
func (s *AdminService) CancelRegistration(ctx context.Context, registrationID string) error {
	now := s.clock.Now()

	var (
		reg      domain.Registration
		event    domain.Event
		refund   bool
		intentID string
	)
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		reg, err = s.store.GetRegistrationForUpdate(txCtx, registrationID)
		if err != nil {
			return err
		}
		if reg.Status == domain.RegistrationStatusCancelled {
			return domain.ErrConflictingState
		}
		event, err = s.store.GetEvent(txCtx, reg.EventID)
		if err != nil {
			return err
		}

		holdsSeats := reg.Status == domain.RegistrationStatusConfirmed && reg.PaymentStatus == domain.PaymentStateCompleted
		if holdsSeats {
			if err := s.ledger.Release(txCtx, reg.EventID, reg.Seats); err != nil {
				return err
			}
		}

		payState := domain.PaymentStateFailed
		if reg.TotalAmount.IsZero() {
			payState = domain.PaymentStateCompleted
		}

		p, err := s.store.GetPrimaryPaymentForUpdate(txCtx, reg.ID)
		switch {
		case err == nil:
			if p.Status == domain.PaymentStatusSucceeded {
				refund = true
				intentID = p.IntentID
				payState = domain.PaymentStateRefunded
			}
			if err := s.store.UpdatePaymentStatus(txCtx, p.ID, domain.PaymentStatusCancelled, now); err != nil {
				return err
			}
		case errors.Is(err, domain.ErrPaymentNotFound):
			// Free registration, nothing to settle.
		default:
			return err
		}

		return s.store.UpdateRegistrationState(txCtx, reg.ID, domain.RegistrationStatusCancelled, payState)
	})
	if err != nil {
		return err
	}

	if refund {
		if err := s.provider.Refund(ctx, intentID, reg.TotalAmount); err != nil {
			s.logger.Printf("refund intent %s for cancelled registration %s: %v", intentID, reg.ID, err)
		}
	}
	subject, text := cancellationEmail(reg, event, refund)
	if err := s.sender.Send(ctx, reg.Email, subject, text, ""); err != nil {
		s.logger.Printf("send cancellation to %s: %v", reg.Email, err)
	}
	return nil
}
