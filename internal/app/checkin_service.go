package app

import (
	"context"
	"strings"
	"time"

	"github.com/garyaschafer/PathRegister/internal/clock"
	"github.com/garyaschafer/PathRegister/internal/domain"
)

// CheckinStore is the persistence needed by the door gate.
type CheckinStore interface {
	GetTicketByCode(ctx context.Context, code string) (domain.Ticket, error)
	GetRegistration(ctx context.Context, id string) (domain.Registration, error)
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	CheckInTicket(ctx context.Context, code string, at time.Time) (domain.Ticket, error)
}

// CheckinService verifies ticket codes and performs the one-way check-in
// transition at the door.
type CheckinService struct {
	store CheckinStore
	clock clock.Clock
}

func NewCheckinService(store CheckinStore, clk clock.Clock) *CheckinService {
	return &CheckinService{store: store, clock: clk}
}

// TicketDetails is what a door scanner needs to admit or turn away the
// holder of one code.
type TicketDetails struct {
	Ticket       domain.Ticket
	Registration domain.Registration
	Event        domain.Event
}

// Verify looks a code up without changing anything. Cancelled
// registrations resolve to ErrConflictingState so a scanner shows a clear
// rejection instead of a valid-looking ticket.
func (s *CheckinService) Verify(ctx context.Context, code string) (TicketDetails, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return TicketDetails{}, domain.ErrTicketNotFound
	}

	ticket, err := s.store.GetTicketByCode(ctx, code)
	if err != nil {
		return TicketDetails{}, err
	}
	details, err := s.resolve(ctx, ticket)
	if err != nil {
		return TicketDetails{}, err
	}
	if details.Registration.Status == domain.RegistrationStatusCancelled {
		return TicketDetails{}, domain.ErrConflictingState
	}
	return details, nil
}

// CheckIn consumes a code. The state guard lives in the store update, so
// two scanners racing on the same code produce exactly one admission.
func (s *CheckinService) CheckIn(ctx context.Context, code string) (TicketDetails, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return TicketDetails{}, domain.ErrTicketNotFound
	}

	// Reject cancelled registrations before consuming the code.
	ticket, err := s.store.GetTicketByCode(ctx, code)
	if err != nil {
		return TicketDetails{}, err
	}
	reg, err := s.store.GetRegistration(ctx, ticket.RegistrationID)
	if err != nil {
		return TicketDetails{}, err
	}
	if reg.Status == domain.RegistrationStatusCancelled {
		return TicketDetails{}, domain.ErrConflictingState
	}

	updated, err := s.store.CheckInTicket(ctx, code, s.clock.Now())
	if err != nil {
		return TicketDetails{}, err
	}
	return s.resolve(ctx, updated)
}

func (s *CheckinService) resolve(ctx context.Context, ticket domain.Ticket) (TicketDetails, error) {
	reg, err := s.store.GetRegistration(ctx, ticket.RegistrationID)
	if err != nil {
		return TicketDetails{}, err
	}
	event, err := s.store.GetEvent(ctx, reg.EventID)
	if err != nil {
		return TicketDetails{}, err
	}
	return TicketDetails{Ticket: ticket, Registration: reg, Event: event}, nil
}
