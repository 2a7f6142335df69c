package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/garyaschafer/PathRegister/internal/app"
)

// TicketGate is the minimal interface needed by the door endpoints.
type TicketGate interface {
	Verify(ctx context.Context, code string) (app.TicketDetails, error)
	CheckIn(ctx context.Context, code string) (app.TicketDetails, error)
}

type ticketDetailsResponse struct {
	Ticket       ticketResponse       `json:"ticket"`
	Registration registrationResponse `json:"registration"`
	Event        eventResponse        `json:"event"`
}

func toTicketDetailsResponse(d app.TicketDetails) ticketDetailsResponse {
	return ticketDetailsResponse{
		Ticket:       toTicketResponse(d.Ticket),
		Registration: toRegistrationResponse(d.Registration),
		Event:        toEventResponse(d.Event),
	}
}

// HandleVerifyTicket looks a ticket up without consuming it.
func HandleVerifyTicket(svc TicketGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		details, err := svc.Verify(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTicketDetailsResponse(details))
	}
}

// HandleCheckIn consumes a ticket code at the door.
func HandleCheckIn(svc TicketGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		details, err := svc.CheckIn(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTicketDetailsResponse(details))
	}
}
