package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/garyaschafer/PathRegister/internal/app"
	"github.com/garyaschafer/PathRegister/internal/domain"
)

// EventLister is the minimal interface needed for public event browsing.
type EventLister interface {
	ListEvents(ctx context.Context, publishedOnly bool) ([]domain.Event, error)
	GetEvent(ctx context.Context, id string) (domain.Event, error)
}

// Registrar is the minimal interface needed to register for an event.
type Registrar interface {
	Register(ctx context.Context, in app.RegisterInput) (app.RegisterResult, error)
}

// HandleListEvents returns published events, soonest first.
func HandleListEvents(svc EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := svc.ListEvents(r.Context(), true)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]eventResponse, 0, len(events))
		for _, e := range events {
			resp = append(resp, toEventResponse(e))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleGetEvent returns one published event.
func HandleGetEvent(svc EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if event.Status != domain.EventStatusPublished {
			writeError(w, http.StatusNotFound, codeEventNotFound, domain.ErrEventNotFound.Error())
			return
		}
		writeJSON(w, http.StatusOK, toEventResponse(event))
	}
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Seats int    `json:"seats"`
}

type registerResponse struct {
	Outcome      string               `json:"outcome"`
	Registration registrationResponse `json:"registration"`
	Tickets      []ticketResponse     `json:"tickets,omitempty"`
	ClientSecret string               `json:"client_secret,omitempty"`
}

// HandleRegister runs the admission decision for one attendee request.
func HandleRegister(svc Registrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		result, err := svc.Register(r.Context(), app.RegisterInput{
			EventID: chi.URLParam(r, "id"),
			Name:    req.Name,
			Email:   req.Email,
			Seats:   req.Seats,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, registerResponse{
			Outcome:      string(result.Outcome),
			Registration: toRegistrationResponse(result.Registration),
			Tickets:      toTicketResponses(result.Tickets),
			ClientSecret: result.ClientSecret,
		})
	}
}
