package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/garyaschafer/PathRegister/internal/app"
	"github.com/garyaschafer/PathRegister/internal/domain"
)

// AdminService is the organizer surface mounted behind the admin token.
type AdminService interface {
	CreateEvent(ctx context.Context, in app.EventInput) (domain.Event, error)
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	ListEvents(ctx context.Context, publishedOnly bool) ([]domain.Event, error)
	UpdateEvent(ctx context.Context, id string, in app.EventInput) (domain.Event, error)
	PublishEvent(ctx context.Context, id string) (domain.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	CopyEvent(ctx context.Context, id string) (domain.Event, error)
	ListRegistrations(ctx context.Context, eventID string) ([]domain.Registration, error)
	CancelRegistration(ctx context.Context, registrationID string) error
	Stats(ctx context.Context) (domain.Stats, error)
}

type adminEventRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	Capacity      int    `json:"capacity"`
	Price         string `json:"price"`
	AllowWaitlist bool   `json:"allow_waitlist"`
}

func (r adminEventRequest) toInput() (app.EventInput, error) {
	var in app.EventInput
	in.Title = r.Title
	in.Description = r.Description
	in.Capacity = r.Capacity
	in.AllowWaitlist = r.AllowWaitlist

	if r.StartsAt != "" {
		parsed, err := time.Parse(time.RFC3339, r.StartsAt)
		if err != nil {
			return in, domain.ValidationError{Field: "starts_at", Reason: "must be RFC 3339"}
		}
		in.StartsAt = parsed
	}
	if r.EndsAt != "" {
		parsed, err := time.Parse(time.RFC3339, r.EndsAt)
		if err != nil {
			return in, domain.ValidationError{Field: "ends_at", Reason: "must be RFC 3339"}
		}
		in.EndsAt = parsed
	}
	if r.Price == "" {
		in.Price = decimal.Zero
	} else {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return in, domain.ValidationError{Field: "price", Reason: "must be a decimal amount"}
		}
		in.Price = price
	}
	return in, nil
}

func decodeAdminEventRequest(w http.ResponseWriter, r *http.Request) (app.EventInput, bool) {
	var req adminEventRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return app.EventInput{}, false
	}
	in, err := req.toInput()
	if err != nil {
		writeDomainError(w, err)
		return app.EventInput{}, false
	}
	return in, true
}

func HandleAdminCreateEvent(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeAdminEventRequest(w, r)
		if !ok {
			return
		}
		event, err := svc.CreateEvent(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toEventResponse(event))
	}
}

func HandleAdminListEvents(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := svc.ListEvents(r.Context(), false)
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

func HandleAdminGetEvent(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toEventResponse(event))
	}
}

func HandleAdminUpdateEvent(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := decodeAdminEventRequest(w, r)
		if !ok {
			return
		}
		event, err := svc.UpdateEvent(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toEventResponse(event))
	}
}

func HandleAdminPublishEvent(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := svc.PublishEvent(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toEventResponse(event))
	}
}

func HandleAdminCopyEvent(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := svc.CopyEvent(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toEventResponse(event))
	}
}

func HandleAdminDeleteEvent(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleAdminListRegistrations(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regs, err := svc.ListRegistrations(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]registrationResponse, 0, len(regs))
		for _, reg := range regs {
			resp = append(resp, toRegistrationResponse(reg))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func HandleAdminCancelRegistration(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CancelRegistration(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type statsResponse struct {
	TotalEvents        int    `json:"total_events"`
	TotalRegistrations int    `json:"total_registrations"`
	Revenue            string `json:"revenue"`
}

func HandleAdminStats(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statsResponse{
			TotalEvents:        stats.TotalEvents,
			TotalRegistrations: stats.TotalRegistrations,
			Revenue:            stats.Revenue.StringFixed(2),
		})
	}
}
