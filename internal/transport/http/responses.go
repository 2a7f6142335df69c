package http

import (
	"time"

	"github.com/garyaschafer/PathRegister/internal/domain"
)

type eventResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Capacity      int       `json:"capacity"`
	Remaining     int       `json:"remaining"`
	Price         string    `json:"price"`
	AllowWaitlist bool      `json:"allow_waitlist"`
	Status        string    `json:"status"`
}

func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		StartsAt:      e.StartsAt,
		EndsAt:        e.EndsAt,
		Capacity:      e.Capacity,
		Remaining:     e.Remaining,
		Price:         e.Price.StringFixed(2),
		AllowWaitlist: e.AllowWaitlist,
		Status:        string(e.Status),
	}
}

type registrationResponse struct {
	ID            string `json:"id"`
	EventID       string `json:"event_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Seats         int    `json:"seats"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	TotalAmount   string `json:"total_amount"`
}

func toRegistrationResponse(reg domain.Registration) registrationResponse {
	return registrationResponse{
		ID:            reg.ID,
		EventID:       reg.EventID,
		Name:          reg.Name,
		Email:         reg.Email,
		Seats:         reg.Seats,
		Status:        string(reg.Status),
		PaymentStatus: string(reg.PaymentStatus),
		TotalAmount:   reg.TotalAmount.StringFixed(2),
	}
}

type ticketResponse struct {
	TicketCode  string     `json:"ticket_code"`
	QRData      string     `json:"qr_data"`
	CheckedIn   bool       `json:"checked_in"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
}

func toTicketResponse(t domain.Ticket) ticketResponse {
	return ticketResponse{
		TicketCode:  t.TicketCode,
		QRData:      t.QRData,
		CheckedIn:   t.CheckedIn,
		CheckedInAt: t.CheckedInAt,
	}
}

func toTicketResponses(tickets []domain.Ticket) []ticketResponse {
	resp := make([]ticketResponse, 0, len(tickets))
	for _, t := range tickets {
		resp = append(resp, toTicketResponse(t))
	}
	return resp
}
