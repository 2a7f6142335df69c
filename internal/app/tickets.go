package app

import (
	"fmt"
	"time"

	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/garyaschafer/PathRegister/internal/ticketcode"
)

// mintTickets produces one ticket per seat for a registration. Codes come
// from the generator; the QR payload is the derived verification URL.
func mintTickets(gen *ticketcode.Generator, registrationID string, seats int, now time.Time) ([]domain.Ticket, error) {
	tickets := make([]domain.Ticket, 0, seats)
	for i := 0; i < seats; i++ {
		code, err := gen.Code()
		if err != nil {
			return nil, fmt.Errorf("generate ticket code: %w", err)
		}
		tickets = append(tickets, domain.Ticket{
			ID:             newID(),
			RegistrationID: registrationID,
			TicketCode:     code,
			QRData:         gen.VerificationURL(code),
			CheckedIn:      false,
			CreatedAt:      now,
		})
	}
	return tickets, nil
}
