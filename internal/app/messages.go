package app

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/garyaschafer/PathRegister/internal/domain"
)

const timeLayout = "Mon, 2 Jan 2006 15:04 MST"

func confirmationEmail(reg domain.Registration, event domain.Event, tickets []domain.Ticket) (subject, text, htmlBody string) {
	subject = fmt.Sprintf("You're registered: %s", event.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", reg.Name)
	fmt.Fprintf(&b, "Your registration for %s is confirmed.\n", event.Title)
	fmt.Fprintf(&b, "When: %s\n", event.StartsAt.Format(timeLayout))
	fmt.Fprintf(&b, "Seats: %d\n\n", reg.Seats)
	b.WriteString("Your tickets:\n")
	for _, t := range tickets {
		fmt.Fprintf(&b, "  %s\n", t.TicketCode)
	}
	b.WriteString("\nShow a ticket code (or its QR) at the door.\n")
	text = b.String()

	var h strings.Builder
	fmt.Fprintf(&h, "<p>Hi %s,</p>", html.EscapeString(reg.Name))
	fmt.Fprintf(&h, "<p>Your registration for <strong>%s</strong> is confirmed.</p>", html.EscapeString(event.Title))
	fmt.Fprintf(&h, "<p>When: %s<br>Seats: %d</p>", event.StartsAt.Format(timeLayout), reg.Seats)
	h.WriteString("<p>Your tickets:</p><ul>")
	for _, t := range tickets {
		fmt.Fprintf(&h, "<li><code>%s</code></li>", t.TicketCode)
	}
	h.WriteString("</ul>")
	htmlBody = h.String()

	return subject, text, htmlBody
}

func reminderEmail(c domain.ReminderCandidate) (subject, text string) {
	subject = fmt.Sprintf("Reminder: %s is tomorrow", c.EventTitle)
	text = fmt.Sprintf(
		"Hi %s,\n\nA quick reminder that %s starts at %s.\n\nSee you there!\n",
		c.Name, c.EventTitle, c.EventStartsAt.Format(timeLayout),
	)
	return subject, text
}

func soldOutRefundEmail(reg domain.Registration, event domain.Event) (subject, text string) {
	subject = fmt.Sprintf("Refund issued: %s sold out", event.Title)
	text = fmt.Sprintf(
		"Hi %s,\n\nUnfortunately %s sold out before your payment completed. "+
			"Your payment of %s has been refunded in full.\n",
		reg.Name, event.Title, reg.TotalAmount.StringFixed(2),
	)
	return subject, text
}

func cancellationEmail(reg domain.Registration, event domain.Event, refunded bool) (subject, text string) {
	subject = fmt.Sprintf("Registration cancelled: %s", event.Title)
	var refundNote string
	if refunded {
		refundNote = fmt.Sprintf(" A refund of %s is on its way.", reg.TotalAmount.StringFixed(2))
	}
	text = fmt.Sprintf(
		"Hi %s,\n\nYour registration for %s on %s has been cancelled.%s\n",
		reg.Name, event.Title, event.StartsAt.Format(timeLayout), refundNote,
	)
	return subject, text
}

func formatWindow(from, to time.Time) string {
	return fmt.Sprintf("[%s, %s)", from.Format(time.RFC3339), to.Format(time.RFC3339))
}
