package domain

import "time"

// ReminderCandidate is a confirmed, paid registration whose event starts
// inside the reminder window and that has not been reminded yet.
type ReminderCandidate struct {
	RegistrationID string
	Name           string
	Email          string
	EventTitle     string
	EventStartsAt  time.Time
}
