package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrEventNotPublished    = errors.New("event not published")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrAlreadyCheckedIn     = errors.New("ticket already checked in")
	ErrInvalidSeats         = errors.New("invalid seat count")
	ErrInvalidID            = errors.New("invalid id")
	ErrConflictingState     = errors.New("conflicting state")
	ErrProviderUnavailable  = errors.New("payment provider unavailable")
)

// ValidationError reports a malformed input field. It is returned before
// any mutation takes place.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a field validation error.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
