package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/garyaschafer/PathRegister/internal/domain"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeValidation           = "validation_failed"
	codeInvalidID            = "invalid_id"
	codeEventNotFound        = "event_not_found"
	codeEventNotPublished    = "event_not_published"
	codeRegistrationNotFound = "registration_not_found"
	codeTicketNotFound       = "ticket_not_found"
	codePaymentNotFound      = "payment_not_found"
	codeSoldOut              = "sold_out"
	codeAlreadyCheckedIn     = "already_checked_in"
	codeConflictingState     = "conflicting_state"
	codeBadSignature         = "bad_signature"
	codeProviderUnavailable  = "provider_unavailable"
	codeUnauthorized         = "unauthorized"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeDomainError maps domain sentinels and validation errors onto the
// JSON envelope. Anything unmapped is a 500 with no detail leaked.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve domain.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, codeValidation, ve.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusNotFound, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrEventNotPublished):
		writeError(w, http.StatusNotFound, codeEventNotPublished, err.Error())
	case errors.Is(err, domain.ErrRegistrationNotFound):
		writeError(w, http.StatusNotFound, codeRegistrationNotFound, err.Error())
	case errors.Is(err, domain.ErrTicketNotFound):
		writeError(w, http.StatusNotFound, codeTicketNotFound, err.Error())
	case errors.Is(err, domain.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, codePaymentNotFound, err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, codeSoldOut, "event is sold out")
	case errors.Is(err, domain.ErrAlreadyCheckedIn):
		writeError(w, http.StatusConflict, codeAlreadyCheckedIn, err.Error())
	case errors.Is(err, domain.ErrConflictingState):
		writeError(w, http.StatusConflict, codeConflictingState, err.Error())
	case errors.Is(err, domain.ErrInvalidSeats):
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, domain.ErrProviderUnavailable):
		writeError(w, http.StatusBadGateway, codeProviderUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
