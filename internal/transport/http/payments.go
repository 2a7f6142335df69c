package http

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/garyaschafer/PathRegister/internal/clock"
	"github.com/garyaschafer/PathRegister/internal/domain"
	"github.com/garyaschafer/PathRegister/internal/payment"
)

// maxWebhookBody bounds how much of a webhook request we are willing to
// read before verifying anything.
const maxWebhookBody = 1 << 20

// Reconciler is the minimal interface needed by payment endpoints.
type Reconciler interface {
	HandleEvent(ctx context.Context, evt payment.Event) error
	CompletePendingRegistration(ctx context.Context, registrationID string) (domain.Registration, error)
}

// HandleWebhook receives signed provider notifications. The signature is
// checked before the payload is trusted; stale or unsigned requests get a
// 400 so the provider knows not to keep retrying with the same payload.
func HandleWebhook(svc Reconciler, secret string, clk clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "could not read body")
			return
		}

		evt, err := payment.ParseEvent(body, r.Header.Get("X-Signature"), secret, clk.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadSignature, err.Error())
			return
		}

		if err := svc.HandleEvent(r.Context(), evt); err != nil {
			// A 500 makes the provider redeliver later.
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"received": evt.IntentID})
	}
}

// HandleCompleteRegistration reconciles a pending paid registration on the
// client's return from checkout.
func HandleCompleteRegistration(svc Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reg, err := svc.CompletePendingRegistration(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRegistrationResponse(reg))
	}
}
