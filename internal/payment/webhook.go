package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook event types delivered by the provider.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.failed"
	EventRefundCompleted = "refund.completed"
)

var (
	ErrBadSignature     = errors.New("webhook signature mismatch")
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
)

// Event is one asynchronous provider notification, keyed by intent id.
type Event struct {
	Type     string `json:"type"`
	IntentID string `json:"intent_id"`
}

// signatureTolerance bounds how old a signed webhook may be before it is
// rejected as a possible replay.
const signatureTolerance = 5 * time.Minute

// ParseEvent verifies the signature header (format "t=<unix>,v1=<hex>")
// against the raw body and decodes the event. The signed message is
// "<timestamp>.<body>" with an HMAC-SHA256 keyed by the shared secret.
func ParseEvent(body []byte, sigHeader, secret string, now time.Time) (Event, error) {
	ts, sig, err := splitSignatureHeader(sigHeader)
	if err != nil {
		return Event{}, err
	}

	sent := time.Unix(ts, 0)
	age := now.Sub(sent)
	if age > signatureTolerance || age < -signatureTolerance {
		return Event{}, ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(sig)
	if err != nil || !hmac.Equal(expected, provided) {
		return Event{}, ErrBadSignature
	}

	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return Event{}, ErrMalformedPayload
	}
	if evt.Type == "" || evt.IntentID == "" {
		return Event{}, ErrMalformedPayload
	}
	return evt, nil
}

// Sign produces a signature header for body at time now. Used by tests and
// by the local provider simulator.
func Sign(body []byte, secret string, now time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", now.Unix())
	mac.Write(body)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func splitSignatureHeader(header string) (int64, string, error) {
	var tsPart, sigPart string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			tsPart = value
		case "v1":
			sigPart = value
		}
	}
	if tsPart == "" || sigPart == "" {
		return 0, "", ErrBadSignature
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return 0, "", ErrBadSignature
	}
	return ts, sigPart, nil
}
