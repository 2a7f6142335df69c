package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPProvider talks JSON to a payment gateway over HTTP. Every call is
// bounded by the configured timeout; a down or slow gateway surfaces as
// an error instead of a hung request.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider returns a provider client rooted at baseURL.
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type intentPayload struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Status       string            `json:"status"`
	Amount       string            `json:"amount,omitempty"`
	Currency     string            `json:"currency,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (p *HTTPProvider) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (Intent, error) {
	body := intentPayload{
		Amount:   amount.StringFixed(2),
		Currency: currency,
		Metadata: metadata,
	}
	var resp intentPayload
	if err := p.do(ctx, http.MethodPost, "/v1/intents", body, &resp); err != nil {
		return Intent{}, err
	}
	return Intent{ID: resp.ID, ClientSecret: resp.ClientSecret, Status: IntentStatus(resp.Status)}, nil
}

func (p *HTTPProvider) RetrieveIntent(ctx context.Context, id string) (Intent, error) {
	var resp intentPayload
	if err := p.do(ctx, http.MethodGet, "/v1/intents/"+id, nil, &resp); err != nil {
		return Intent{}, err
	}
	return Intent{ID: resp.ID, ClientSecret: resp.ClientSecret, Status: IntentStatus(resp.Status)}, nil
}

func (p *HTTPProvider) Refund(ctx context.Context, intentID string, amount decimal.Decimal) error {
	body := map[string]string{
		"intent_id": intentID,
		"amount":    amount.StringFixed(2),
	}
	return p.do(ctx, http.MethodPost, "/v1/refunds", body, nil)
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody *bytes.Buffer
	if in != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("provider returned %d for %s %s", resp.StatusCode, method, path)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("provider rejected %s %s with %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
