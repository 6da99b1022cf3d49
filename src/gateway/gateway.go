package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/services"
)

// Client is an HTTP implementation of services.PaymentCollaborator. The
// remote gateway deduplicates on the idempotency key, which is what makes
// retrying an ambiguous capture safe.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a payment gateway client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type captureRequest struct {
	IdempotencyKey   string `json:"idempotency_key"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	PaymentMethodRef string `json:"payment_method_ref"`
}

type refundRequest struct {
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

type outcomeResponse struct {
	Status        string `json:"status"` // "succeeded" or "declined"
	Reference     string `json:"reference"`
	DeclineReason string `json:"decline_reason"`
}

// Capture submits a capture to the gateway. Transport errors and 5xx
// responses are ambiguous and returned as errors; the caller decides
// whether to reconcile later.
func (c *Client) Capture(ctx context.Context, key string, amount decimal.Decimal, currency string, paymentMethodRef string) (*services.PaymentOutcome, error) {
	body := captureRequest{
		IdempotencyKey:   key,
		Amount:           amount.String(),
		Currency:         currency,
		PaymentMethodRef: paymentMethodRef,
	}

	resp, err := c.post(ctx, "/v1/captures", body)
	if err != nil {
		return nil, err
	}
	return toOutcome(resp), nil
}

// QueryByKey asks the gateway what happened to a prior capture attempt.
// Returns a nil outcome when the gateway has no record of the key.
func (c *Client) QueryByKey(ctx context.Context, key string) (*services.PaymentOutcome, error) {
	endpoint := c.baseURL + "/v1/captures/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway query failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway query returned status %d", httpResp.StatusCode)
	}

	var resp outcomeResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return toOutcome(&resp), nil
}

// Refund submits a refund against a settled gateway reference.
func (c *Client) Refund(ctx context.Context, reference string, amount decimal.Decimal, currency string) error {
	body := refundRequest{
		Reference: reference,
		Amount:    amount.String(),
		Currency:  currency,
	}

	_, err := c.post(ctx, "/v1/refunds", body)
	return err
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*outcomeResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("gateway returned status %d", httpResp.StatusCode)
	}

	var resp outcomeResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return &resp, nil
}

func toOutcome(resp *outcomeResponse) *services.PaymentOutcome {
	return &services.PaymentOutcome{
		Succeeded:     resp.Status == "succeeded",
		Reference:     resp.Reference,
		DeclineReason: resp.DeclineReason,
	}
}
