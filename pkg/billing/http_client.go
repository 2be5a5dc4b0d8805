package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const requestTimeout = 15 * time.Second

// HTTPClient talks to the billing provider's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  slog.With("module", "billing_client"),
	}
}

func (c *HTTPClient) CheckFeatureAccess(ctx context.Context, userID, featureSlug string) (bool, error) {
	billing, err := c.GetBilling(ctx, userID)
	if err != nil {
		return false, err
	}

	return billing.HasFeature(featureSlug), nil
}

func (c *HTTPClient) GetBilling(ctx context.Context, userID string) (*Billing, error) {
	var billing Billing

	path := fmt.Sprintf("/v1/customers/%s/billing", userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &billing); err != nil {
		return nil, fmt.Errorf("failed to load billing for customer %s: %w", userID, err)
	}

	if billing.Features == nil {
		billing.Features = make(map[string]bool)
	}

	return &billing, nil
}

func (c *HTTPClient) CreateCheckoutSession(ctx context.Context, userID string, req CheckoutRequest) (*CheckoutSession, error) {
	payload := struct {
		CheckoutRequest

		CustomerExternalID string `json:"customer_external_id"`
	}{CheckoutRequest: req, CustomerExternalID: userID}

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout-sessions", payload, &session); err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if session.URL == "" {
		return nil, fmt.Errorf("checkout session for price '%s' is missing a URL", req.PriceSlug)
	}

	return &session, nil
}

func (c *HTTPClient) CreateUsageEvent(ctx context.Context, userID, usageMeterSlug string, amount int) error {
	payload := map[string]any{
		"customer_external_id": userID,
		"usage_meter_slug":     usageMeterSlug,
		"amount":               amount,
		"transaction_id":       uuid.New().String(),
	}

	if err := c.do(ctx, http.MethodPost, "/v1/usage-events", payload, nil); err != nil {
		return fmt.Errorf("failed to create usage event: %w", err)
	}

	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}

		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("billing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return fmt.Errorf("billing provider returned status %d: %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode billing response: %w", err)
	}

	return nil
}
