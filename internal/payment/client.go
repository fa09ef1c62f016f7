// Package payment talks to the MercadoPago REST API.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.mercadopago.com"
	maxErrorBody   = 64 << 10
)

// Config configures a Client.
type Config struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
}

// Client is a thin MercadoPago client. It never retries; the gateway
// redelivers webhooks on its own schedule.
type Client struct {
	accessToken string
	baseURL     string
	client      *http.Client
	logger      zerolog.Logger
}

// NewClient creates a gateway client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		accessToken: cfg.AccessToken,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: timeout},
		logger:      logger.With().Str("component", "payment_gateway").Logger(),
	}
}

// CreatePreference creates a hosted checkout session.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, nil, &pref); err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}
	c.logger.Debug().
		Str("preference_id", pref.ID).
		Str("external_reference", req.ExternalReference).
		Msg("preference created")
	return &pref, nil
}

// GetPayment fetches a payment by id.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, nil, &p); err != nil {
		return nil, fmt.Errorf("get payment %s: %w", id, err)
	}
	return &p, nil
}

// CreatePayment charges a card token. idempotencyKey defaults to a fresh uuid.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest, idempotencyKey string) (*Payment, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	headers := http.Header{}
	headers.Set("X-Idempotency-Key", idempotencyKey)

	var p Payment
	if err := c.do(ctx, http.MethodPost, "/v1/payments", req, headers, &p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	c.logger.Info().
		Int64("payment_id", p.ID).
		Str("status", p.Status).
		Str("external_reference", p.ExternalReference).
		Msg("payment created")
	return &p, nil
}

type apiErrorBody struct {
	Message string  `json:"message"`
	Error   string  `json:"error"`
	Cause   []Cause `json:"cause"`
}

func (c *Client) do(ctx context.Context, method, path string, in any, headers http.Header, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb apiErrorBody
		if json.Unmarshal(raw, &eb) == nil {
			apiErr.Message = eb.Message
			if apiErr.Message == "" {
				apiErr.Message = eb.Error
			}
			apiErr.Causes = eb.Cause
		}
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("method", method).
			Str("path", path).
			Bytes("body", raw).
			Msg("payment gateway error")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
