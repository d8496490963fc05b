// Package gateway talks to the hosted card processor. Amounts cross this boundary
// in minor units (cents); everything inside the service works in whole currency.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/config"
)

// StatusSucceeded is the only charge status treated as settled.
const StatusSucceeded = "succeeded"

// ErrDisabled is returned by a client built without a gateway URL.
var ErrDisabled = errors.New("card payments are not configured")

// ChargeRequest describes a card charge in whole currency units.
type ChargeRequest struct {
	Amount         float64
	Currency       string
	Source         string
	Description    string
	IdempotencyKey string
}

// Charge is the processor's answer to a charge request.
type Charge struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// DeclinedError carries the processor's reason for refusing a charge.
type DeclinedError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *DeclinedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("charge declined (%d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("charge declined (%d %s)", e.StatusCode, e.Status)
}

type chargePayload struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Source         string `json:"source"`
	Description    string `json:"description,omitempty"`
	IdempotencyKey string `json:"idempotency_key"`
}

type errorPayload struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client posts charges to {baseURL}/v1/charges.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a gateway client from configuration.
func NewClient(cfg config.GatewayConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Enabled reports whether a processor URL is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// ToMinorUnits converts a currency amount into cents, rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Charge submits a charge and returns it only when the processor reports success.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key required")
	}

	body, err := json.Marshal(chargePayload{
		Amount:         ToMinorUnits(req.Amount),
		Currency:       strings.ToUpper(req.Currency),
		Source:         req.Source,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, fmt.Errorf("encode charge: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post charge: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read charge response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload errorPayload
		_ = json.Unmarshal(raw, &payload)
		c.logger.Warn("gateway rejected charge", zap.Int("status", resp.StatusCode), zap.String("idempotency_key", req.IdempotencyKey))
		return nil, &DeclinedError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode), Message: payload.Error.Message}
	}

	var charge Charge
	if err := json.Unmarshal(raw, &charge); err != nil {
		return nil, fmt.Errorf("decode charge response: %w", err)
	}
	if charge.Status != StatusSucceeded {
		return nil, &DeclinedError{StatusCode: resp.StatusCode, Status: charge.Status}
	}
	return &charge, nil
}
