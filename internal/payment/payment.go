// Package payment wraps the hosted payment provider. It creates a
// checkout session the browser is redirected to, and verifies a
// completed transaction by reference after the redirect returns.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Status values reported by Verify.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

// SessionRequest describes one payment attempt.
type SessionRequest struct {
	Email            string
	AmountMinorUnits int64
	Currency         string
	Reference        string
	Metadata         map[string]string
}

// Session is a created provider-hosted checkout. The caller must
// redirect the user's browser to AuthorizationURL; control only returns
// via a later page load carrying the reference.
type Session struct {
	AuthorizationURL string
	AccessCode       string
}

// VerifyResult is the provider's view of a transaction. Callers must
// compare amount and currency against the expected values before
// trusting a success.
type VerifyResult struct {
	Status           Status
	AmountMinorUnits int64
	Currency         string
}

// Client talks to a Paystack-style transaction API.
type Client struct {
	baseURL     string
	secretKey   string
	callbackURL string
	http        *http.Client
	logger      *zap.Logger
}

// NewClient constructs a Client. callbackURL is where the provider
// sends the browser back after checkout.
func NewClient(baseURL, secretKey, callbackURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		secretKey:   secretKey,
		callbackURL: callbackURL,
		http:        &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}
}

type initializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// CreateSession initializes a hosted checkout for the given amount.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	ctx, span := otel.Tracer("payment").Start(ctx, "payment.CreateSession")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.reference", req.Reference),
		attribute.Int64("payment.amount_minor_units", req.AmountMinorUnits),
	)

	body, err := json.Marshal(initializeRequest{
		Email:       req.Email,
		Amount:      req.AmountMinorUnits,
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: c.callbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	var out initializeResponse
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	if !out.Status || out.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("gateway rejected session: %s", out.Message)
	}

	c.logger.Info("payment session created",
		zap.String("reference", req.Reference),
		zap.Int64("amount_minor_units", req.AmountMinorUnits),
	)
	return &Session{
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
	}, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// Verify fetches the provider's final word on a transaction. Invoked
// once per return-from-payment page load; idempotent on the provider
// side.
func (c *Client) Verify(ctx context.Context, ref string) (*VerifyResult, error) {
	ctx, span := otel.Tracer("payment").Start(ctx, "payment.Verify")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", ref))

	var out verifyResponse
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+ref, nil, &out); err != nil {
		return nil, err
	}
	if !out.Status {
		return nil, fmt.Errorf("gateway rejected verification: %s", out.Message)
	}

	res := &VerifyResult{
		AmountMinorUnits: out.Data.Amount,
		Currency:         out.Data.Currency,
	}
	switch out.Data.Status {
	case "success":
		res.Status = StatusSuccess
	case "failed":
		res.Status = StatusFailed
	default:
		// "abandoned", "ongoing" and friends: nothing final yet.
		res.Status = StatusPending
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body *bytes.Reader, dst any) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
