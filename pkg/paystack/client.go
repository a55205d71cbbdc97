// Package paystack is a thin client for the Paystack transaction API and webhook signatures.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.paystack.co"

const maxBodyBytes = 1 << 20

// ErrUnavailable marks every failure to obtain a usable answer from the gateway.
var ErrUnavailable = errors.New("paystack unavailable")

// Error describes a failed gateway call. Body holds the upstream payload when one was returned.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Body       json.RawMessage
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("paystack %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("paystack %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("paystack %s: %s", e.Op, e.Message)
	}
}

// Unwrap lets callers match ErrUnavailable and the transport cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUnavailable, e.Err}
	}
	return []error{ErrUnavailable}
}

// Client talks to the Paystack REST API. It does not retry.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient builds a client; a non-positive timeout falls back to 15 seconds.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// InitializeRequest starts a hosted checkout. Amount is in the currency's minor unit.
type InitializeRequest struct {
	Email       string                 `json:"email"`
	Amount      int64                  `json:"amount"`
	Currency    string                 `json:"currency,omitempty"`
	Reference   string                 `json:"reference"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CallbackURL string                 `json:"callback_url,omitempty"`
}

// Authorization is the checkout handle returned by InitializeTransaction.
type Authorization struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Customer is the payer as reported by the gateway.
type Customer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// CardAuthorization carries the channel details of a charge.
type CardAuthorization struct {
	Channel           string `json:"channel"`
	Bank              string `json:"bank"`
	MobileMoneyNumber string `json:"mobile_money_number"`
}

// Transaction is the verified state of a charge. Amounts are in minor units.
type Transaction struct {
	ID            int64             `json:"id"`
	Status        string            `json:"status"`
	Reference     string            `json:"reference"`
	Amount        int64             `json:"amount"`
	Fees          int64             `json:"fees"`
	Currency      string            `json:"currency"`
	Channel       string            `json:"channel"`
	ReceiptNumber string            `json:"receipt_number"`
	PaidAt        *time.Time        `json:"paid_at"`
	Customer      Customer          `json:"customer"`
	Authorization CardAuthorization `json:"authorization"`
	Metadata      json.RawMessage   `json:"metadata"`
	Raw           json.RawMessage   `json:"-"`
}

// Transaction statuses reported by the gateway.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// MetadataString returns a string field from the transaction metadata, if present.
func (t *Transaction) MetadataString(key string) string {
	if len(t.Metadata) == 0 {
		return ""
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(t.Metadata, &fields); err != nil {
		return ""
	}
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransaction creates a checkout session for the given reference.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*Authorization, error) {
	const op = "initialize transaction"
	data, err := c.do(ctx, op, http.MethodPost, "/transaction/initialize", req)
	if err != nil {
		return nil, err
	}
	var auth Authorization
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, &Error{Op: op, Message: "decode response", Body: data, Err: err}
	}
	return &auth, nil
}

// VerifyTransaction fetches the authoritative state of a charge.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	const op = "verify transaction"
	data, err := c.do(ctx, op, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, &Error{Op: op, Message: "decode response", Body: data, Err: err}
	}
	tx.Raw = data
	return &tx, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload interface{}) (json.RawMessage, error) {
	if c == nil || c.secretKey == "" {
		return nil, &Error{Op: op, Message: "client not configured"}
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Op: op, Message: "create request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && env.Message != "" {
			msg = env.Message
		}
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: msg, Body: rawOrNil(raw)}
	}
	if decodeErr != nil {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: "decode envelope", Body: rawOrNil(raw), Err: decodeErr}
	}
	if !env.Status {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode, Message: env.Message, Body: rawOrNil(raw)}
	}
	return env.Data, nil
}

func rawOrNil(raw []byte) json.RawMessage {
	if len(raw) == 0 || !json.Valid(raw) {
		return nil
	}
	return json.RawMessage(raw)
}
