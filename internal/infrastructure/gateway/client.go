// Package gateway talks to the hosted payment gateway: it creates orders over
// its REST API and checks the HMAC signatures it attaches to confirmations.
package gateway

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

	"plan-ledger.backend/pkg/crypto"
)

// WebhookSignatureHeader carries the hex HMAC of the raw webhook body.
const WebhookSignatureHeader = "X-Razorpay-Signature"

var (
	ErrNotConfigured = errors.New("gateway credentials not configured")
	ErrUpstream      = errors.New("gateway request failed")
)

// Config holds gateway credentials and endpoints
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	APIURL        string
	CheckoutURL   string
	Timeout       time.Duration
}

// OrderRequest describes the order to open at the gateway.
type OrderRequest struct {
	Amount      int64
	Currency    string
	Receipt     string
	Email       string
	CallbackURL string
	Notes       map[string]string
}

// Order is the gateway's view of a created order.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type createOrderBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type errorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Client is a minimal REST client for the gateway's orders API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a gateway client. A nil httpClient uses one bounded by
// cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Configured reports whether orders can be created.
func (c *Client) Configured() bool {
	return c.cfg.KeyID != "" && c.cfg.KeySecret != ""
}

// CreateOrder opens an order. Any transport failure, timeout or non-2xx
// answer is reported as ErrUpstream; the upstream payload is never returned.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(createOrderBody{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.cfg.APIURL, "/") + "/v1/orders"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		return nil, fmt.Errorf("%w: status %d %s", ErrUpstream, resp.StatusCode, eb.Error.Code)
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil || order.ID == "" {
		return nil, fmt.Errorf("%w: malformed order response", ErrUpstream)
	}
	return &order, nil
}

// PaymentURL is the hosted checkout page for an order.
func (c *Client) PaymentURL(order *Order, req OrderRequest) string {
	q := url.Values{}
	q.Set("key_id", c.cfg.KeyID)
	q.Set("order_id", order.ID)
	if req.CallbackURL != "" {
		q.Set("callback_url", req.CallbackURL)
	}
	if req.Email != "" {
		q.Set("prefill[email]", req.Email)
	}
	return c.cfg.CheckoutURL + "?" + q.Encode()
}

// VerifyPaymentSignature checks the signature the gateway hands the client
// after a successful payment: hex HMAC-SHA256 of "orderID|paymentID" keyed
// with the API key secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if c.cfg.KeySecret == "" || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return crypto.VerifyHMACSHA256([]byte(c.cfg.KeySecret), []byte(orderID+"|"+paymentID), signature)
}

// VerifyWebhookSignature checks the webhook signature header against the raw body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.cfg.WebhookSecret == "" || signature == "" {
		return false
	}
	return crypto.VerifyHMACSHA256([]byte(c.cfg.WebhookSecret), body, signature)
}
