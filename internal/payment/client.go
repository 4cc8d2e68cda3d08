package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client calls the checkout backend's /api endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a backend client with a per-call timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateCheckoutSession asks the backend for a Stripe checkout session ID.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	req.PriceCents = req.price()

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/api/create-checkout-session", "create checkout session", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &RemoteServiceError{Op: "create checkout session", Message: "no session ID in response"}
	}
	return resp.ID, nil
}

// VerifyCheckoutSession confirms the checkout was paid.
func (c *Client) VerifyCheckoutSession(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("verify session: missing session ID")
	}

	var sess Session
	body := map[string]string{"sessionId": sessionID}
	if err := c.post(ctx, "/api/verify-session", "verify session", body, &sess); err != nil {
		return nil, err
	}
	if sess.SessionID == "" {
		sess.SessionID = sessionID
	}
	return &sess, nil
}

// CancelSubscription schedules cancellation at the end of the billing period.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*Cancellation, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("cancel subscription: missing subscription ID")
	}

	var resp Cancellation
	body := map[string]string{"subscriptionId": subscriptionID}
	if err := c.post(ctx, "/api/cancel-subscription", "cancel subscription", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path, op string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	return do(c.http, req, op, out)
}
