// Package payment talks to the subscription checkout: either the hosted
// checkout backend or Stripe directly.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
)

// SupportContact is shown next to every payment failure.
const SupportContact = "hello@studier.me"

// DefaultPriceCents is the monthly price when none is configured.
const DefaultPriceCents = 450

// TrialDays is the free trial length of a new subscription.
const TrialDays = 7

// Gateway is the checkout surface the rest of the app depends on.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	VerifyCheckoutSession(ctx context.Context, sessionID string) (*Session, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*Cancellation, error)
}

// CheckoutRequest starts a subscription checkout.
type CheckoutRequest struct {
	Email      string `json:"email"`
	UserID     string `json:"userId"`
	ProductID  string `json:"productId"`
	PriceCents int    `json:"price,omitempty"`
	SuccessURL string `json:"successUrl,omitempty"`
	CancelURL  string `json:"cancelUrl,omitempty"`
}

// Validate reports every missing required field.
func (r CheckoutRequest) Validate() error {
	var errs criterio.FieldErrorsBuilder
	if strings.TrimSpace(r.Email) == "" {
		errs = errs.Append("email", errors.New("is required"))
	}
	if strings.TrimSpace(r.UserID) == "" {
		errs = errs.Append("userId", errors.New("is required"))
	}
	if strings.TrimSpace(r.ProductID) == "" {
		errs = errs.Append("productId", errors.New("is required"))
	}
	if r.PriceCents < 0 {
		errs = errs.Append("price", errors.New("must not be negative"))
	}
	return errs.ToError()
}

// WithDefaults fills the price and return URLs r leaves empty from d.
// The identifying fields are never defaulted.
func (r CheckoutRequest) WithDefaults(d CheckoutRequest) CheckoutRequest {
	if r.PriceCents == 0 {
		r.PriceCents = d.PriceCents
	}
	if r.SuccessURL == "" {
		r.SuccessURL = d.SuccessURL
	}
	if r.CancelURL == "" {
		r.CancelURL = d.CancelURL
	}
	return r
}

func (r CheckoutRequest) price() int {
	if r.PriceCents > 0 {
		return r.PriceCents
	}
	return DefaultPriceCents
}

// Session is a verified, paid checkout.
type Session struct {
	SessionID      string `json:"sessionId"`
	CustomerID     string `json:"customerId"`
	SubscriptionID string `json:"subscriptionId"`
}

// Cancellation confirms a subscription will end at the close of its period.
type Cancellation struct {
	SubscriptionID    string `json:"subscriptionId"`
	CancelAtPeriodEnd bool   `json:"cancelAtPeriodEnd"`
}

// RemoteServiceError is a failed call to the payment provider. It is never
// retried; the message is shown to the user as-is.
type RemoteServiceError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// UserMessage turns any payment error into what the user should read.
func UserMessage(err error) string {
	var rse *RemoteServiceError
	if errors.As(err, &rse) {
		return fmt.Sprintf("%s. If this keeps happening, contact support at %s", rse.Message, SupportContact)
	}
	return err.Error()
}

// Plan is the subscription tier.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// Subscription is the locally remembered subscription state.
type Subscription struct {
	Plan              Plan       `json:"plan"`
	CustomerID        string     `json:"customerId,omitempty"`
	SubscriptionID    string     `json:"subscriptionId,omitempty"`
	TrialEndsAt       *time.Time `json:"trialEndsAt,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd,omitempty"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Activate records a verified checkout.
func (s *Subscription) Activate(sess *Session, now time.Time) {
	trialEnd := now.AddDate(0, 0, TrialDays)
	s.Plan = PlanPremium
	s.CustomerID = sess.CustomerID
	s.SubscriptionID = sess.SubscriptionID
	s.TrialEndsAt = &trialEnd
	s.CancelAtPeriodEnd = false
	s.UpdatedAt = now
}

// Cancel records a confirmed cancellation.
func (s *Subscription) Cancel(c *Cancellation, now time.Time) {
	s.Plan = PlanFree
	s.CancelAtPeriodEnd = c.CancelAtPeriodEnd
	s.UpdatedAt = now
}

// IsPremium reports whether premium features are unlocked.
func (s Subscription) IsPremium() bool {
	return s.Plan == PlanPremium
}

// do sends req and decodes a 2xx JSON body into out. Anything else becomes
// a RemoteServiceError carrying the provider's message.
func do(client *http.Client, req *http.Request, op string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return &RemoteServiceError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteServiceError{Op: op, Status: resp.StatusCode, Message: "read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteServiceError{Op: op, Status: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &RemoteServiceError{Op: op, Status: resp.StatusCode, Message: "parse response: " + err.Error()}
	}
	return nil
}

// errorMessage understands both {"error":"..."} and Stripe's {"error":{"message":"..."}}.
func errorMessage(body []byte, status int) string {
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		return text
	}
	return http.StatusText(status)
}
