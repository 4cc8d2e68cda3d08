package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v81"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/subscription"
)

// Stripe implements Gateway against the Stripe API through stripe-go.
type Stripe struct {
	secretKey     string
	sessions      checkoutsession.Client
	subscriptions subscription.Client
}

// NewStripe creates a Stripe gateway. baseURL is normally https://api.stripe.com.
// Calls are made once: the provider's own retries are turned off.
func NewStripe(baseURL, secretKey string, timeout time.Duration, log zerolog.Logger) *Stripe {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(strings.TrimRight(baseURL, "/")),
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     stripeLogger{log: log},
	})
	return &Stripe{
		secretKey:     secretKey,
		sessions:      checkoutsession.Client{B: backend, Key: secretKey},
		subscriptions: subscription.Client{B: backend, Key: secretKey},
	}
}

// CreateCheckoutSession creates a monthly subscription checkout with a free trial.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	const op = "create checkout session"
	if err := req.Validate(); err != nil {
		return "", err
	}
	if err := s.checkKey(op); err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				Product:    stripe.String(req.ProductID),
				UnitAmount: stripe.Int64(int64(req.price())),
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
				},
			},
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(TrialDays),
		},
		CustomerEmail: stripe.String(req.Email),
	}
	if req.SuccessURL != "" {
		params.SuccessURL = stripe.String(req.SuccessURL)
	}
	if req.CancelURL != "" {
		params.CancelURL = stripe.String(req.CancelURL)
	}
	params.AddMetadata("userId", req.UserID)
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	sess, err := s.sessions.New(params)
	if err != nil {
		return "", remoteError(op, err)
	}
	return sess.ID, nil
}

// VerifyCheckoutSession retrieves the session and requires it to be paid.
func (s *Stripe) VerifyCheckoutSession(ctx context.Context, sessionID string) (*Session, error) {
	const op = "verify session"
	if sessionID == "" {
		return nil, fmt.Errorf("%s: missing session ID", op)
	}
	if err := s.checkKey(op); err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.sessions.Get(sessionID, params)
	if err != nil {
		return nil, remoteError(op, err)
	}

	switch sess.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
	default:
		return nil, &RemoteServiceError{Op: op, Status: http.StatusPaymentRequired, Message: "Payment not completed"}
	}

	out := &Session{SessionID: sess.ID}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
	}
	return out, nil
}

// CancelSubscription sets cancel_at_period_end so access lasts until the period ends.
func (s *Stripe) CancelSubscription(ctx context.Context, subscriptionID string) (*Cancellation, error) {
	const op = "cancel subscription"
	if subscriptionID == "" {
		return nil, fmt.Errorf("%s: missing subscription ID", op)
	}
	if err := s.checkKey(op); err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	sub, err := s.subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, remoteError(op, err)
	}
	return &Cancellation{SubscriptionID: sub.ID, CancelAtPeriodEnd: sub.CancelAtPeriodEnd}, nil
}

func (s *Stripe) checkKey(op string) error {
	if s.secretKey == "" {
		return &RemoteServiceError{Op: op, Message: "Payment server configuration error"}
	}
	return nil
}

// remoteError keeps Stripe's own message and status for the user.
func remoteError(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		msg := se.Msg
		if msg == "" {
			msg = http.StatusText(se.HTTPStatusCode)
		}
		return &RemoteServiceError{Op: op, Status: se.HTTPStatusCode, Message: msg}
	}
	return &RemoteServiceError{Op: op, Message: err.Error()}
}

// stripeLogger routes stripe-go's request logging into zerolog.
type stripeLogger struct {
	log zerolog.Logger
}

func (l stripeLogger) Debugf(format string, v ...interface{}) { l.log.Debug().Msgf(format, v...) }
func (l stripeLogger) Infof(format string, v ...interface{})  { l.log.Debug().Msgf(format, v...) }
func (l stripeLogger) Warnf(format string, v ...interface{})  { l.log.Warn().Msgf(format, v...) }
func (l stripeLogger) Errorf(format string, v ...interface{}) { l.log.Error().Msgf(format, v...) }
