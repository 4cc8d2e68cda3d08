package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/imkarma/studier/internal/game"
	"github.com/imkarma/studier/internal/payment"
	"github.com/imkarma/studier/internal/store"
)

// Subscription returns the stored subscription, free if none.
func (s *Service) Subscription(ctx context.Context) (payment.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSubscription(ctx)
}

// StartCheckout opens a checkout session for the local user.
func (s *Service) StartCheckout(ctx context.Context, gw payment.Gateway, req payment.CheckoutRequest) (string, error) {
	id, err := gw.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.log.Warn().Err(err).Msg("checkout session failed")
		return "", err
	}
	s.log.Info().Str("session_id", id).Msg("checkout session created")
	return id, nil
}

// ActivatePremium verifies a paid checkout and switches the plan to premium.
func (s *Service) ActivatePremium(ctx context.Context, gw payment.Gateway, sessionID string) (payment.Subscription, error) {
	sess, err := gw.VerifyCheckoutSession(ctx, sessionID)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("session verification failed")
		return payment.Subscription{}, err
	}

	return s.updateSubscription(ctx, "subscription.activated", func(sub *payment.Subscription, now time.Time) {
		sub.Activate(sess, now)
	})
}

// CancelPremium cancels the active subscription at the end of its period.
func (s *Service) CancelPremium(ctx context.Context, gw payment.Gateway) (payment.Subscription, error) {
	current, err := s.Subscription(ctx)
	if err != nil {
		return payment.Subscription{}, err
	}
	if current.SubscriptionID == "" {
		return current, &game.NotFoundError{Kind: "subscription", ID: "(none)"}
	}

	c, err := gw.CancelSubscription(ctx, current.SubscriptionID)
	if err != nil {
		s.log.Warn().Err(err).Str("subscription_id", current.SubscriptionID).Msg("cancel failed")
		return current, err
	}

	return s.updateSubscription(ctx, "subscription.cancelled", func(sub *payment.Subscription, now time.Time) {
		sub.Cancel(c, now)
	})
}

func (s *Service) updateSubscription(ctx context.Context, eventType string, fn func(*payment.Subscription, time.Time)) (payment.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	var (
		sub  payment.Subscription
		line store.Event
	)
	err := s.store.Update(ctx, []string{KeySubscription}, func(stored map[string]string) (map[string]string, []store.Event, error) {
		raw, ok := stored[KeySubscription]
		sub = decodeSubscription(raw, ok, s.log)
		fn(&sub, now)

		data, err := json.Marshal(sub)
		if err != nil {
			return nil, nil, fmt.Errorf("encode subscription: %w", err)
		}
		line = store.Event{
			Type:      eventType,
			Content:   fmt.Sprintf("Plan is now %s", sub.Plan),
			Timestamp: now.UTC(),
		}
		return map[string]string{KeySubscription: string(data)}, []store.Event{line}, nil
	})
	if err != nil {
		return payment.Subscription{}, fmt.Errorf("save subscription: %w", err)
	}

	s.log.Info().Str("plan", string(sub.Plan)).Msg(line.Content)
	return sub, nil
}

func (s *Service) loadSubscription(ctx context.Context) (payment.Subscription, error) {
	values, err := s.store.GetMany(ctx, KeySubscription)
	if err != nil {
		return payment.Subscription{}, fmt.Errorf("load subscription: %w", err)
	}
	raw, ok := values[KeySubscription]
	return decodeSubscription(raw, ok, s.log), nil
}
