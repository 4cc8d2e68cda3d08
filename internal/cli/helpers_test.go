package cli

import (
	"strings"
	"testing"

	"github.com/imkarma/studier/internal/config"
	"github.com/imkarma/studier/internal/payment"
)

func TestParseTaskID(t *testing.T) {
	id, err := parseTaskID("1712345678901")
	if err != nil {
		t.Fatalf("parseTaskID: %v", err)
	}
	if id != 1712345678901 {
		t.Errorf("expected 1712345678901, got %d", id)
	}

	if _, err := parseTaskID("abc"); err == nil || !strings.Contains(err.Error(), "invalid task ID") {
		t.Errorf("expected invalid task ID error, got %v", err)
	}
}

func TestStudierPath(t *testing.T) {
	got := studierPath("config.yaml")
	if !strings.HasPrefix(got, ".studier") || !strings.HasSuffix(got, "config.yaml") {
		t.Errorf("unexpected path %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected short, got %q", got)
	}
	if got := truncate("a much longer title", 10); got != "a much ..." {
		t.Errorf("expected 'a much ...', got %q", got)
	}
}

func TestProgressBar(t *testing.T) {
	bar := progressBar(45, 100, 20)
	if n := strings.Count(bar, "█"); n != 9 {
		t.Errorf("expected 9 filled cells, got %d", n)
	}
	if n := strings.Count(bar, "░"); n != 11 {
		t.Errorf("expected 11 empty cells, got %d", n)
	}
}

func TestNewGateway(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Payment.SecretKeyEnv = "STUDIER_TEST_STRIPE_KEY"
	a := &app{cfg: cfg}

	t.Setenv("STUDIER_TEST_STRIPE_KEY", "")
	if _, err := newGateway(a); err == nil {
		t.Fatal("expected configuration error without a secret key")
	} else if !strings.Contains(err.Error(), payment.SupportContact) {
		t.Errorf("expected support contact in %q", err.Error())
	}

	t.Setenv("STUDIER_TEST_STRIPE_KEY", "sk_test_123")
	gw, err := newGateway(a)
	if err != nil {
		t.Fatalf("newGateway: %v", err)
	}
	if _, ok := gw.(*payment.Stripe); !ok {
		t.Errorf("expected *payment.Stripe, got %T", gw)
	}

	cfg.Payment.BaseURL = "https://studier.example"
	gw, err = newGateway(a)
	if err != nil {
		t.Fatalf("newGateway: %v", err)
	}
	if _, ok := gw.(*payment.Client); !ok {
		t.Errorf("expected *payment.Client, got %T", gw)
	}
}

func TestDifficultyOptions(t *testing.T) {
	opts := difficultyOptions()
	if len(opts) != 3 {
		t.Fatalf("expected 3 options, got %d", len(opts))
	}
	if opts[0].Value != "easy" || opts[2].Value != "hard" {
		t.Errorf("expected easy..hard, got %q..%q", opts[0].Value, opts[2].Value)
	}
	if opts[1].Key != "medium (+25 XP)" {
		t.Errorf("unexpected label %q", opts[1].Key)
	}
}

func TestCheckoutDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	d := checkoutDefaults(&app{cfg: cfg})

	if d.PriceCents != cfg.Payment.PriceCents {
		t.Errorf("expected price %d, got %d", cfg.Payment.PriceCents, d.PriceCents)
	}
	if d.SuccessURL != cfg.Payment.SuccessURL || d.CancelURL != cfg.Payment.CancelURL {
		t.Errorf("unexpected return URLs %q, %q", d.SuccessURL, d.CancelURL)
	}
	if d.Email != "" || d.ProductID != "" {
		t.Error("identifying fields must stay empty")
	}
}
