package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
)

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var fe criterio.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected field errors, got %v", err)
	}
	names := make([]string, 0, len(fe))
	for _, e := range fe {
		names = append(names, e.Field)
	}
	return names
}

func hasField(names []string, field string) bool {
	for _, n := range names {
		if n == field {
			return true
		}
	}
	return false
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Profile.UserID == "" {
		t.Error("expected a generated user id")
	}
	if cfg.Payment.PriceCents != 450 {
		t.Errorf("expected default price 450, got %d", cfg.Payment.PriceCents)
	}
}

func TestDefaultConfig_UniqueUserIDs(t *testing.T) {
	if DefaultConfig().Profile.UserID == DefaultConfig().Profile.UserID {
		t.Error("expected different user ids")
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Profile.Email = "ada@example.com"
	cfg.Game.Timezone = "Europe/Berlin"
	cfg.Game.Streak.CountFirstDay = true

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Profile != cfg.Profile {
		t.Errorf("profile mismatch: %+v vs %+v", loaded.Profile, cfg.Profile)
	}
	if !loaded.Game.Streak.CountFirstDay {
		t.Error("expected count_first_day to survive round trip")
	}
	loc, err := loaded.Game.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Errorf("expected Europe/Berlin, got %v (%v)", loc, err)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "version: 1\nprofile:\n  user_id: u-1\nweb:\n  addr: \":9000\"\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Web.Addr != ":9000" {
		t.Errorf("expected :9000, got %q", cfg.Web.Addr)
	}
	if cfg.Payment.ProductID == "" || cfg.Log.Level != "info" {
		t.Errorf("expected defaults to be kept, got %+v", cfg)
	}
	if cfg.Profile.UserID != "u-1" {
		t.Errorf("expected user id from file, got %q", cfg.Profile.UserID)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("version: [oops"), 0644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate_ReportsEveryField(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Version = 2
	cfg.Profile.Email = "not-an-email"
	cfg.Game.Timezone = "Mars/Olympus"
	cfg.Log.Level = "loud"
	cfg.Payment.PriceCents = 0
	cfg.Payment.SuccessURL = "not a url"
	cfg.Payment.BaseURL = "/relative"

	names := fieldNames(t, cfg.Validate())

	for _, want := range []string{
		"version",
		"profile.email",
		"game.timezone",
		"log.level",
		"payment.price_cents",
		"payment.success_url",
		"payment.base_url",
	} {
		if !hasField(names, want) {
			t.Errorf("expected error for %s, got %v", want, names)
		}
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Profile.UserID = ""
	cfg.Web.Addr = ""
	cfg.Payment.ProductID = ""
	cfg.Payment.CancelURL = ""

	names := fieldNames(t, cfg.Validate())

	for _, want := range []string{"profile.user_id", "web.addr", "payment.product_id", "payment.cancel_url"} {
		if !hasField(names, want) {
			t.Errorf("expected error for %s, got %v", want, names)
		}
	}
}

func TestPayment_Timeout(t *testing.T) {
	if got := (Payment{}).Timeout(); got != 30*time.Second {
		t.Errorf("expected default 30s, got %v", got)
	}
	if got := (Payment{TimeoutSec: 5}).Timeout(); got != 5*time.Second {
		t.Errorf("expected 5s, got %v", got)
	}
}

func TestPayment_SecretKey(t *testing.T) {
	t.Setenv("STUDIER_TEST_KEY", "sk_test_123")

	p := Payment{SecretKeyEnv: "STUDIER_TEST_KEY"}
	if p.SecretKey() != "sk_test_123" {
		t.Errorf("expected key from env, got %q", p.SecretKey())
	}
	if (Payment{}).SecretKey() != "" {
		t.Error("expected empty key without env var name")
	}
}

func TestGame_LocationDefaultsToLocal(t *testing.T) {
	loc, err := Game{}.Location()
	if err != nil {
		t.Fatal(err)
	}
	if loc != time.Local {
		t.Errorf("expected time.Local, got %v", loc)
	}
}
