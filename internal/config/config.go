package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration of a studier workspace.
type Config struct {
	Version int     `yaml:"version"`
	Profile Profile `yaml:"profile"`
	Game    Game    `yaml:"game"`
	Payment Payment `yaml:"payment"`
	Web     Web     `yaml:"web"`
	Log     Log     `yaml:"log"`
}

// Profile identifies the local user to the checkout backend.
type Profile struct {
	Email  string `yaml:"email,omitempty"`
	UserID string `yaml:"user_id"`
}

// Game holds the rules that are allowed to vary per user.
type Game struct {
	Timezone string `yaml:"timezone,omitempty"` // IANA name; empty = system local time
	Streak   Streak `yaml:"streak"`
}

// Streak tunes the streak rule.
type Streak struct {
	CountFirstDay bool `yaml:"count_first_day"` // first-ever completion starts the streak at 1
}

// Payment configures the subscription checkout.
type Payment struct {
	BaseURL      string `yaml:"base_url,omitempty"` // checkout backend; empty = call Stripe directly
	StripeURL    string `yaml:"stripe_url,omitempty"`
	ProductID    string `yaml:"product_id"`
	PriceCents   int    `yaml:"price_cents"`
	SuccessURL   string `yaml:"success_url"`
	CancelURL    string `yaml:"cancel_url"`
	SecretKeyEnv string `yaml:"secret_key_env"` // env var holding the Stripe secret key
	TimeoutSec   int    `yaml:"timeout_sec,omitempty"`
}

// Web configures the local HTTP API.
type Web struct {
	Addr string `yaml:"addr"`
}

// Log configures the log file.
type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"` // relative paths resolve inside .studier/
}

// Location returns the time zone days are counted in.
func (g Game) Location() (*time.Location, error) {
	if g.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(g.Timezone)
}

// Timeout returns the effective timeout for payment calls.
func (p Payment) Timeout() time.Duration {
	if p.TimeoutSec > 0 {
		return time.Duration(p.TimeoutSec) * time.Second
	}
	return 30 * time.Second
}

// SecretKey reads the Stripe secret key from the configured env var.
func (p Payment) SecretKey() string {
	if p.SecretKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.SecretKeyEnv)
}

// Load reads and parses the config file at the given path.
// Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a starter config with a fresh user ID.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Profile: Profile{UserID: uuid.NewString()},
		Payment: Payment{
			StripeURL:    "https://api.stripe.com",
			ProductID:    "prod_TdO6xr6OLrGCau",
			PriceCents:   450,
			SuccessURL:   "http://127.0.0.1:8787/?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:    "http://127.0.0.1:8787/",
			SecretKeyEnv: "STRIPE_SECRET_KEY",
			TimeoutSec:   30,
		},
		Web: Web{Addr: "127.0.0.1:8787"},
		Log: Log{Level: "info", File: "studier.log"},
	}
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		c.validateBasics(),
		c.validatePayment(),
	)
}

func (c *Config) validateBasics() error {
	var errs criterio.FieldErrorsBuilder

	if c.Version != 1 {
		errs = errs.Append("version", fmt.Errorf("unsupported version %d", c.Version))
	}
	if c.Profile.UserID == "" {
		errs = errs.Append("profile.user_id", fmt.Errorf("is required"))
	}
	if c.Profile.Email != "" {
		if _, err := mail.ParseAddress(c.Profile.Email); err != nil {
			errs = errs.Append("profile.email", fmt.Errorf("invalid address %q", c.Profile.Email))
		}
	}
	if _, err := c.Game.Location(); err != nil {
		errs = errs.Append("game.timezone", fmt.Errorf("unknown time zone %q", c.Game.Timezone))
	}
	if c.Web.Addr == "" {
		errs = errs.Append("web.addr", fmt.Errorf("is required"))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil || c.Log.Level == "" {
		errs = errs.Append("log.level", fmt.Errorf("unknown level %q", c.Log.Level))
	}

	return errs.ToError()
}

func (c *Config) validatePayment() error {
	var errs criterio.FieldErrorsBuilder
	p := c.Payment

	if p.ProductID == "" {
		errs = errs.Append("payment.product_id", fmt.Errorf("is required"))
	}
	if p.PriceCents <= 0 {
		errs = errs.Append("payment.price_cents", fmt.Errorf("must be positive, got %d", p.PriceCents))
	}
	if p.TimeoutSec < 0 {
		errs = errs.Append("payment.timeout_sec", fmt.Errorf("must not be negative"))
	}

	urls := []struct {
		field    string
		value    string
		required bool
	}{
		{"payment.base_url", p.BaseURL, false},
		{"payment.stripe_url", p.StripeURL, false},
		{"payment.success_url", p.SuccessURL, true},
		{"payment.cancel_url", p.CancelURL, true},
	}
	for _, u := range urls {
		if u.value == "" {
			if u.required {
				errs = errs.Append(u.field, fmt.Errorf("is required"))
			}
			continue
		}
		if parsed, err := url.Parse(u.value); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = errs.Append(u.field, fmt.Errorf("invalid URL %q", u.value))
		}
	}

	return errs.ToError()
}
