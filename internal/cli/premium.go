package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imkarma/studier/internal/game"
	"github.com/imkarma/studier/internal/logging"
	"github.com/imkarma/studier/internal/payment"
)

var premiumEmail string

var premiumCmd = &cobra.Command{
	Use:   "premium",
	Short: "Manage the premium subscription",
}

var premiumSubscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Start a checkout for the monthly plan",
	RunE:  runPremiumSubscribe,
}

var premiumVerifyCmd = &cobra.Command{
	Use:   "verify [session-id]",
	Short: "Activate premium after paying",
	Args:  cobra.ExactArgs(1),
	RunE:  runPremiumVerify,
}

var premiumCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel at the end of the current period",
	RunE:  runPremiumCancel,
}

var premiumStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current plan",
	RunE:  runPremiumStatus,
}

func init() {
	premiumSubscribeCmd.Flags().StringVar(&premiumEmail, "email", "", "Billing email (default from config)")

	premiumCmd.AddCommand(premiumSubscribeCmd)
	premiumCmd.AddCommand(premiumVerifyCmd)
	premiumCmd.AddCommand(premiumCancelCmd)
	premiumCmd.AddCommand(premiumStatusCmd)
}

// newGateway talks to the hosted checkout backend when one is configured,
// otherwise straight to Stripe with the secret key from the environment.
func newGateway(a *app) (payment.Gateway, error) {
	p := a.cfg.Payment
	if p.BaseURL != "" {
		return payment.NewClient(p.BaseURL, p.Timeout()), nil
	}
	key := p.SecretKey()
	if key == "" {
		return nil, fmt.Errorf("payment server configuration error: %s is not set. Please contact support at %s",
			p.SecretKeyEnv, payment.SupportContact)
	}
	return payment.NewStripe(p.StripeURL, key, p.Timeout(), logging.Component("stripe")), nil
}

// checkoutDefaults is what the configured plan fills into a checkout request.
func checkoutDefaults(a *app) payment.CheckoutRequest {
	p := a.cfg.Payment
	return payment.CheckoutRequest{
		PriceCents: p.PriceCents,
		SuccessURL: p.SuccessURL,
		CancelURL:  p.CancelURL,
	}
}

func runPremiumSubscribe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	gw, err := newGateway(a)
	if err != nil {
		return err
	}

	email := a.cfg.Profile.Email
	if premiumEmail != "" {
		email = premiumEmail
	}
	p := a.cfg.Payment
	req := payment.CheckoutRequest{
		Email:     email,
		UserID:    a.cfg.Profile.UserID,
		ProductID: p.ProductID,
	}.WithDefaults(checkoutDefaults(a))

	id, err := a.tracker.StartCheckout(cmd.Context(), gw, req)
	if err != nil {
		return errors.New(payment.UserMessage(err))
	}

	fmt.Printf("Checkout session created: %s%s%s\n", colorCyan, id, colorReset)
	fmt.Printf("  $%d.%02d/month after a %d day free trial.\n", p.PriceCents/100, p.PriceCents%100, payment.TrialDays)
	fmt.Printf("  After paying, run: %sstudier premium verify %s%s\n", colorCyan, id, colorReset)
	return nil
}

func runPremiumVerify(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	gw, err := newGateway(a)
	if err != nil {
		return err
	}

	sub, err := a.tracker.ActivatePremium(cmd.Context(), gw, args[0])
	if err != nil {
		return errors.New(payment.UserMessage(err))
	}

	fmt.Printf("%s★ Premium activated%s\n", colorGreen+colorBold, colorReset)
	if sub.TrialEndsAt != nil {
		fmt.Printf("  Free trial until %s\n", sub.TrialEndsAt.Local().Format("2006-01-02"))
	}
	return nil
}

func runPremiumCancel(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	gw, err := newGateway(a)
	if err != nil {
		return err
	}

	sub, err := a.tracker.CancelPremium(cmd.Context(), gw)
	if err != nil {
		var nf *game.NotFoundError
		if errors.As(err, &nf) {
			return fmt.Errorf("no active subscription to cancel")
		}
		return errors.New(payment.UserMessage(err))
	}

	fmt.Println("Subscription cancelled.")
	if sub.CancelAtPeriodEnd {
		fmt.Println("  You keep premium until the end of the current billing period.")
	}
	return nil
}

func runPremiumStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sub, err := a.tracker.Subscription(cmd.Context())
	if err != nil {
		return err
	}

	if !sub.IsPremium() {
		fmt.Printf("Plan: %sfree%s\n", colorDim, colorReset)
		if sub.CancelAtPeriodEnd {
			fmt.Printf("  Previous subscription %s ends with the current period.\n", sub.SubscriptionID)
		}
		fmt.Printf("Upgrade: %sstudier premium subscribe%s\n", colorCyan, colorReset)
		return nil
	}

	fmt.Printf("Plan: %spremium%s\n", colorBlue+colorBold, colorReset)
	fmt.Printf("  Customer:     %s\n", sub.CustomerID)
	fmt.Printf("  Subscription: %s\n", sub.SubscriptionID)
	if sub.TrialEndsAt != nil {
		fmt.Printf("  Trial ends:   %s\n", sub.TrialEndsAt.Local().Format("2006-01-02"))
	}
	return nil
}
