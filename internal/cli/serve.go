package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imkarma/studier/internal/logging"
	"github.com/imkarma/studier/internal/payment"
	"github.com/imkarma/studier/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API and checkout endpoints",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Web.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	// Without a gateway the checkout endpoints answer with a configuration error.
	var gw payment.Gateway
	if g, err := newGateway(a); err == nil {
		gw = g
	} else {
		log := logging.Component("web")
		log.Warn().Err(err).Msg("checkout disabled")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving on %shttp://%s%s (ctrl+c to stop)\n", colorCyan, addr, colorReset)
	srv := web.NewServer(a.tracker, gw, logging.Component("web"), web.WithCheckoutDefaults(checkoutDefaults(a)))
	return srv.Run(ctx, addr)
}
