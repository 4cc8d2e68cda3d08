// Package web serves the tracker and the checkout endpoints as a JSON API
// for a browser front end.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/imkarma/studier/internal/payment"
	"github.com/imkarma/studier/internal/tracker"
)

// Server is the studier HTTP API.
type Server struct {
	tracker  *tracker.Service
	gateway  payment.Gateway // nil when no payment secret is configured
	checkout payment.CheckoutRequest
	router   *gin.Engine
	log      zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCheckoutDefaults sets the price and return URLs used when a checkout
// request leaves them out.
func WithCheckoutDefaults(d payment.CheckoutRequest) Option {
	return func(s *Server) { s.checkout = d }
}

// NewServer wires routes. gw may be nil; the checkout endpoints then answer
// with a configuration error.
func NewServer(svc *tracker.Service, gw payment.Gateway, log zerolog.Logger, opts ...Option) *Server {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	s := &Server{
		tracker: svc,
		gateway: gw,
		router:  router,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}

	router.Use(gin.Recovery(), s.requestLogger())
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	api := router.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.PUT("/tasks/:id", s.handleEditTask)
		api.POST("/tasks/:id/complete", s.handleCompleteTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.GET("/quests", s.handleQuests)
		api.GET("/badges", s.handleBadges)

		api.POST("/create-checkout-session", s.requireGateway, s.handleCreateCheckout)
		api.POST("/verify-session", s.requireGateway, s.handleVerifySession)
		api.POST("/cancel-subscription", s.requireGateway, s.handleCancelSubscription)
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
