package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hay-kot/criterio"

	"github.com/imkarma/studier/internal/game"
	"github.com/imkarma/studier/internal/payment"
)

const configErrorMessage = "Payment server configuration error. Please contact support at " + payment.SupportContact

// ════════════════════════════════════════════
// Tracker
// ════════════════════════════════════════════

func (s *Server) handleState(c *gin.Context) {
	snap, err := s.tracker.Snapshot(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	p := snap.State.Progression
	into, width := p.LevelProgress()
	c.JSON(http.StatusOK, gin.H{
		"today":         snap.Today,
		"xp":            p.XP,
		"level":         p.Level,
		"levelProgress": gin.H{"current": into, "needed": width},
		"streak":        p.Streak,
		"lastDate":      p.LastCompletion,
		"tasks":         nonNilTasks(snap.State.Tasks),
		"quests":        snap.Quests,
		"badges":        snap.Badges,
		"subscription":  snap.Subscription,
	})
}

func (s *Server) handleListTasks(c *gin.Context) {
	snap, err := s.tracker.Snapshot(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNilTasks(snap.State.Tasks))
}

type taskBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var body taskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	diff, err := game.ParseDifficulty(body.Difficulty)
	if err != nil {
		s.writeError(c, err)
		return
	}

	task, events, err := s.tracker.AddTask(c.Request.Context(), body.Title, body.Description, diff)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task, "events": nonNilEvents(events)})
}

func (s *Server) handleEditTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var body taskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if _, err := s.tracker.Task(ctx, id); err != nil {
		s.writeError(c, err)
		return
	}
	events, err := s.tracker.EditTask(ctx, id, body.Title, body.Description)
	if err != nil {
		s.writeError(c, err)
		return
	}
	task, err := s.tracker.Task(ctx, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task, "events": nonNilEvents(events)})
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	events, err := s.tracker.CompleteTask(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": nonNilEvents(events)})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	events, err := s.tracker.DeleteTask(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": len(events) > 0, "events": nonNilEvents(events)})
}

func (s *Server) handleQuests(c *gin.Context) {
	snap, err := s.tracker.Snapshot(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap.Quests)
}

func (s *Server) handleBadges(c *gin.Context) {
	snap, err := s.tracker.Snapshot(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap.Badges)
}

// ════════════════════════════════════════════
// Checkout
// ════════════════════════════════════════════

func (s *Server) requireGateway(c *gin.Context) {
	if s.gateway == nil {
		s.log.Error().Str("path", c.FullPath()).Msg("payment gateway not configured")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": configErrorMessage})
		return
	}
	c.Next()
}

func (s *Server) handleCreateCheckout(c *gin.Context) {
	var req payment.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Validate() != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	req = req.WithDefaults(s.checkout).WithDefaults(originDefaults(c))

	id, err := s.tracker.StartCheckout(c.Request.Context(), s.gateway, req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// originDefaults points the return URLs back at the page that asked for the
// checkout, or at this server when the browser sent no Origin.
func originDefaults(c *gin.Context) payment.CheckoutRequest {
	origin := strings.TrimRight(c.GetHeader("Origin"), "/")
	if origin == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		origin = scheme + "://" + c.Request.Host
	}
	return payment.CheckoutRequest{
		SuccessURL: origin + "/?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  origin + "/",
	}
}

func (s *Server) handleVerifySession(c *gin.Context) {
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session ID"})
		return
	}

	sub, err := s.tracker.ActivatePremium(c.Request.Context(), s.gateway, body.SessionID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"customerId":     sub.CustomerID,
		"subscriptionId": sub.SubscriptionID,
		"sessionId":      body.SessionID,
	})
}

func (s *Server) handleCancelSubscription(c *gin.Context) {
	var body struct {
		SubscriptionID string `json:"subscriptionId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.SubscriptionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing subscription ID"})
		return
	}

	ctx := c.Request.Context()
	current, err := s.tracker.Subscription(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}

	// Only the locally known subscription updates the stored plan.
	if current.SubscriptionID == body.SubscriptionID {
		sub, err := s.tracker.CancelPremium(ctx, s.gateway)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":           true,
			"subscriptionId":    sub.SubscriptionID,
			"cancelAtPeriodEnd": sub.CancelAtPeriodEnd,
		})
		return
	}

	res, err := s.gateway.CancelSubscription(ctx, body.SubscriptionID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"subscriptionId":    res.SubscriptionID,
		"cancelAtPeriodEnd": res.CancelAtPeriodEnd,
	})
}

// ════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════

func (s *Server) writeError(c *gin.Context, err error) {
	var (
		ve  *game.ValidationError
		nf  *game.NotFoundError
		fe  criterio.FieldErrors
		rse *payment.RemoteServiceError
	)

	switch {
	case errors.As(err, &ve), errors.As(err, &fe):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &rse):
		status := http.StatusInternalServerError
		if rse.Status >= 400 && rse.Status < 500 {
			status = http.StatusBadRequest
		}
		s.log.Warn().Err(err).Int("status", status).Msg("payment request failed")
		c.JSON(status, gin.H{"error": rse.Message})
	default:
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task ID: " + c.Param("id")})
		return 0, false
	}
	return id, true
}

func nonNilTasks(ts game.TaskList) game.TaskList {
	if ts == nil {
		return game.TaskList{}
	}
	return ts
}

func nonNilEvents(evs []game.Event) []game.Event {
	if evs == nil {
		return []game.Event{}
	}
	return evs
}
