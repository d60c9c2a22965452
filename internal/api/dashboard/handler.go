// Package dashboard provides REST API handlers for the contest platform's
// badge and automation surfaces. It exposes the badge catalog, per-user
// badges and stats, automation management, and the unsubscribe endpoint.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/colorcompete/colorcompete-backend/internal/models"
	"github.com/colorcompete/colorcompete-backend/internal/repository"
	"github.com/colorcompete/colorcompete-backend/internal/service/automation"
	"github.com/colorcompete/colorcompete-backend/internal/service/badges"
	"github.com/colorcompete/colorcompete-backend/internal/service/stats"
	"github.com/colorcompete/colorcompete-backend/pkg/logger"
)

// BadgeService interface for badge operations.
type BadgeService interface {
	GetCatalog(ctx context.Context) ([]models.Badge, error)
	GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error)
	EvaluateAndAward(ctx context.Context, userID uint, eventType string) []models.Badge
}

// StatsService interface for user statistics.
type StatsService interface {
	ComputeStats(ctx context.Context, userID uint) *stats.Snapshot
}

// AutomationStore interface for automation config reads and writes.
type AutomationStore interface {
	GetAll() ([]models.Automation, error)
	GetByID(id uint) (*models.Automation, error)
	Create(automation *models.Automation) error
	Update(automation *models.Automation) error
}

// SchedulerService interface for trigger lifecycle operations.
type SchedulerService interface {
	UpdateAutomation(id uint) error
	ScheduledCount() int
}

// AutomationRunner interface for manual automation runs.
type AutomationRunner interface {
	Execute(ctx context.Context, automation *models.Automation) error
}

// UserStore interface for unsubscribe handling.
type UserStore interface {
	OptOutByToken(token string) (*models.User, error)
}

// EmailLogStore interface for delivery log reads.
type EmailLogStore interface {
	GetFailedSince(since time.Time) ([]models.EmailLog, error)
}

// Handler handles dashboard API requests.
type Handler struct {
	badgeService BadgeService
	statsService StatsService
	automations  AutomationStore
	scheduler    SchedulerService
	runner       AutomationRunner
	users        UserStore
	emailLogs    EmailLogStore
	log          *logger.Logger
}

// NewHandler creates a new dashboard handler.
func NewHandler(
	badgeService *badges.Service,
	statsService *stats.Aggregator,
	automations *repository.AutomationRepository,
	scheduler *automation.Scheduler,
	runner *automation.Executor,
	users *repository.UserRepository,
	emailLogs *repository.EmailLogRepository,
	log *logger.Logger,
) *Handler {
	return NewHandlerWithInterfaces(badgeService, statsService, automations, scheduler, runner, users, emailLogs, log)
}

// NewHandlerWithInterfaces creates a new dashboard handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	badgeService BadgeService,
	statsService StatsService,
	automations AutomationStore,
	scheduler SchedulerService,
	runner AutomationRunner,
	users UserStore,
	emailLogs EmailLogStore,
	log *logger.Logger,
) *Handler {
	return &Handler{
		badgeService: badgeService,
		statsService: statsService,
		automations:  automations,
		scheduler:    scheduler,
		runner:       runner,
		users:        users,
		emailLogs:    emailLogs,
		log:          log,
	}
}

// RegisterRoutes mounts every dashboard endpoint on the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/badges", h.GetBadgeCatalog)
		v1.GET("/users/:id/badges", h.GetUserBadges)
		v1.GET("/users/:id/stats", h.GetUserStats)
		v1.POST("/users/:id/badges/evaluate", h.EvaluateUserBadges)
		v1.GET("/automations", h.ListAutomations)
		v1.GET("/automations/:id", h.GetAutomation)
		v1.POST("/automations", h.CreateAutomation)
		v1.PUT("/automations/:id", h.UpdateAutomation)
		v1.POST("/automations/:id/run", h.RunAutomation)
		v1.GET("/email-logs/failed", h.ListFailedEmails)
	}
	router.GET("/unsubscribe", h.Unsubscribe)
}

// GetBadgeCatalog returns all available badges.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	ctx := context.Background()
	catalogBadges, err := h.badgeService.GetCatalog(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get badge catalog")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badge catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       catalogBadges,
		"total_badges": len(catalogBadges),
		"generated_at": time.Now().UTC(),
	})
}

// GetUserBadges returns badges earned by a specific user.
// GET /api/v1/users/:id/badges.
func (h *Handler) GetUserBadges(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := context.Background()
	userBadges, err := h.badgeService.GetUserBadges(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user badges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user badges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"badges":       userBadges,
		"total_badges": len(userBadges),
		"generated_at": time.Now().UTC(),
	})
}

// GetUserStats returns the aggregated contest statistics for a user.
// GET /api/v1/users/:id/stats.
func (h *Handler) GetUserStats(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	snapshot := h.statsService.ComputeStats(context.Background(), userID)

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"stats":        snapshot,
		"generated_at": time.Now().UTC(),
	})
}

// EvaluateUserBadges runs badge evaluation for a user and returns any
// newly earned badges.
// POST /api/v1/users/:id/badges/evaluate.
func (h *Handler) EvaluateUserBadges(c *gin.Context) {
	userID, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	eventType := c.DefaultQuery("event", "manual")
	awarded := h.badgeService.EvaluateAndAward(context.Background(), userID, eventType)

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"awarded":      awarded,
		"new_badges":   len(awarded),
		"generated_at": time.Now().UTC(),
	})
}

// ListAutomations returns every automation config with the number of
// currently registered triggers.
// GET /api/v1/automations.
func (h *Handler) ListAutomations(c *gin.Context) {
	automations, err := h.automations.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list automations")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve automations")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"automations":     automations,
		"total":           len(automations),
		"scheduled_count": h.scheduler.ScheduledCount(),
		"generated_at":    time.Now().UTC(),
	})
}

// GetAutomation returns one automation config.
// GET /api/v1/automations/:id.
func (h *Handler) GetAutomation(c *gin.Context) {
	id, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	config, err := h.automations.GetByID(id)
	if err != nil {
		h.errorResponse(c, http.StatusNotFound, "Automation not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"automation": config})
}

// CreateAutomation persists a new automation config and registers its
// trigger when active.
// POST /api/v1/automations.
func (h *Handler) CreateAutomation(c *gin.Context) {
	var config models.Automation
	if err := c.ShouldBindJSON(&config); err != nil {
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid automation: %v", err))
		return
	}

	if err := h.automations.Create(&config); err != nil {
		h.log.Error().Err(err).Msg("Failed to create automation")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to create automation")
		return
	}

	if err := h.scheduler.UpdateAutomation(config.ID); err != nil {
		h.log.Warn().Err(err).Uint("automation_id", config.ID).Msg("Automation created but not scheduled")
	}

	c.JSON(http.StatusCreated, gin.H{"automation": config})
}

// UpdateAutomation persists config changes and reschedules or stops the
// trigger accordingly.
// PUT /api/v1/automations/:id.
func (h *Handler) UpdateAutomation(c *gin.Context) {
	id, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.automations.GetByID(id)
	if err != nil {
		h.errorResponse(c, http.StatusNotFound, "Automation not found")
		return
	}

	var config models.Automation
	if err := c.ShouldBindJSON(&config); err != nil {
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid automation: %v", err))
		return
	}
	config.ID = existing.ID
	config.TotalSent = existing.TotalSent
	config.LastTriggered = existing.LastTriggered
	config.CreatedAt = existing.CreatedAt

	if err := h.automations.Update(&config); err != nil {
		h.log.Error().Err(err).Uint("automation_id", id).Msg("Failed to update automation")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to update automation")
		return
	}

	if err := h.scheduler.UpdateAutomation(id); err != nil {
		h.log.Warn().Err(err).Uint("automation_id", id).Msg("Automation updated but not rescheduled")
	}

	c.JSON(http.StatusOK, gin.H{"automation": config})
}

// RunAutomation fires one automation immediately, outside its schedule.
// POST /api/v1/automations/:id/run.
func (h *Handler) RunAutomation(c *gin.Context) {
	id, err := h.parseID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	config, err := h.automations.GetByID(id)
	if err != nil {
		h.errorResponse(c, http.StatusNotFound, "Automation not found")
		return
	}

	if err := h.runner.Execute(c.Request.Context(), config); err != nil {
		h.log.Error().Err(err).Uint("automation_id", id).Msg("Manual automation run failed")
		h.errorResponse(c, http.StatusInternalServerError, "Automation run failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"automation_id": id,
		"status":        "completed",
		"generated_at":  time.Now().UTC(),
	})
}

// ListFailedEmails returns failed delivery attempts within the lookback
// window, newest first.
// GET /api/v1/email-logs/failed?hours=24.
func (h *Handler) ListFailedEmails(c *gin.Context) {
	hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if err != nil || hours <= 0 {
		h.errorResponse(c, http.StatusBadRequest, "hours must be a positive integer")
		return
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	failed, err := h.emailLogs.GetFailedSince(since)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list failed emails")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve email logs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"failed":       failed,
		"total":        len(failed),
		"since":        since.UTC(),
		"generated_at": time.Now().UTC(),
	})
}

// Unsubscribe opts a user out of campaign email via their personal
// token. Linked from every outbound email footer.
// GET /unsubscribe?token=...
func (h *Handler) Unsubscribe(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.errorResponse(c, http.StatusBadRequest, "token parameter is required")
		return
	}

	user, err := h.users.OptOutByToken(token)
	if err != nil {
		h.errorResponse(c, http.StatusNotFound, "Unknown unsubscribe token")
		return
	}

	h.log.Info().Uint("user_id", user.ID).Msg("User unsubscribed from campaign email")

	c.JSON(http.StatusOK, gin.H{
		"status":  "unsubscribed",
		"message": "You will no longer receive campaign emails.",
	})
}

// parseID extracts and validates the numeric ID URL parameter.
func (h *Handler) parseID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid ID: %s", idStr)
	}
	return uint(id), nil
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
