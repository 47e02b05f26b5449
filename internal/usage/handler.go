package usage

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/server/respond"
	"jobfit-backend/internal/shared/telemetry"
	"jobfit-backend/internal/users"
)

// RecordCounter counts successful generations created in [from, to).
// An empty userID counts every user.
type RecordCounter interface {
	CountBetween(ctx context.Context, from, to time.Time, userID string) (int, error)
}

// Handler exposes quota and daily statistics.
type Handler struct {
	Gate    *Gate
	Users   users.Repo
	Records RecordCounter
}

func NewHandler(gate *Gate, usersRepo users.Repo, records RecordCounter) *Handler {
	return &Handler{Gate: gate, Users: usersRepo, Records: records}
}

// RegisterRoutes attaches /stats/today (public) and /usage (signed-in).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats/today", h.today)
	rg.GET("/usage", middleware.RequireUser(), h.getUsage)
}

func (h *Handler) dayBounds() (time.Time, time.Time) {
	now := h.Gate.Clock.Now().In(h.Gate.Location)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.Gate.Location)
	return start, start.AddDate(0, 0, 1)
}

func (h *Handler) today(c *gin.Context) {
	ctx := c.Request.Context()
	from, to := h.dayBounds()

	total, err := h.Records.CountBetween(ctx, from, to, "")
	if err != nil {
		telemetry.Error("stats.count_failed", map[string]any{"error": err})
		respond.Fail(c, http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats", "message": err.Error()})
		return
	}

	stats := gin.H{
		"totalTodayCount":  total,
		"userTodayCount":   0,
		"userDailyCount":   0,
		"userTotalCredits": 0,
		"lastResumeDate":   nil,
		"date":             from.Format("2006-01-02"),
		"isAuthenticated":  false,
	}

	if userID := middleware.UserIDFromContext(c); userID != "" {
		mine, err := h.Records.CountBetween(ctx, from, to, userID)
		if err != nil {
			telemetry.Error("stats.count_failed", map[string]any{"error": err, "user_id": userID})
			respond.Fail(c, http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats", "message": err.Error()})
			return
		}
		stats["userTodayCount"] = mine
		stats["isAuthenticated"] = true
		if u, err := h.Users.GetByID(ctx, userID); err == nil {
			snap := h.Gate.Snapshot(u)
			stats["userDailyCount"] = snap.DailyCountToday
			stats["userTotalCredits"] = snap.CreditsUsed
			stats["lastResumeDate"] = formatDate(snap.LastResumeDate)
		} else if !errors.Is(err, users.ErrNotFound) {
			telemetry.Warn("stats.user_lookup_failed", map[string]any{"error": err, "user_id": userID})
		}
	}

	respond.OK(c, gin.H{"success": true, "stats": stats})
}

func (h *Handler) getUsage(c *gin.Context) {
	u, err := h.Users.GetByID(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, users.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch usage", nil)
		}
		return
	}
	respond.OK(c, h.Gate.Snapshot(u))
}

func formatDate(d *time.Time) any {
	if d == nil {
		return nil
	}
	return d.Format("2006-01-02")
}
