package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
)

type sessionView struct {
	*db.TrickleSession
	LiveSampleCount int `json:"live_sample_count"`
}

// ActiveSessions lists active trickle sessions for the user's collectors,
// with live sample counts from Redis when available.
func (h *Handler) ActiveSessions(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	sessions, err := h.repo.ActiveSessionsForOwner(tenantID, userID)
	if err != nil {
		h.internalError(c, "Failed to list active sessions", err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		view := sessionView{TrickleSession: s, LiveSampleCount: s.SampleCount}
		if h.cache != nil {
			if n, ok := h.cache.SessionLiveCount(c.Request.Context(), s.ID); ok {
				view.LiveSampleCount = n
			}
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"sessions": views})
}

// CheckInactiveSessions sweeps sessions idle past the configured timeout.
func (h *Handler) CheckInactiveSessions(c *gin.Context) {
	closed, err := h.repo.CompleteIdleSessions(h.config.Trickle.SessionTimeout)
	if err != nil {
		h.internalError(c, "Failed to sweep idle sessions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"completed": closed})
}

func (h *Handler) ListSessions(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")
	collectorID := c.Param("id")

	if _, err := h.repo.GetCollector(tenantID, userID, collectorID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collector not found"})
			return
		}
		h.internalError(c, "Failed to get collector", err)
		return
	}

	sessions, err := h.repo.ListSessions(tenantID, userID, collectorID)
	if err != nil {
		h.internalError(c, "Failed to list sessions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *Handler) CompleteSession(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	session, err := h.repo.GetSession(tenantID, userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		h.internalError(c, "Failed to get session", err)
		return
	}

	if err := h.repo.CompleteSession(session.ID); err != nil {
		if errors.Is(err, db.ErrInvalidState) {
			c.JSON(http.StatusConflict, gin.H{"error": "invalid_state", "detail": "Session is not active"})
			return
		}
		h.internalError(c, "Failed to complete session", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
