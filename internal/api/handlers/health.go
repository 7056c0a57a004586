package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "xat-api",
		"time":    time.Now().Unix(),
	})
}

// Ready gates traffic on Postgres. Redis is best-effort everywhere it is
// used, so a cache outage only degrades the report.
func (h *Handler) Ready(c *gin.Context) {
	checks := gin.H{"database": "ok"}

	if err := h.repo.Ping(); err != nil {
		checks["database"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"checks": checks,
		})
		return
	}

	status := "ready"
	if h.cache != nil {
		checks["cache"] = "ok"
		if err := h.cache.Ping(c.Request.Context()).Err(); err != nil {
			checks["cache"] = "unreachable"
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}
