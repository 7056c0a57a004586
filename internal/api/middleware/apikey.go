package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
	"github.com/Dan-MapMAchina/XATSimplified/internal/metrics"
)

const CollectorKey = "collector"

// APIKeyAuth authenticates agent-plane requests from a per-collector key.
// Accepts "Authorization: ApiKey <key>" (Bearer tolerated for older pcc
// builds) or an api_key query parameter. The resolved collector is the only
// identity the request carries; a client-supplied collector id is never
// trusted.
func APIKeyAuth(repo *db.Repository, mc *metrics.Collector, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := extractAPIKey(c)
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			c.Abort()
			return
		}

		collector, err := repo.GetCollectorByKey(key)
		if err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				logger.Error("API key lookup failed", zap.Error(err))
			}
			mc.APIKeyRejected()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Set(CollectorKey, collector)
		c.Next()
	}
}

func extractAPIKey(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "ApiKey ") {
		return strings.TrimPrefix(authHeader, "ApiKey ")
	}
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return c.Query("api_key")
}

// CollectorFrom returns the collector the API key middleware resolved.
func CollectorFrom(c *gin.Context) *db.Collector {
	v, ok := c.Get(CollectorKey)
	if !ok {
		return nil
	}
	collector, _ := v.(*db.Collector)
	return collector
}
