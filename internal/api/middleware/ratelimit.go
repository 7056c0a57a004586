package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
	"github.com/Dan-MapMAchina/XATSimplified/internal/metrics"
)

// RateLimiter enforces a requests-per-minute budget per credential for one
// endpoint class. State is in-process; each credential gets its own token
// bucket with the full minute budget as burst.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	enabled  bool
}

func NewRateLimiter(perMinute int, enabled bool) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		enabled:  enabled && perMinute > 0,
	}
}

func (l *RateLimiter) Allow(key string) bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// RateLimit rejects over-budget requests with 429 before any handler state
// changes. The credential key is the authenticated user, the collector
// resolved from an API key, or the client IP for anonymous endpoints.
func RateLimit(l *RateLimiter, class string, mc *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(credentialKey(c)) {
			mc.RateLimited(class)
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func credentialKey(c *gin.Context) string {
	if userID := c.GetString("user_id"); userID != "" {
		return "user:" + userID
	}
	if v, ok := c.Get(CollectorKey); ok {
		if collector, ok := v.(*db.Collector); ok {
			return "collector:" + collector.ID
		}
	}
	return "ip:" + c.ClientIP()
}
