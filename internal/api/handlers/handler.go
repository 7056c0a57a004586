package handlers

import (
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Dan-MapMAchina/XATSimplified/internal/auth"
	"github.com/Dan-MapMAchina/XATSimplified/internal/config"
	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
	"github.com/Dan-MapMAchina/XATSimplified/internal/metrics"
	"github.com/Dan-MapMAchina/XATSimplified/internal/storage/files"
	"github.com/Dan-MapMAchina/XATSimplified/internal/storage/redis"
)

type Handler struct {
	repo    *db.Repository
	tokens  *auth.Service
	cache   *redis.Client
	files   *files.Store
	metrics *metrics.Collector
	config  *config.Config
	logger  *zap.Logger
}

func NewHandler(
	repo *db.Repository,
	tokens *auth.Service,
	cache *redis.Client,
	fileStore *files.Store,
	mc *metrics.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		repo:    repo,
		tokens:  tokens,
		cache:   cache,
		files:   fileStore,
		metrics: mc,
		config:  cfg,
		logger:  logger,
	}
}

// internalError reports an unexpected failure to the log and error tracker
// and returns an opaque 500 to the caller.
func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err), zap.String("path", c.Request.URL.Path))
	sentry.CaptureException(err)
	c.JSON(500, gin.H{"error": "Internal server error"})
}
