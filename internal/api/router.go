package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Dan-MapMAchina/XATSimplified/internal/api/handlers"
	"github.com/Dan-MapMAchina/XATSimplified/internal/api/middleware"
	"github.com/Dan-MapMAchina/XATSimplified/internal/auth"
	"github.com/Dan-MapMAchina/XATSimplified/internal/config"
	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
	"github.com/Dan-MapMAchina/XATSimplified/internal/metrics"
	"github.com/Dan-MapMAchina/XATSimplified/internal/storage/files"
	"github.com/Dan-MapMAchina/XATSimplified/internal/storage/redis"
)

type Server struct {
	Config  *config.Config
	Router  *gin.Engine
	Repo    *db.Repository
	Handler *handlers.Handler
}

func NewServer(
	cfg *config.Config,
	repo *db.Repository,
	tokens *auth.Service,
	cache *redis.Client,
	fileStore *files.Store,
	mc *metrics.Collector,
	logger *zap.Logger,
) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger, mc))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	h := handlers.NewHandler(repo, tokens, cache, fileStore, mc, cfg, logger)

	server := &Server{
		Config:  cfg,
		Router:  router,
		Repo:    repo,
		Handler: h,
	}

	server.setupRoutes(tokens, mc, logger)
	return server
}

func (s *Server) setupRoutes(tokens *auth.Service, mc *metrics.Collector, logger *zap.Logger) {
	h := s.Handler
	rl := s.Config.RateLimit

	authLimit := middleware.NewRateLimiter(rl.Auth, rl.Enabled)
	apiLimit := middleware.NewRateLimiter(rl.API, rl.Enabled)
	uploadLimit := middleware.NewRateLimiter(rl.Upload, rl.Enabled)
	trickleLimit := middleware.NewRateLimiter(rl.Trickle, rl.Enabled)

	// Health and observability
	s.Router.GET("/health", h.Health)
	s.Router.GET("/ready", h.Ready)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth routes (anonymous, keyed by client IP)
	anon := s.Router.Group("/api/v1/auth")
	anon.Use(middleware.RateLimit(authLimit, "auth", mc))
	{
		anon.POST("/register", h.Register)
		anon.POST("/token", h.ObtainToken)
		anon.POST("/token/refresh", h.RefreshToken)
		anon.POST("/token/verify", h.VerifyToken)
	}

	// Auth routes requiring a session
	account := s.Router.Group("/api/v1/auth")
	account.Use(middleware.AuthRequired(tokens))
	account.Use(middleware.RateLimit(apiLimit, "api", mc))
	{
		account.GET("/user", h.CurrentUser)
		account.POST("/logout", h.Logout)
		account.POST("/password/change", h.ChangePassword)
	}

	// Dashboard routes (bearer token)
	api := s.Router.Group("/api/v1")
	api.Use(middleware.AuthRequired(tokens))
	api.Use(middleware.RateLimit(apiLimit, "api", mc))
	{
		api.GET("/collectors", h.ListCollectors)
		api.POST("/collectors", h.CreateCollector)
		api.GET("/collectors/:id", h.GetCollector)
		api.PUT("/collectors/:id", h.UpdateCollector)
		api.DELETE("/collectors/:id", h.DeleteCollector)
		api.POST("/collectors/:id/regenerate-key", h.RegenerateAPIKey)

		api.GET("/collectors/:id/data", h.ListCollectedData)
		api.POST("/collectors/:id/data",
			middleware.RateLimit(uploadLimit, "upload", mc), h.UploadCollectedData)
		api.GET("/data/:id", h.GetCollectedData)
		api.DELETE("/data/:id", h.DeleteCollectedData)

		api.GET("/benchmarks", h.ListBenchmarks)
		api.POST("/benchmarks", h.CreateBenchmark)
		api.GET("/benchmarks/stats", h.BenchmarkStats)
		api.GET("/benchmarks/:id", h.GetBenchmark)
		api.PATCH("/benchmarks/:id", h.UpdateBenchmark)
		api.DELETE("/benchmarks/:id", h.DeleteBenchmark)

		api.GET("/loadtest", h.ListLoadTests)
		api.POST("/loadtest", h.CreateLoadTest)
		api.POST("/loadtest/compare", h.CompareLoadTests)
		api.GET("/loadtest/:id", h.GetLoadTest)
		api.DELETE("/loadtest/:id", h.DeleteLoadTest)

		api.GET("/collectors/:id/metrics", h.CollectorMetrics)
		api.GET("/sessions/:id/data", h.SessionMetrics)

		api.GET("/trickle/active", h.ActiveSessions)
		api.POST("/trickle/check-inactive", h.CheckInactiveSessions)
		api.GET("/collectors/:id/sessions", h.ListSessions)
		api.POST("/sessions/:id/complete", h.CompleteSession)
	}

	// Agent routes (per-collector API key)
	agent := s.Router.Group("/api/v1")
	agent.Use(middleware.APIKeyAuth(s.Repo, mc, logger))
	agent.Use(middleware.RateLimit(trickleLimit, "trickle", mc))
	{
		agent.POST("/register", h.AgentRegister)
		agent.POST("/metrics", h.AgentMetrics)
	}
}
