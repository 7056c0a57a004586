package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/Dan-MapMAchina/XATSimplified/internal/api"
	"github.com/Dan-MapMAchina/XATSimplified/internal/auth"
	"github.com/Dan-MapMAchina/XATSimplified/internal/config"
	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
	"github.com/Dan-MapMAchina/XATSimplified/internal/metrics"
	"github.com/Dan-MapMAchina/XATSimplified/internal/storage/files"
	"github.com/Dan-MapMAchina/XATSimplified/internal/storage/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	var logger *zap.Logger
	if cfg.Server.Mode == "release" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal("Failed to init logger:", err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			logger.Warn("Sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Database
	conn, err := db.NewConnection(cfg.Database.URL, cfg.Database.MaxConnections, cfg.Database.MaxIdleConns)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.RunMigrations(conn); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	repo := db.NewRepository(conn)

	// Redis
	cache := redis.NewClient(cfg.Redis.URL)
	defer cache.Close()

	// File storage
	fileStore, err := files.NewStore(cfg.Storage.DataDir)
	if err != nil {
		logger.Fatal("Failed to init file storage", zap.Error(err))
	}

	mc := metrics.NewCollector()
	tokens := auth.NewService(cfg.Auth, cache)

	// API Server
	server := api.NewServer(cfg, repo, tokens, cache, fileStore, mc, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("API server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
