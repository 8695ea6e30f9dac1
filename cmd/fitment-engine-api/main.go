// Package main provides the Fitment Engine API server entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/cache"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/catalog"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/config"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/monitoring"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

func main() {
	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "fitment-engine",
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Str("cache", cfg.Cache.Driver).
		Msg("Starting Fitment Engine API")

	// Open database and bring the schema current
	ctx := context.Background()
	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open database")
		os.Exit(1)
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db, cfg.Database.Driver); err != nil {
		logger.Error().Err(err).Msg("Failed to run migrations")
		os.Exit(1)
	}

	repos := storage.NewRepositories(db)
	cacheClient := newCacheClient(logger, cfg.Cache)
	defer cacheClient.Close()

	// Audit trail is optional and never blocks resolution
	var audit *monitoring.AuditWriter
	if cfg.Audit.Enabled {
		audit = monitoring.NewAuditWriter(logger, repos.Audit, monitoring.AuditConfig{
			BufferSize:    cfg.Audit.BufferSize,
			FlushInterval: cfg.Audit.FlushInterval,
			EnableAsync:   true,
			IncludeDetail: true,
		})
		defer audit.Stop()
	}

	engine := catalog.NewEngine(logger, repos, cacheClient, audit, catalog.EngineConfig{})

	// Create app config
	appCfg := &AppConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		CacheTTL:       cfg.Cache.TTL,
	}

	// Initialize router with all handlers
	router := NewRouter(logger, db, repos, cacheClient, engine, appCfg)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt or error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}

// newCacheClient builds the configured cache. An unreachable redis degrades
// to the in-memory cache so the API still serves.
func newCacheClient(logger *observability.Logger, cfg config.CacheConfig) cache.Client {
	if cfg.Driver == "redis" {
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   cfg.KeyPrefix + ":",
		})
		if err == nil {
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to redis cache")
			return client
		}
		logger.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory cache")
	}
	return cache.NewMemoryClient(cfg.MaxEntries)
}
