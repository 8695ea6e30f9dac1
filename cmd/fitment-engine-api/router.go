// Package main provides the API router setup.
package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/driveline-ai/driveline/libs/fitment-engine/cmd/fitment-engine-api/handlers"
	"github.com/driveline-ai/driveline/libs/fitment-engine/cmd/fitment-engine-api/middleware"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/api/rpc"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/cache"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/catalog"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// NewRouter creates the main API router with all routes configured.
func NewRouter(
	logger *observability.Logger,
	db *sql.DB,
	repos *storage.Repositories,
	cacheClient cache.Client,
	engine *catalog.Engine,
	cfg *AppConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"fitment-engine"}`))
	})

	// Readiness requires a reachable database; everything else degrades.
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable","reason":"database unreachable"}`))
			return
		}
		w.Write([]byte(`{"status":"ready"}`))
	})

	view := storage.NewCatalogViewRepository(db)

	// Initialize handlers
	partsHandler := handlers.NewPartsHandler(logger, engine, repos, view, cacheClient)
	fitmentsHandler := handlers.NewFitmentsHandler(logger, engine, repos, cacheClient, cfg.CacheTTL)
	recsHandler := handlers.NewRecommendationsHandler(logger, engine, cacheClient, cfg.CacheTTL)
	resolveHandler := handlers.NewResolveHandler(logger, engine)
	vendorsHandler := handlers.NewVendorsHandler(logger)

	// REST routes
	r.Route("/v1", func(r chi.Router) {
		r.Route("/parts", func(r chi.Router) {
			r.Post("/", partsHandler.Upsert)
			r.Get("/", partsHandler.List)
			r.Route("/{partID}", func(r chi.Router) {
				r.Get("/", partsHandler.Get)
				r.Post("/pricing", partsHandler.AddPricing)
				r.Get("/pricing", partsHandler.ListPricing)
			})
		})

		r.Post("/fitments", fitmentsHandler.Add)
		r.Post("/recommendations", recsHandler.Save)

		r.Route("/vehicles/{vehicleSlug}", func(r chi.Router) {
			r.Get("/fitments", fitmentsHandler.ListByVehicle)
			r.Get("/recommendations", recsHandler.ListByVehicle)
		})

		r.Route("/resolve", func(r chi.Router) {
			r.Post("/tag", resolveHandler.Tag)
			r.Post("/tags", resolveHandler.Tags)
		})
		r.Post("/suggest/fitments", fitmentsHandler.Suggest)
		r.Post("/research/parts", recsHandler.Research)

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", vendorsHandler.List)
			r.Get("/{vendorKey}", vendorsHandler.Get)
		})

		r.Get("/metrics/resolution", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(engine.Metrics().Snapshot())
		})
	})

	// Connect RPC surface
	rpcService := rpc.NewResolutionService(logger, engine)
	rpcPath, rpcHandler := rpc.NewResolutionServiceHandler(rpcService)
	r.Handle("/rpc"+rpcPath+"*", http.StripPrefix("/rpc", rpcHandler))

	return r
}

// AppConfig holds application configuration.
type AppConfig struct {
	RequestTimeout time.Duration
	CacheTTL       time.Duration
}

// DefaultAppConfig returns default configuration values.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		RequestTimeout: 60 * time.Second,
		CacheTTL:       5 * time.Minute,
	}
}
