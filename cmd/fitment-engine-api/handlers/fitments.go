package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/cache"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/catalog"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// FitmentsHandler handles fitment writes, vehicle-scoped reads and
// tag-based fitment suggestions.
type FitmentsHandler struct {
	logger   *observability.Logger
	engine   *catalog.Engine
	repos    *storage.Repositories
	cache    cache.Client
	cacheTTL time.Duration
}

// NewFitmentsHandler creates a new fitments handler. The cache client is
// optional; without one every vehicle read hits the database.
func NewFitmentsHandler(
	logger *observability.Logger,
	engine *catalog.Engine,
	repos *storage.Repositories,
	cacheClient cache.Client,
	cacheTTL time.Duration,
) *FitmentsHandler {
	return &FitmentsHandler{
		logger:   logger,
		engine:   engine,
		repos:    repos,
		cache:    cacheClient,
		cacheTTL: cacheTTL,
	}
}

// SuggestFitmentsRequest asks which vehicles a set of product tags points at.
type SuggestFitmentsRequest struct {
	Tags      []string `json:"tags"`
	VendorKey string   `json:"vendor_key,omitempty"`
}

// SuggestFitmentsResponse lists the resolved vehicles with weighted confidence.
type SuggestFitmentsResponse struct {
	Suggestions []catalog.FitmentSuggestion `json:"suggestions"`
}

// VehicleFitmentsResponse lists the fitments recorded for one vehicle.
type VehicleFitmentsResponse struct {
	VehicleSlug string                 `json:"vehicle_slug"`
	Fitments    []*storage.PartFitment `json:"fitments"`
}

// Add handles POST /v1/fitments.
func (h *FitmentsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var input catalog.AddFitmentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	input.Actor = actorFrom(r)

	fitment, err := h.engine.AddFitment(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fitment)
}

// ListByVehicle handles GET /v1/vehicles/{vehicleSlug}/fitments. Responses
// are cached under the vehicle prefix, which fitment writes invalidate.
func (h *FitmentsHandler) ListByVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleSlug := strings.ToLower(chi.URLParam(r, "vehicleSlug"))
	if vehicleSlug == "" {
		writeError(w, http.StatusBadRequest, "vehicle slug is required", "")
		return
	}

	ctx := r.Context()
	key := cache.VehicleCacheKey(vehicleSlug, "fitments")
	if raw := cacheGet(ctx, h.cache, key); raw != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Write(raw)
		return
	}

	fitments, err := h.repos.Fitments.ListByVehicle(ctx, vehicleSlug)
	if err != nil {
		h.logger.Error().Err(err).Str("vehicle_slug", vehicleSlug).Msg("Fitment listing failed")
		writeServiceError(w, err)
		return
	}
	if fitments == nil {
		fitments = []*storage.PartFitment{}
	}

	resp := VehicleFitmentsResponse{VehicleSlug: vehicleSlug, Fitments: fitments}
	if payload, err := json.Marshal(resp); err == nil {
		cachePut(ctx, h.cache, key, h.cacheTTL, payload)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Suggest handles POST /v1/suggest/fitments.
func (h *FitmentsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestFitmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.Tags) == 0 {
		writeError(w, http.StatusBadRequest, "tags are required", "")
		return
	}

	suggestions := h.engine.SuggestFitments(req.Tags, req.VendorKey)
	writeJSON(w, http.StatusOK, SuggestFitmentsResponse{Suggestions: suggestions})
}
