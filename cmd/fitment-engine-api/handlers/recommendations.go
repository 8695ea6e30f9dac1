package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/cache"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/catalog"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// RecommendationsHandler handles advisor rank-slot writes, vehicle-scoped
// reads and the bulk researched-part pipeline.
type RecommendationsHandler struct {
	logger   *observability.Logger
	engine   *catalog.Engine
	cache    cache.Client
	cacheTTL time.Duration
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(
	logger *observability.Logger,
	engine *catalog.Engine,
	cacheClient cache.Client,
	cacheTTL time.Duration,
) *RecommendationsHandler {
	return &RecommendationsHandler{
		logger:   logger,
		engine:   engine,
		cache:    cacheClient,
		cacheTTL: cacheTTL,
	}
}

// VehicleRecommendationsResponse lists the ranked picks for one upgrade slot.
type VehicleRecommendationsResponse struct {
	VehicleSlug     string                           `json:"vehicle_slug"`
	UpgradeKey      string                           `json:"upgrade_key"`
	Recommendations []*storage.AdvisorRecommendation `json:"recommendations"`
}

// ResearchPartsRequest carries a batch of researched candidates for one
// (vehicle, upgrade) context.
type ResearchPartsRequest struct {
	VehicleSlug string                   `json:"vehicle_slug"`
	UpgradeKey  string                   `json:"upgrade_key"`
	Parts       []catalog.ResearchedPart `json:"parts"`
}

// ResearchPartsResponse reports the batch outcome.
type ResearchPartsResponse struct {
	Saved   int         `json:"saved"`
	Failed  int         `json:"failed"`
	PartIDs []uuid.UUID `json:"part_ids"`
}

// Save handles POST /v1/recommendations.
func (h *RecommendationsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var input catalog.SaveRecommendationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	input.Actor = actorFrom(r)

	rec, err := h.engine.SaveAdvisorRecommendation(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListByVehicle handles GET /v1/vehicles/{vehicleSlug}/recommendations.
// The upgrade key comes from the `upgrade` query parameter. Responses are
// cached under the vehicle prefix, which recommendation writes invalidate.
func (h *RecommendationsHandler) ListByVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleSlug := strings.ToLower(chi.URLParam(r, "vehicleSlug"))
	upgradeKey := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("upgrade")))
	if vehicleSlug == "" || upgradeKey == "" {
		writeError(w, http.StatusBadRequest, "vehicle slug and upgrade query parameter are required", "")
		return
	}

	ctx := r.Context()
	key := cache.VehicleCacheKey(vehicleSlug, "recs", upgradeKey)
	if raw := cacheGet(ctx, h.cache, key); raw != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Write(raw)
		return
	}

	recs, err := h.engine.ListRecommendations(ctx, vehicleSlug, upgradeKey)
	if err != nil {
		h.logger.Error().Err(err).Str("vehicle_slug", vehicleSlug).Msg("Recommendation listing failed")
		writeServiceError(w, err)
		return
	}
	if recs == nil {
		recs = []*storage.AdvisorRecommendation{}
	}

	resp := VehicleRecommendationsResponse{
		VehicleSlug:     vehicleSlug,
		UpgradeKey:      upgradeKey,
		Recommendations: recs,
	}
	if payload, err := json.Marshal(resp); err == nil {
		cachePut(ctx, h.cache, key, h.cacheTTL, payload)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Research handles POST /v1/research/parts. Individual candidate failures are
// tallied in the response, never failed wholesale; re-running a batch is safe.
func (h *RecommendationsHandler) Research(w http.ResponseWriter, r *http.Request) {
	var req ResearchPartsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.VehicleSlug == "" || req.UpgradeKey == "" {
		writeError(w, http.StatusBadRequest, "vehicle_slug and upgrade_key are required", "")
		return
	}
	if len(req.Parts) == 0 {
		writeError(w, http.StatusBadRequest, "parts are required", "")
		return
	}

	report := h.engine.BulkSaveResearchedParts(r.Context(), req.VehicleSlug, req.UpgradeKey, req.Parts, actorFrom(r))
	writeJSON(w, http.StatusOK, ResearchPartsResponse{
		Saved:   report.Saved,
		Failed:  report.Failed,
		PartIDs: report.PartIDs,
	})
}
