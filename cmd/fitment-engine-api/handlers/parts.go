package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/cache"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/catalog"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// PartsHandler handles part identity and pricing requests.
type PartsHandler struct {
	logger *observability.Logger
	engine *catalog.Engine
	repos  *storage.Repositories
	view   *storage.CatalogViewRepository
	cache  cache.Client
}

// NewPartsHandler creates a new parts handler. The cache client is optional.
func NewPartsHandler(
	logger *observability.Logger,
	engine *catalog.Engine,
	repos *storage.Repositories,
	view *storage.CatalogViewRepository,
	cacheClient cache.Client,
) *PartsHandler {
	return &PartsHandler{
		logger: logger,
		engine: engine,
		repos:  repos,
		view:   view,
		cache:  cacheClient,
	}
}

// ListPartsResponse is the catalog listing payload.
type ListPartsResponse struct {
	Parts      []*storage.Part `json:"parts"`
	TotalCount int             `json:"total_count"`
}

// ListPricingResponse is the pricing history payload for one part.
type ListPricingResponse struct {
	PartID    uuid.UUID                  `json:"part_id"`
	Snapshots []*storage.PricingSnapshot `json:"snapshots"`
}

// Upsert handles POST /v1/parts.
func (h *PartsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var input catalog.UpsertPartInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	input.Actor = actorFrom(r)

	result, err := h.engine.UpsertPart(r.Context(), input)
	if err != nil {
		h.logger.Warn().Err(err).Str("manufacturer", input.Manufacturer).Msg("Part upsert rejected")
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if result.IsNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// Get handles GET /v1/parts/{partID}.
func (h *PartsHandler) Get(w http.ResponseWriter, r *http.Request) {
	partID, err := uuid.Parse(chi.URLParam(r, "partID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid part id", err.Error())
		return
	}

	part, err := h.repos.Parts.GetByID(r.Context(), partID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, part)
}

// List handles GET /v1/parts. Filters come from query parameters; results for
// cacheable filter shapes are served from the catalog cache using the view's
// own hint, so part writes invalidate them by prefix.
func (h *PartsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := storage.CatalogQuery{
		Manufacturer: r.URL.Query().Get("manufacturer"),
		VehicleSlug:  r.URL.Query().Get("vehicle"),
		ActiveOnly:   r.URL.Query().Get("active") != "false",
		Limit:        intQuery(r, "limit", 100),
		Offset:       intQuery(r, "offset", 0),
	}
	if v := r.URL.Query().Get("category"); v != "" {
		q.Category = storage.PartCategory(v)
		if !q.Category.Valid() {
			writeError(w, http.StatusBadRequest, "unknown category", v)
			return
		}
	}
	if v := r.URL.Query().Get("quality_tier"); v != "" {
		q.QualityTier = storage.QualityTier(v)
		if !q.QualityTier.Valid() {
			writeError(w, http.StatusBadRequest, "unknown quality tier", v)
			return
		}
	}

	ctx := r.Context()
	hint := h.view.CacheHintFor(q)
	if hint.Cacheable {
		if raw := cacheGet(ctx, h.cache, hint.Key); raw != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Write(raw)
			return
		}
	}

	result, err := h.view.Query(ctx, q)
	if err != nil {
		h.logger.Error().Err(err).Msg("Catalog query failed")
		writeServiceError(w, err)
		return
	}

	resp := ListPartsResponse{Parts: result.Parts, TotalCount: result.TotalCount}
	if resp.Parts == nil {
		resp.Parts = []*storage.Part{}
	}

	if hint.Cacheable {
		if payload, err := json.Marshal(resp); err == nil {
			cachePut(ctx, h.cache, hint.Key, hint.TTL, payload)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddPricing handles POST /v1/parts/{partID}/pricing.
func (h *PartsHandler) AddPricing(w http.ResponseWriter, r *http.Request) {
	partID, err := uuid.Parse(chi.URLParam(r, "partID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid part id", err.Error())
		return
	}

	var input catalog.AddVendorPricingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	input.PartID = partID

	snapshot, err := h.engine.AddVendorPricing(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot)
}

// ListPricing handles GET /v1/parts/{partID}/pricing.
func (h *PartsHandler) ListPricing(w http.ResponseWriter, r *http.Request) {
	partID, err := uuid.Parse(chi.URLParam(r, "partID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid part id", err.Error())
		return
	}

	snapshots, err := h.repos.Pricing.ListByPart(r.Context(), partID, intQuery(r, "limit", 30))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if snapshots == nil {
		snapshots = []*storage.PricingSnapshot{}
	}
	writeJSON(w, http.StatusOK, ListPricingResponse{PartID: partID, Snapshots: snapshots})
}

func intQuery(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
