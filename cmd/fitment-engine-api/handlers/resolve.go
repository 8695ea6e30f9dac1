package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/catalog"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/platform"
)

// ResolveHandler handles platform tag resolution requests.
type ResolveHandler struct {
	logger *observability.Logger
	engine *catalog.Engine
}

// NewResolveHandler creates a new resolve handler.
func NewResolveHandler(logger *observability.Logger, engine *catalog.Engine) *ResolveHandler {
	return &ResolveHandler{logger: logger, engine: engine}
}

// ResolveTagRequest asks which vehicle a single tag identifies.
type ResolveTagRequest struct {
	Tag      string   `json:"tag"`
	Families []string `json:"families,omitempty"`
}

// ResolveTagResponse carries the match, if any. An unmatched tag is a normal
// outcome, not an error.
type ResolveTagResponse struct {
	Resolved bool            `json:"resolved"`
	Match    *platform.Match `json:"match,omitempty"`
}

// ResolveTagsRequest asks for aggregated resolution over a tag set.
type ResolveTagsRequest struct {
	Tags     []string `json:"tags"`
	Families []string `json:"families,omitempty"`
}

// ResolveTagsResponse lists one aggregate per resolved vehicle.
type ResolveTagsResponse struct {
	Matches []platform.Aggregate `json:"matches"`
}

// Tag handles POST /v1/resolve/tag.
func (h *ResolveHandler) Tag(w http.ResponseWriter, r *http.Request) {
	var req ResolveTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Tag == "" {
		writeError(w, http.StatusBadRequest, "tag is required", "")
		return
	}

	match := h.engine.ResolveCarSlugFromTag(req.Tag, req.Families)
	writeJSON(w, http.StatusOK, ResolveTagResponse{Resolved: match != nil, Match: match})
}

// Tags handles POST /v1/resolve/tags.
func (h *ResolveHandler) Tags(w http.ResponseWriter, r *http.Request) {
	var req ResolveTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.Tags) == 0 {
		writeError(w, http.StatusBadRequest, "tags are required", "")
		return
	}

	matches := h.engine.ResolveCarSlugsFromTags(req.Tags, req.Families)
	if matches == nil {
		matches = []platform.Aggregate{}
	}
	writeJSON(w, http.StatusOK, ResolveTagsResponse{Matches: matches})
}
