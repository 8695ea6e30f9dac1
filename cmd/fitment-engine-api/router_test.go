package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/cache"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/catalog"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/config"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	db, err := storage.Open(context.Background(), config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:", MaxOpenConns: 1},
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(context.Background(), db, "sqlite"))

	logger := observability.NewLogger(observability.LogConfig{
		Level:       "error",
		Format:      "json",
		Output:      io.Discard,
		ServiceName: "api-test",
	})
	repos := storage.NewRepositories(db)
	cacheClient := cache.NewMemoryClient(1000)
	engine := catalog.NewEngine(logger, repos, cacheClient, nil, catalog.EngineConfig{})

	return NewRouter(logger, db, repos, cacheClient, engine, DefaultAppConfig())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func upsertTestPart(t *testing.T, h http.Handler, manufacturer, name, category string) uuid.UUID {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/v1/parts", map[string]interface{}{
		"manufacturer": manufacturer,
		"name":         name,
		"category":     category,
		"confidence":   0.9,
	})
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, rec.Code, rec.Body.String())

	var resp struct {
		Part storage.Part `json:"part"`
	}
	decodeBody(t, rec, &resp)
	return resp.Part.ID
}

func TestHealthAndReady(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = doJSON(t, router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}

func TestPartUpsertLifecycle(t *testing.T) {
	router := newTestRouter(t)

	body := map[string]interface{}{
		"manufacturer": "APR",
		"name":         "Carbon Fiber Intake",
		"category":     "intake",
		"quality_tier": "premium",
		"confidence":   0.9,
	}

	rec := doJSON(t, router, http.MethodPost, "/v1/parts", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var first struct {
		Part      storage.Part `json:"part"`
		IsNew     bool         `json:"is_new"`
		MatchTier string       `json:"match_tier"`
	}
	decodeBody(t, rec, &first)
	assert.True(t, first.IsNew)
	assert.Equal(t, "inserted", first.MatchTier)
	assert.Equal(t, "Carbon Fiber Intake", first.Part.Name)

	// Same identity again resolves instead of duplicating.
	rec = doJSON(t, router, http.MethodPost, "/v1/parts", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var second struct {
		Part      storage.Part `json:"part"`
		IsNew     bool         `json:"is_new"`
		MatchTier string       `json:"match_tier"`
	}
	decodeBody(t, rec, &second)
	assert.False(t, second.IsNew)
	assert.Equal(t, "identity", second.MatchTier)
	assert.Equal(t, first.Part.ID, second.Part.ID)

	rec = doJSON(t, router, http.MethodGet, "/v1/parts/"+first.Part.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched storage.Part
	decodeBody(t, rec, &fetched)
	assert.Equal(t, first.Part.ID, fetched.ID)
	assert.Equal(t, "APR", fetched.Manufacturer)

	rec = doJSON(t, router, http.MethodGet, "/v1/parts/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/parts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPartUpsertRejectsRetailer(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/parts", map[string]interface{}{
		"manufacturer": "ECS Tuning",
		"name":         "Luft-Technik Intake",
		"category":     "intake",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponsePayload
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp.Error, "manufacturer rejected")
}

// ErrorResponsePayload mirrors the handlers' error shape for assertions.
type ErrorResponsePayload struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func TestPartUpsertRejectsBadInput(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/parts", map[string]interface{}{
		"manufacturer": "APR",
		"name":         "Something",
		"category":     "flux_capacitor",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/parts", map[string]interface{}{
		"manufacturer": "",
		"name":         "",
		"category":     "intake",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPartListFiltering(t *testing.T) {
	router := newTestRouter(t)

	upsertTestPart(t, router, "APR", "Carbon Fiber Intake", "intake")
	upsertTestPart(t, router, "APR", "Cat Back Exhaust", "exhaust")
	upsertTestPart(t, router, "Bilstein", "B16 Coilover Kit", "suspension")

	rec := doJSON(t, router, http.MethodGet, "/v1/parts?manufacturer=APR", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Parts      []storage.Part `json:"parts"`
		TotalCount int            `json:"total_count"`
	}
	decodeBody(t, rec, &resp)
	assert.Len(t, resp.Parts, 2)

	rec = doJSON(t, router, http.MethodGet, "/v1/parts?category=suspension", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Parts, 1)
	assert.Equal(t, "Bilstein", resp.Parts[0].Manufacturer)

	rec = doJSON(t, router, http.MethodGet, "/v1/parts?category=warp_drive", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPricingEndpoints(t *testing.T) {
	router := newTestRouter(t)
	partID := upsertTestPart(t, router, "APR", "Stage 1 ECU Tune", "tune")

	rec := doJSON(t, router, http.MethodPost, "/v1/parts/"+partID.String()+"/pricing", map[string]interface{}{
		"vendor_key":  "ecs-tuning",
		"price_cents": 64999,
		"in_stock":    true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var snapshot storage.PricingSnapshot
	decodeBody(t, rec, &snapshot)
	assert.Equal(t, "ECS Tuning", snapshot.VendorName)
	assert.Equal(t, int64(64999), snapshot.PriceCents)

	rec = doJSON(t, router, http.MethodGet, "/v1/parts/"+partID.String()+"/pricing", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		PartID    uuid.UUID                 `json:"part_id"`
		Snapshots []storage.PricingSnapshot `json:"snapshots"`
	}
	decodeBody(t, rec, &listing)
	assert.Equal(t, partID, listing.PartID)
	assert.Len(t, listing.Snapshots, 1)

	// Zero price never stores.
	rec = doJSON(t, router, http.MethodPost, "/v1/parts/"+partID.String()+"/pricing", map[string]interface{}{
		"vendor_key":  "ecs-tuning",
		"price_cents": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFitmentEndpointsAndCacheInvalidation(t *testing.T) {
	router := newTestRouter(t)
	first := upsertTestPart(t, router, "APR", "Carbon Fiber Intake", "intake")
	second := upsertTestPart(t, router, "Injen", "Cold Air Intake", "intake")

	rec := doJSON(t, router, http.MethodPost, "/v1/fitments", map[string]interface{}{
		"part_id":      first,
		"vehicle_slug": "audi-rs3-8v",
		"confidence":   0.9,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/v1/vehicles/audi-rs3-8v/fitments", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		VehicleSlug string                `json:"vehicle_slug"`
		Fitments    []storage.PartFitment `json:"fitments"`
	}
	decodeBody(t, rec, &listing)
	require.Len(t, listing.Fitments, 1)
	assert.Equal(t, first, listing.Fitments[0].PartID)

	// The listing above is now cached; a write for the same vehicle must
	// invalidate it so the next read sees both rows.
	rec = doJSON(t, router, http.MethodPost, "/v1/fitments", map[string]interface{}{
		"part_id":      second,
		"vehicle_slug": "audi-rs3-8v",
		"confidence":   0.8,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/vehicles/audi-rs3-8v/fitments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &listing)
	assert.Len(t, listing.Fitments, 2)
}

func TestRecommendationEndpoints(t *testing.T) {
	router := newTestRouter(t)
	first := upsertTestPart(t, router, "APR", "Stage 1 ECU Tune", "tune")
	second := upsertTestPart(t, router, "Unitronic", "Stage 1 Tune", "tune")

	rec := doJSON(t, router, http.MethodPost, "/v1/recommendations", map[string]interface{}{
		"vehicle_slug": "audi-rs3-8v",
		"upgrade_key":  "stage-1",
		"part_id":      first,
		"rank":         1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	listPath := "/v1/vehicles/audi-rs3-8v/recommendations?upgrade=stage-1"
	rec = doJSON(t, router, http.MethodGet, listPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Recommendations []storage.AdvisorRecommendation `json:"recommendations"`
	}
	decodeBody(t, rec, &listing)
	require.Len(t, listing.Recommendations, 1)
	assert.Equal(t, first, listing.Recommendations[0].PartID)

	// Saving another part at the same rank displaces the occupant.
	rec = doJSON(t, router, http.MethodPost, "/v1/recommendations", map[string]interface{}{
		"vehicle_slug": "audi-rs3-8v",
		"upgrade_key":  "stage-1",
		"part_id":      second,
		"rank":         1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, listPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &listing)
	require.Len(t, listing.Recommendations, 1)
	assert.Equal(t, second, listing.Recommendations[0].PartID)

	// Missing upgrade key is a client error.
	rec = doJSON(t, router, http.MethodGet, "/v1/vehicles/audi-rs3-8v/recommendations", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/resolve/tag", map[string]interface{}{
		"tag": "8V-RS3",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var tagResp struct {
		Resolved bool `json:"resolved"`
		Match    *struct {
			VehicleSlug string  `json:"vehicle_slug"`
			Confidence  float64 `json:"confidence"`
		} `json:"match"`
	}
	decodeBody(t, rec, &tagResp)
	require.True(t, tagResp.Resolved)
	assert.Equal(t, "audi-rs3-8v", tagResp.Match.VehicleSlug)
	assert.InDelta(t, 0.85, tagResp.Match.Confidence, 0.001)

	// Unmatched tags are a normal outcome.
	rec = doJSON(t, router, http.MethodPost, "/v1/resolve/tag", map[string]interface{}{
		"tag": "lawnmower",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &tagResp)
	assert.False(t, tagResp.Resolved)

	rec = doJSON(t, router, http.MethodPost, "/v1/resolve/tags", map[string]interface{}{
		"tags": []string{"8V-RS3", "RS3", "MK7 GTI"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var tagsResp struct {
		Matches []struct {
			VehicleSlug string   `json:"vehicle_slug"`
			Confidence  float64  `json:"confidence"`
			Tags        []string `json:"tags"`
		} `json:"matches"`
	}
	decodeBody(t, rec, &tagsResp)
	require.Len(t, tagsResp.Matches, 2)
	assert.Equal(t, "audi-rs3-8v", tagsResp.Matches[0].VehicleSlug)
	assert.Len(t, tagsResp.Matches[0].Tags, 2)
}

func TestSuggestFitments(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/suggest/fitments", map[string]interface{}{
		"tags":       []string{"8V-RS3"},
		"vendor_key": "ecs-tuning",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Suggestions []struct {
			VehicleSlug string  `json:"vehicle_slug"`
			Confidence  float64 `json:"confidence"`
		} `json:"suggestions"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, "audi-rs3-8v", resp.Suggestions[0].VehicleSlug)
	assert.InDelta(t, 0.85, resp.Suggestions[0].Confidence, 0.001)
}

func TestResearchParts(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/research/parts", map[string]interface{}{
		"vehicle_slug": "audi-rs3-8v",
		"upgrade_key":  "intake",
		"parts": []map[string]interface{}{
			{
				"manufacturer":       "APR",
				"name":               "Carbon Fiber Intake",
				"category":           "intake",
				"fitment_confidence": 0.9,
				"rank":               1,
			},
			{
				"manufacturer":       "Eventuri",
				"name":               "Black Carbon Intake",
				"category":           "intake",
				"fitment_confidence": 0.95,
				"rank":               2,
			},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Saved   int         `json:"saved"`
		Failed  int         `json:"failed"`
		PartIDs []uuid.UUID `json:"part_ids"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp.Saved)
	assert.Zero(t, resp.Failed)
	assert.Len(t, resp.PartIDs, 2)

	rec = doJSON(t, router, http.MethodGet, "/v1/vehicles/audi-rs3-8v/recommendations?upgrade=intake", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Recommendations []storage.AdvisorRecommendation `json:"recommendations"`
	}
	decodeBody(t, rec, &listing)
	assert.Len(t, listing.Recommendations, 2)
}

func TestVendorEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/vendors", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Vendors []struct {
			Key string `json:"key"`
		} `json:"vendors"`
	}
	decodeBody(t, rec, &listing)
	assert.NotEmpty(t, listing.Vendors)

	rec = doJSON(t, router, http.MethodGet, "/v1/vendors/ecs-tuning", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ECS Tuning")

	rec = doJSON(t, router, http.MethodGet, "/v1/vendors/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolutionMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	upsertTestPart(t, router, "APR", "Carbon Fiber Intake", "intake")

	rec := doJSON(t, router, http.MethodGet, "/v1/metrics/resolution", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot struct {
		Inserts int64 `json:"inserts"`
	}
	decodeBody(t, rec, &snapshot)
	assert.Equal(t, int64(1), snapshot.Inserts)
}

func TestConnectRPCMounted(t *testing.T) {
	router := newTestRouter(t)

	// Connect unary procedures accept plain JSON POSTs.
	rec := doJSON(t, router, http.MethodPost, "/rpc/driveline.fitment.v1.ResolutionService/ResolveTag", map[string]interface{}{
		"tag": "8V-RS3",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Resolved    bool   `json:"resolved"`
		VehicleSlug string `json:"vehicle_slug"`
	}
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Resolved)
	assert.Equal(t, "audi-rs3-8v", resp.VehicleSlug)
}
