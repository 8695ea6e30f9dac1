// Package handlers provides HTTP handlers for the Fitment Engine API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/cache"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/catalog"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// ErrorResponse is the payload for all non-2xx responses.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an ErrorResponse with the given status.
func writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, ErrorResponse{Error: message, Detail: detail})
}

// writeServiceError maps a service error onto its HTTP status. Rejected
// manufacturers are semantically valid requests the engine refuses to store,
// hence 422 instead of 400.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error(), "")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrRejectedManufacturer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// actorFrom identifies the writer for audit attribution. Callers may label
// themselves via the X-Actor header; everything else is attributed to the API.
func actorFrom(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get("X-Actor")); actor != "" {
		return actor
	}
	return "api"
}

// cacheGet returns the cached payload for key, or nil on miss or when caching
// is disabled. Cache errors degrade to a miss.
func cacheGet(ctx context.Context, c cache.Client, key string) []byte {
	if c == nil {
		return nil
	}
	raw, err := c.Get(ctx, key)
	if err != nil {
		return nil
	}
	return raw
}

// cachePut stores a response payload. Failures are silent; the next read
// simply misses.
func cachePut(ctx context.Context, c cache.Client, key string, ttl time.Duration, payload []byte) {
	if c == nil || ttl <= 0 {
		return
	}
	_ = c.Set(ctx, key, payload, ttl)
}
