package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/vendors"
)

// VendorsHandler serves the static vendor registry.
type VendorsHandler struct {
	logger *observability.Logger
}

// NewVendorsHandler creates a new vendors handler.
func NewVendorsHandler(logger *observability.Logger) *VendorsHandler {
	return &VendorsHandler{logger: logger}
}

// ListVendorsResponse lists the registered vendors.
type ListVendorsResponse struct {
	Vendors []vendors.Vendor `json:"vendors"`
}

// List handles GET /v1/vendors.
func (h *VendorsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ListVendorsResponse{Vendors: vendors.All()})
}

// Get handles GET /v1/vendors/{vendorKey}.
func (h *VendorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "vendorKey")
	vendor, ok := vendors.ByKey(key)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown vendor", key)
		return
	}
	writeJSON(w, http.StatusOK, vendor)
}
