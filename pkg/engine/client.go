// Package engine provides the public Go SDK for the Fitment Engine.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is the public SDK client for the Fitment Engine.
type Client struct {
	baseURL    string
	apiKey     string
	actor      string
	httpClient *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	// BaseURL points at the API server. Defaults to http://localhost:8086.
	BaseURL string
	// APIKey, when set, is sent as a bearer token.
	APIKey string
	// Actor labels this client's writes in the audit trail.
	Actor string
	// HTTPClient overrides the default client and its 30s timeout.
	HTTPClient *http.Client
}

// NewClient creates a new Fitment Engine client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8086"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		actor:      cfg.Actor,
		httpClient: httpClient,
	}, nil
}

// APIError is the decoded error payload of a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("fitment engine: %s: %s (status %d)", e.Message, e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("fitment engine: %s (status %d)", e.Message, e.StatusCode)
}

// do sends one request and decodes the response into out. Non-2xx responses
// come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.actor != "" {
		req.Header.Set("X-Actor", c.actor)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var payload struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error, Detail: payload.Detail}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Part represents one catalog part identity.
type Part struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Manufacturer    string    `json:"manufacturer"`
	ManufacturerURL string    `json:"manufacturer_url,omitempty"`
	ProductURL      string    `json:"product_url,omitempty"`
	Category        string    `json:"category"`
	QualityTier     string    `json:"quality_tier"`
	Description     string    `json:"description,omitempty"`
	PartNumber      string    `json:"part_number,omitempty"`
	Confidence      float64   `json:"confidence"`
	DataSource      string    `json:"data_source,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UpsertPartRequest represents a part identity write.
type UpsertPartRequest struct {
	Manufacturer    string  `json:"manufacturer"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	PartNumber      string  `json:"part_number,omitempty"`
	ProductURL      string  `json:"product_url,omitempty"`
	ManufacturerURL string  `json:"manufacturer_url,omitempty"`
	Description     string  `json:"description,omitempty"`
	QualityTier     string  `json:"quality_tier,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	DataSource      string  `json:"data_source,omitempty"`
}

// UpsertPartResponse reports which identity the write landed on.
type UpsertPartResponse struct {
	Part      *Part  `json:"part"`
	IsNew     bool   `json:"is_new"`
	MatchTier string `json:"match_tier"`
}

// UpsertPart creates or updates a part identity through the matching cascade.
func (c *Client) UpsertPart(ctx context.Context, req UpsertPartRequest) (*UpsertPartResponse, error) {
	var out UpsertPartResponse
	if err := c.do(ctx, http.MethodPost, "/v1/parts", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPart fetches one part by ID.
func (c *Client) GetPart(ctx context.Context, partID uuid.UUID) (*Part, error) {
	var out Part
	if err := c.do(ctx, http.MethodGet, "/v1/parts/"+partID.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPartsQuery filters a catalog listing. Zero values mean unfiltered.
type ListPartsQuery struct {
	Manufacturer    string
	VehicleSlug     string
	Category        string
	QualityTier     string
	IncludeInactive bool
	Limit           int
	Offset          int
}

// ListPartsResponse represents one catalog listing page.
type ListPartsResponse struct {
	Parts      []Part `json:"parts"`
	TotalCount int    `json:"total_count"`
}

// ListParts queries the part catalog.
func (c *Client) ListParts(ctx context.Context, q ListPartsQuery) (*ListPartsResponse, error) {
	query := url.Values{}
	if q.Manufacturer != "" {
		query.Set("manufacturer", q.Manufacturer)
	}
	if q.VehicleSlug != "" {
		query.Set("vehicle", q.VehicleSlug)
	}
	if q.Category != "" {
		query.Set("category", q.Category)
	}
	if q.QualityTier != "" {
		query.Set("quality_tier", q.QualityTier)
	}
	if q.IncludeInactive {
		query.Set("active", "false")
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		query.Set("offset", strconv.Itoa(q.Offset))
	}

	var out ListPartsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/parts", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PricingSnapshot represents one daily vendor price point.
type PricingSnapshot struct {
	ID          uuid.UUID `json:"id"`
	PartID      uuid.UUID `json:"part_id"`
	VendorName  string    `json:"vendor_name"`
	VendorURL   string    `json:"vendor_url,omitempty"`
	ProductURL  string    `json:"product_url,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency"`
	InStock     bool      `json:"in_stock"`
	RecordedDay time.Time `json:"recorded_day"`
	CreatedAt   time.Time `json:"created_at"`
}

// AddPricingRequest represents a vendor price observation for one part.
type AddPricingRequest struct {
	VendorKey   string    `json:"vendor_key,omitempty"`
	VendorName  string    `json:"vendor_name,omitempty"`
	VendorURL   string    `json:"vendor_url,omitempty"`
	ProductURL  string    `json:"product_url,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency,omitempty"`
	InStock     bool      `json:"in_stock"`
	RecordedDay time.Time `json:"recorded_day,omitempty"`
}

// AddPricing records a vendor price for the part. One snapshot is kept per
// vendor and day; a repeat write for the same day updates it.
func (c *Client) AddPricing(ctx context.Context, partID uuid.UUID, req AddPricingRequest) (*PricingSnapshot, error) {
	var out PricingSnapshot
	if err := c.do(ctx, http.MethodPost, "/v1/parts/"+partID.String()+"/pricing", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PricingHistoryResponse represents a part's recent price points.
type PricingHistoryResponse struct {
	PartID    uuid.UUID         `json:"part_id"`
	Snapshots []PricingSnapshot `json:"snapshots"`
}

// ListPricing fetches a part's recent pricing history, newest first.
func (c *Client) ListPricing(ctx context.Context, partID uuid.UUID, limit int) (*PricingHistoryResponse, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var out PricingHistoryResponse
	if err := c.do(ctx, http.MethodGet, "/v1/parts/"+partID.String()+"/pricing", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Fitment represents one part-to-vehicle link.
type Fitment struct {
	ID          uuid.UUID `json:"id"`
	PartID      uuid.UUID `json:"part_id"`
	VehicleSlug string    `json:"vehicle_slug"`
	Confidence  float64   `json:"confidence"`
	Verified    bool      `json:"verified"`
	SourceURL   string    `json:"source_url,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AddFitmentRequest links a part to a vehicle.
type AddFitmentRequest struct {
	PartID      uuid.UUID `json:"part_id"`
	VehicleSlug string    `json:"vehicle_slug"`
	Confidence  float64   `json:"confidence"`
	Verified    bool      `json:"verified,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// AddFitment records a part-to-vehicle fitment.
func (c *Client) AddFitment(ctx context.Context, req AddFitmentRequest) (*Fitment, error) {
	var out Fitment
	if err := c.do(ctx, http.MethodPost, "/v1/fitments", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VehicleFitmentsResponse represents the fitments recorded for one vehicle.
type VehicleFitmentsResponse struct {
	VehicleSlug string    `json:"vehicle_slug"`
	Fitments    []Fitment `json:"fitments"`
}

// ListVehicleFitments lists the fitments recorded for a vehicle.
func (c *Client) ListVehicleFitments(ctx context.Context, vehicleSlug string) (*VehicleFitmentsResponse, error) {
	var out VehicleFitmentsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/vehicles/"+url.PathEscape(vehicleSlug)+"/fitments", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recommendation represents one ranked advisor pick.
type Recommendation struct {
	ID             uuid.UUID `json:"id"`
	VehicleSlug    string    `json:"vehicle_slug"`
	UpgradeKey     string    `json:"upgrade_key"`
	PartID         uuid.UUID `json:"part_id"`
	Rank           int       `json:"rank"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Source         string    `json:"source,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SaveRecommendationRequest represents a rank-slot write. Saving over an
// occupied slot replaces its occupant.
type SaveRecommendationRequest struct {
	VehicleSlug    string    `json:"vehicle_slug"`
	UpgradeKey     string    `json:"upgrade_key"`
	PartID         uuid.UUID `json:"part_id"`
	Rank           int       `json:"rank"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Source         string    `json:"source,omitempty"`
}

// SaveRecommendation writes an advisor pick into its rank slot.
func (c *Client) SaveRecommendation(ctx context.Context, req SaveRecommendationRequest) (*Recommendation, error) {
	var out Recommendation
	if err := c.do(ctx, http.MethodPost, "/v1/recommendations", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VehicleRecommendationsResponse represents the ranked picks for one upgrade
// slot.
type VehicleRecommendationsResponse struct {
	VehicleSlug     string           `json:"vehicle_slug"`
	UpgradeKey      string           `json:"upgrade_key"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ListVehicleRecommendations lists the ranked picks for a vehicle and upgrade
// key.
func (c *Client) ListVehicleRecommendations(ctx context.Context, vehicleSlug, upgradeKey string) (*VehicleRecommendationsResponse, error) {
	query := url.Values{}
	query.Set("upgrade", upgradeKey)

	var out VehicleRecommendationsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/vehicles/"+url.PathEscape(vehicleSlug)+"/recommendations", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VehicleMatch represents one resolved platform tag.
type VehicleMatch struct {
	VehicleSlug    string  `json:"vehicle_slug"`
	Confidence     float64 `json:"confidence"`
	MatchedPattern string  `json:"matched_pattern"`
	Family         string  `json:"family"`
}

// VehicleMatchSet represents one vehicle aggregated over a tag set.
type VehicleMatchSet struct {
	VehicleSlug    string   `json:"vehicle_slug"`
	Confidence     float64  `json:"confidence"`
	MatchedPattern string   `json:"matched_pattern"`
	Family         string   `json:"family"`
	Tags           []string `json:"tags"`
}

// ResolveTagResponse carries the match for one tag, if any. An unmatched tag
// is a normal outcome, not an error.
type ResolveTagResponse struct {
	Resolved bool          `json:"resolved"`
	Match    *VehicleMatch `json:"match,omitempty"`
}

// ResolveTag resolves a single platform tag to a vehicle. The families list
// narrows the pattern search; empty means all families.
func (c *Client) ResolveTag(ctx context.Context, tag string, families []string) (*ResolveTagResponse, error) {
	req := struct {
		Tag      string   `json:"tag"`
		Families []string `json:"families,omitempty"`
	}{Tag: tag, Families: families}

	var out ResolveTagResponse
	if err := c.do(ctx, http.MethodPost, "/v1/resolve/tag", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveTags resolves a tag set to vehicles, one aggregate per vehicle,
// strongest match first.
func (c *Client) ResolveTags(ctx context.Context, tags, families []string) ([]VehicleMatchSet, error) {
	req := struct {
		Tags     []string `json:"tags"`
		Families []string `json:"families,omitempty"`
	}{Tags: tags, Families: families}

	var out struct {
		Matches []VehicleMatchSet `json:"matches"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/resolve/tags", nil, req, &out); err != nil {
		return nil, err
	}
	return out.Matches, nil
}

// FitmentSuggestion represents one vehicle a product's tags point at, with
// confidence weighted by the vendor's baseline.
type FitmentSuggestion struct {
	VehicleSlug    string   `json:"vehicle_slug"`
	Confidence     float64  `json:"confidence"`
	MatchedPattern string   `json:"matched_pattern"`
	Family         string   `json:"family"`
	Tags           []string `json:"tags"`
}

// SuggestFitments asks which vehicles a set of product tags points at. The
// vendor key is optional and weights confidence by that vendor's baseline.
func (c *Client) SuggestFitments(ctx context.Context, tags []string, vendorKey string) ([]FitmentSuggestion, error) {
	req := struct {
		Tags      []string `json:"tags"`
		VendorKey string   `json:"vendor_key,omitempty"`
	}{Tags: tags, VendorKey: vendorKey}

	var out struct {
		Suggestions []FitmentSuggestion `json:"suggestions"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/suggest/fitments", nil, req, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

// ResearchedPart represents one researched candidate for the bulk save
// pipeline. Part fields feed the identity cascade; the fitment, pricing and
// rank fields are optional follow-on writes.
type ResearchedPart struct {
	Manufacturer    string  `json:"manufacturer"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	PartNumber      string  `json:"part_number,omitempty"`
	ProductURL      string  `json:"product_url,omitempty"`
	ManufacturerURL string  `json:"manufacturer_url,omitempty"`
	Description     string  `json:"description,omitempty"`
	QualityTier     string  `json:"quality_tier,omitempty"`
	Confidence      float64 `json:"confidence,omitempty"`
	DataSource      string  `json:"data_source,omitempty"`

	FitmentConfidence float64 `json:"fitment_confidence,omitempty"`
	FitmentVerified   bool    `json:"fitment_verified,omitempty"`
	FitmentSourceURL  string  `json:"fitment_source_url,omitempty"`
	FitmentNotes      string  `json:"fitment_notes,omitempty"`

	VendorKey  string `json:"vendor_key,omitempty"`
	VendorName string `json:"vendor_name,omitempty"`
	PriceCents int64  `json:"price_cents,omitempty"`
	Currency   string `json:"currency,omitempty"`
	InStock    bool   `json:"in_stock,omitempty"`

	Rank           int    `json:"rank,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Source         string `json:"source,omitempty"`
}

// ResearchPartsResponse reports a bulk save outcome.
type ResearchPartsResponse struct {
	Saved   int         `json:"saved"`
	Failed  int         `json:"failed"`
	PartIDs []uuid.UUID `json:"part_ids"`
}

// SaveResearchedParts pushes a batch of researched candidates through the
// full pipeline for one vehicle and upgrade context. Individual candidate
// failures are tallied in the response, never failed wholesale.
func (c *Client) SaveResearchedParts(ctx context.Context, vehicleSlug, upgradeKey string, parts []ResearchedPart) (*ResearchPartsResponse, error) {
	req := struct {
		VehicleSlug string           `json:"vehicle_slug"`
		UpgradeKey  string           `json:"upgrade_key"`
		Parts       []ResearchedPart `json:"parts"`
	}{VehicleSlug: vehicleSlug, UpgradeKey: upgradeKey, Parts: parts}

	var out ResearchPartsResponse
	if err := c.do(ctx, http.MethodPost, "/v1/research/parts", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Vendor represents one entry in the vendor registry.
type Vendor struct {
	Key                string   `json:"key"`
	DisplayName        string   `json:"display_name"`
	SiteURL            string   `json:"site_url"`
	IngestionShape     string   `json:"ingestion_shape"`
	Families           []string `json:"families"`
	BaselineConfidence float64  `json:"baseline_confidence"`
}

// ListVendors lists the registered vendors.
func (c *Client) ListVendors(ctx context.Context) ([]Vendor, error) {
	var out struct {
		Vendors []Vendor `json:"vendors"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/vendors", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Vendors, nil
}

// ResolutionMetrics represents the engine's identity cascade counters.
type ResolutionMetrics struct {
	PartNumberHits       int64 `json:"part_number_hits"`
	IdentityHits         int64 `json:"identity_hits"`
	FuzzyHits            int64 `json:"fuzzy_hits"`
	Inserts              int64 `json:"inserts"`
	ConflictRecoveries   int64 `json:"conflict_recoveries"`
	FitmentsSaved        int64 `json:"fitments_saved"`
	RecommendationsSaved int64 `json:"recommendations_saved"`
}

// Metrics fetches the engine's identity cascade counters.
func (c *Client) Metrics(ctx context.Context) (*ResolutionMetrics, error) {
	var out ResolutionMetrics
	if err := c.do(ctx, http.MethodGet, "/v1/metrics/resolution", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health checks the service health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
