package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/ingest"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/platform"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/vendors"
)

// AddFitmentInput links a resolved part to a vehicle.
type AddFitmentInput struct {
	PartID      uuid.UUID `json:"part_id"`
	VehicleSlug string    `json:"vehicle_slug"`
	Confidence  float64   `json:"confidence"`
	Verified    bool      `json:"verified,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Actor       string    `json:"-"`
}

// AddFitment records that a part fits a vehicle. Repeated saves for the same
// pair merge into one row: confidence only rises, verification sticks, and
// blank fields fill in. Returns the canonical merged row.
func (e *Engine) AddFitment(ctx context.Context, input AddFitmentInput) (*storage.PartFitment, error) {
	if input.PartID == uuid.Nil {
		return nil, fmt.Errorf("%w: part id is required", ErrInvalidInput)
	}
	vehicleSlug := strings.ToLower(strings.TrimSpace(input.VehicleSlug))
	if vehicleSlug == "" {
		return nil, fmt.Errorf("%w: vehicle slug is required", ErrInvalidInput)
	}

	fitment := &storage.PartFitment{
		PartID:      input.PartID,
		VehicleSlug: vehicleSlug,
		Confidence:  clamp01(input.Confidence),
		Verified:    input.Verified,
		SourceURL:   strings.TrimSpace(input.SourceURL),
		Notes:       strings.TrimSpace(input.Notes),
	}

	err := e.repos.Fitments.Upsert(ctx, fitment)
	if err != nil && !errors.Is(err, storage.ErrConflict) {
		return nil, err
	}
	// On the conflict path another writer holds the row; the re-query below
	// picks up whatever it wrote.

	saved, err := e.repos.Fitments.GetByPartVehicle(ctx, input.PartID, vehicleSlug)
	if err != nil {
		return nil, err
	}

	e.metrics.FitmentsSaved.Add(1)
	if e.audit != nil {
		_ = e.audit.RecordFitmentSaved(ctx, input.PartID, vehicleSlug, saved.Confidence, input.Actor)
	}
	e.invalidateVehicle(ctx, vehicleSlug)
	e.logger.Debug().
		Str("part_id", input.PartID.String()).
		Str("vehicle_slug", vehicleSlug).
		Float64("confidence", saved.Confidence).
		Msg("Fitment saved")
	return saved, nil
}

// AddVendorPricingInput records one observed vendor price for a part.
type AddVendorPricingInput struct {
	PartID      uuid.UUID `json:"part_id"`
	VendorKey   string    `json:"vendor_key,omitempty"`
	VendorName  string    `json:"vendor_name,omitempty"`
	VendorURL   string    `json:"vendor_url,omitempty"`
	ProductURL  string    `json:"product_url,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency,omitempty"`
	InStock     bool      `json:"in_stock"`
	RecordedDay time.Time `json:"recorded_day,omitempty"`
}

// AddVendorPricing stores a daily price snapshot. A known vendor key
// canonicalizes the vendor name and fills the vendor URL from the registry;
// otherwise the raw name is stored as given. The second observation for the
// same part, vendor and day replaces the first.
func (e *Engine) AddVendorPricing(ctx context.Context, input AddVendorPricingInput) (*storage.PricingSnapshot, error) {
	if input.PartID == uuid.Nil {
		return nil, fmt.Errorf("%w: part id is required", ErrInvalidInput)
	}
	if input.PriceCents <= 0 {
		return nil, fmt.Errorf("%w: price must be positive, got %d", ErrInvalidInput, input.PriceCents)
	}

	vendorName := strings.TrimSpace(input.VendorName)
	vendorURL := strings.TrimSpace(input.VendorURL)
	if key := strings.TrimSpace(input.VendorKey); key != "" {
		if vendor, ok := vendors.ByKey(key); ok {
			vendorName = vendor.DisplayName
			if vendorURL == "" {
				vendorURL = vendor.SiteURL
			}
		} else if vendorName == "" {
			vendorName = key
		}
	}
	if vendorName == "" {
		return nil, fmt.Errorf("%w: vendor is required", ErrInvalidInput)
	}

	snapshot := &storage.PricingSnapshot{
		PartID:      input.PartID,
		VendorName:  vendorName,
		VendorURL:   vendorURL,
		ProductURL:  strings.TrimSpace(input.ProductURL),
		PriceCents:  input.PriceCents,
		Currency:    strings.ToUpper(strings.TrimSpace(input.Currency)),
		InStock:     input.InStock,
		RecordedDay: input.RecordedDay,
	}
	if err := e.repos.Pricing.UpsertDaily(ctx, snapshot); err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("part_id", input.PartID.String()).
		Str("vendor", vendorName).
		Int64("price_cents", snapshot.PriceCents).
		Msg("Pricing snapshot recorded")
	return snapshot, nil
}

// FitmentSuggestion is one vehicle a product's tags resolved to, weighted by
// the trust baseline of the vendor the tags came from.
type FitmentSuggestion struct {
	VehicleSlug    string   `json:"vehicle_slug"`
	Confidence     float64  `json:"confidence"`
	MatchedPattern string   `json:"matched_pattern"`
	Family         string   `json:"family"`
	Tags           []string `json:"tags"`
}

// SuggestFitments resolves free-form product tags to vehicle slugs and
// weights each match by the vendor's baseline. An unknown or empty vendor key
// uses the reference baseline, leaving pattern confidences untouched. Family
// scoping follows the vendor registry so a VAG-only vendor's tags never match
// BMW patterns.
func (e *Engine) SuggestFitments(tags []string, vendorKey string) []FitmentSuggestion {
	baseline := platform.ReferenceBaseline
	var families []string
	if vendor, ok := vendors.ByKey(strings.TrimSpace(vendorKey)); ok {
		baseline = vendor.BaselineConfidence
		families = vendor.Families
	}

	aggregates := platform.ResolveAll(tags, families)
	suggestions := make([]FitmentSuggestion, 0, len(aggregates))
	for _, agg := range aggregates {
		suggestions = append(suggestions, FitmentSuggestion{
			VehicleSlug:    agg.VehicleSlug,
			Confidence:     platform.WeightedConfidence(agg.Confidence, baseline),
			MatchedPattern: agg.MatchedPattern,
			Family:         agg.Family,
			Tags:           agg.Tags,
		})
	}
	return suggestions
}

// SuggestFitmentsForProduct suggests fitments for one decoded feed record:
// the product's tags and its name are resolved within the vendor's families
// and weighted by the vendor's baseline. The name is included because many
// vendors put the chassis code in the title rather than the tag list.
func (e *Engine) SuggestFitmentsForProduct(product ingest.FeedProduct, vendor vendors.Vendor) []FitmentSuggestion {
	baseline := vendor.BaselineConfidence
	if baseline <= 0 {
		baseline = platform.ReferenceBaseline
	}

	tags := make([]string, 0, len(product.Tags)+1)
	tags = append(tags, product.Tags...)
	if name := strings.TrimSpace(product.Name); name != "" {
		tags = append(tags, name)
	}

	aggregates := platform.ResolveAll(tags, vendor.Families)
	suggestions := make([]FitmentSuggestion, 0, len(aggregates))
	for _, agg := range aggregates {
		suggestions = append(suggestions, FitmentSuggestion{
			VehicleSlug:    agg.VehicleSlug,
			Confidence:     platform.WeightedConfidence(agg.Confidence, baseline),
			MatchedPattern: agg.MatchedPattern,
			Family:         agg.Family,
			Tags:           agg.Tags,
		})
	}
	return suggestions
}

// ResolveCarSlugFromTag resolves a single free-form tag. A nil families
// slice searches every pattern family. Returns nil when nothing matches.
func (e *Engine) ResolveCarSlugFromTag(tag string, families []string) *platform.Match {
	return platform.Resolve(tag, families)
}

// ResolveCarSlugsFromTags batch-resolves tags, deduplicated per vehicle with
// the best confidence kept.
func (e *Engine) ResolveCarSlugsFromTags(tags []string, families []string) []platform.Aggregate {
	return platform.ResolveAll(tags, families)
}
