package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/ingest"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/vendors"
)

// ImportOutcome reports one feed record's trip through the pipeline. PartID
// is set whenever identity resolution succeeded, even if fitment or pricing
// steps failed afterwards.
type ImportOutcome struct {
	RecordID   uuid.UUID         `json:"record_id"`
	Success    bool              `json:"success"`
	PartID     uuid.UUID         `json:"part_id,omitempty"`
	IsNew      bool              `json:"is_new,omitempty"`
	MatchTier  storage.MatchTier `json:"match_tier,omitempty"`
	Fitments   int               `json:"fitments,omitempty"`
	PriceSaved bool              `json:"price_saved,omitempty"`
	Err        error             `json:"-"`
}

// ImportFeedProduct runs one decoded feed record through the pipeline:
// resolve the part identity under the product's brand, save a fitment claim
// for every vehicle the vendor's tags resolve to, and record the day's price.
// Step failures after resolution are collected into the outcome rather than
// aborting, mirroring the research save semantics.
func (e *Engine) ImportFeedProduct(ctx context.Context, vendor vendors.Vendor, product ingest.FeedProduct, actor string) ImportOutcome {
	outcome := ImportOutcome{RecordID: product.RecordID}

	if strings.TrimSpace(product.Brand) == "" {
		outcome.Err = fmt.Errorf("%w: feed record has no brand", ErrInvalidInput)
		return outcome
	}

	productURL := absolutizeURL(vendor.SiteURL, product.ProductURL)
	dataSource := "feed"
	if vendor.Key != "" {
		dataSource = "feed:" + vendor.Key
	}

	upsert, err := e.UpsertPart(ctx, UpsertPartInput{
		Manufacturer: product.Brand,
		Name:         product.Name,
		Category:     ingest.InferCategory(product.Category, product.Name),
		PartNumber:   product.PartNumber,
		ProductURL:   productURL,
		Description:  product.Description,
		Confidence:   vendor.BaselineConfidence,
		DataSource:   dataSource,
		Actor:        actor,
	})
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.PartID = upsert.Part.ID
	outcome.IsNew = upsert.IsNew
	outcome.MatchTier = upsert.MatchTier

	var stepErrs []error
	for _, suggestion := range e.SuggestFitmentsForProduct(product, vendor) {
		if _, err := e.AddFitment(ctx, AddFitmentInput{
			PartID:      upsert.Part.ID,
			VehicleSlug: suggestion.VehicleSlug,
			Confidence:  suggestion.Confidence,
			SourceURL:   productURL,
			Actor:       actor,
		}); err != nil {
			stepErrs = append(stepErrs, err)
			continue
		}
		outcome.Fitments++
	}

	if product.PriceCents > 0 {
		if _, err := e.AddVendorPricing(ctx, AddVendorPricingInput{
			PartID:     upsert.Part.ID,
			VendorKey:  vendor.Key,
			VendorName: vendor.DisplayName,
			VendorURL:  vendor.SiteURL,
			ProductURL: productURL,
			PriceCents: product.PriceCents,
			Currency:   product.Currency,
			InStock:    product.InStock,
		}); err != nil {
			stepErrs = append(stepErrs, err)
		} else {
			outcome.PriceSaved = true
		}
	}

	outcome.Success = len(stepErrs) == 0
	outcome.Err = errors.Join(stepErrs...)
	if !outcome.Success {
		e.logger.Warn().
			Err(outcome.Err).
			Str("vendor", vendor.Key).
			Str("part_id", outcome.PartID.String()).
			Msg("Feed record imported with partial failures")
	}
	return outcome
}

// absolutizeURL resolves feed-relative product paths against the vendor's
// site. Shopify and BigCommerce feeds carry paths, not full URLs.
func absolutizeURL(siteURL, productURL string) string {
	if productURL == "" || siteURL == "" {
		return productURL
	}
	if strings.HasPrefix(productURL, "http://") || strings.HasPrefix(productURL, "https://") {
		return productURL
	}
	return strings.TrimRight(siteURL, "/") + "/" + strings.TrimLeft(productURL, "/")
}
