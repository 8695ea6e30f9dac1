package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// ResearchedPart is one extracted candidate from an upgrade research run:
// the part identity plus whatever fitment, pricing and ranking context the
// extractor produced. Zero-valued sections are skipped, so a candidate with
// no price still registers its identity and fitment.
type ResearchedPart struct {
	Manufacturer    string               `json:"manufacturer"`
	Name            string               `json:"name"`
	Category        storage.PartCategory `json:"category"`
	PartNumber      string               `json:"part_number,omitempty"`
	ProductURL      string               `json:"product_url,omitempty"`
	ManufacturerURL string               `json:"manufacturer_url,omitempty"`
	Description     string               `json:"description,omitempty"`
	QualityTier     storage.QualityTier  `json:"quality_tier,omitempty"`
	Confidence      float64              `json:"confidence,omitempty"`
	DataSource      string               `json:"data_source,omitempty"`

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

// SaveResult reports the outcome of one composite save. PartID is set
// whenever identity resolution succeeded, even if a later step failed.
type SaveResult struct {
	Success   bool              `json:"success"`
	PartID    uuid.UUID         `json:"part_id,omitempty"`
	IsNew     bool              `json:"is_new,omitempty"`
	MatchTier storage.MatchTier `json:"match_tier,omitempty"`
	Err       error             `json:"-"`
}

// SaveResearchedPart sequences the full pipeline for one candidate: resolve
// the part identity, then record fitment, pricing and recommendation as the
// candidate's fields allow. Sub-step failures after resolution are collected
// rather than aborting, so a broken pricing write never discards a successful
// part and fitment registration. Failures are reported through the result,
// never as a returned error.
func (e *Engine) SaveResearchedPart(ctx context.Context, vehicleSlug, upgradeKey string, candidate ResearchedPart, actor string) SaveResult {
	upsert, err := e.UpsertPart(ctx, UpsertPartInput{
		Manufacturer:    candidate.Manufacturer,
		Name:            candidate.Name,
		Category:        candidate.Category,
		PartNumber:      candidate.PartNumber,
		ProductURL:      candidate.ProductURL,
		ManufacturerURL: candidate.ManufacturerURL,
		Description:     candidate.Description,
		QualityTier:     candidate.QualityTier,
		Confidence:      candidate.Confidence,
		DataSource:      candidate.DataSource,
		Actor:           actor,
	})
	if err != nil {
		return SaveResult{Success: false, Err: err}
	}

	var stepErrs []error
	vehicleSlug = strings.ToLower(strings.TrimSpace(vehicleSlug))

	if vehicleSlug != "" {
		confidence := candidate.FitmentConfidence
		if confidence == 0 {
			confidence = upsert.Part.Confidence
		}
		if _, err := e.AddFitment(ctx, AddFitmentInput{
			PartID:      upsert.Part.ID,
			VehicleSlug: vehicleSlug,
			Confidence:  confidence,
			Verified:    candidate.FitmentVerified,
			SourceURL:   candidate.FitmentSourceURL,
			Notes:       candidate.FitmentNotes,
			Actor:       actor,
		}); err != nil {
			stepErrs = append(stepErrs, err)
		}
	}

	if candidate.PriceCents > 0 {
		if _, err := e.AddVendorPricing(ctx, AddVendorPricingInput{
			PartID:     upsert.Part.ID,
			VendorKey:  candidate.VendorKey,
			VendorName: candidate.VendorName,
			ProductURL: candidate.ProductURL,
			PriceCents: candidate.PriceCents,
			Currency:   candidate.Currency,
			InStock:    candidate.InStock,
		}); err != nil {
			stepErrs = append(stepErrs, err)
		}
	}

	if vehicleSlug != "" && strings.TrimSpace(upgradeKey) != "" && candidate.Rank >= 1 {
		if _, err := e.SaveAdvisorRecommendation(ctx, SaveRecommendationInput{
			VehicleSlug:    vehicleSlug,
			UpgradeKey:     upgradeKey,
			PartID:         upsert.Part.ID,
			Rank:           candidate.Rank,
			ConversationID: candidate.ConversationID,
			Source:         candidate.Source,
			Actor:          actor,
		}); err != nil {
			stepErrs = append(stepErrs, err)
		}
	}

	result := SaveResult{
		Success:   len(stepErrs) == 0,
		PartID:    upsert.Part.ID,
		IsNew:     upsert.IsNew,
		MatchTier: upsert.MatchTier,
		Err:       errors.Join(stepErrs...),
	}
	if !result.Success {
		e.logger.Warn().
			Err(result.Err).
			Str("part_id", result.PartID.String()).
			Str("vehicle_slug", vehicleSlug).
			Msg("Researched part saved with partial failures")
	}
	return result
}

// BulkSaveReport tallies a batch save. PartIDs lists every candidate whose
// identity resolved, including those counted in Failed because a later step
// broke.
type BulkSaveReport struct {
	Saved   int         `json:"saved"`
	Failed  int         `json:"failed"`
	PartIDs []uuid.UUID `json:"part_ids"`
}

// BulkSaveResearchedParts applies the composite save to every candidate for
// one (vehicle, upgrade) context. Individual failures are counted, never
// propagated, so a batch always runs to completion and can be re-run safely.
func (e *Engine) BulkSaveResearchedParts(ctx context.Context, vehicleSlug, upgradeKey string, parts []ResearchedPart, actor string) BulkSaveReport {
	report := BulkSaveReport{PartIDs: make([]uuid.UUID, 0, len(parts))}
	for i, candidate := range parts {
		result := e.SaveResearchedPart(ctx, vehicleSlug, upgradeKey, candidate, actor)
		if result.PartID != uuid.Nil {
			report.PartIDs = append(report.PartIDs, result.PartID)
		}
		if result.Success {
			report.Saved++
			continue
		}
		report.Failed++
		e.logger.Warn().
			Err(result.Err).
			Int("index", i).
			Str("manufacturer", candidate.Manufacturer).
			Str("name", candidate.Name).
			Msg("Batch item failed")
	}

	e.logger.Info().
		Str("vehicle_slug", vehicleSlug).
		Str("upgrade_key", upgradeKey).
		Int("saved", report.Saved).
		Int("failed", report.Failed).
		Msg("Bulk research save finished")
	return report
}
