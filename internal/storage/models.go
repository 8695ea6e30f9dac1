// Package storage provides database models and repositories for the Fitment Engine.
package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PartCategory represents the functional category of an aftermarket part.
type PartCategory string

const (
	PartCategoryIntake          PartCategory = "intake"
	PartCategoryExhaust         PartCategory = "exhaust"
	PartCategoryTune            PartCategory = "tune"
	PartCategorySuspension      PartCategory = "suspension"
	PartCategoryBrakes          PartCategory = "brakes"
	PartCategoryCooling         PartCategory = "cooling"
	PartCategoryForcedInduction PartCategory = "forced_induction"
	PartCategoryDrivetrain      PartCategory = "drivetrain"
	PartCategoryFuelSystem      PartCategory = "fuel_system"
	PartCategoryWheelsTires     PartCategory = "wheels_tires"
	PartCategoryAero            PartCategory = "aero"
	PartCategoryOther           PartCategory = "other"
)

// Valid reports whether the category is one of the known values.
func (c PartCategory) Valid() bool {
	switch c {
	case PartCategoryIntake, PartCategoryExhaust, PartCategoryTune,
		PartCategorySuspension, PartCategoryBrakes, PartCategoryCooling,
		PartCategoryForcedInduction, PartCategoryDrivetrain, PartCategoryFuelSystem,
		PartCategoryWheelsTires, PartCategoryAero, PartCategoryOther:
		return true
	}
	return false
}

// AllPartCategories returns every known part category.
func AllPartCategories() []PartCategory {
	return []PartCategory{
		PartCategoryIntake, PartCategoryExhaust, PartCategoryTune,
		PartCategorySuspension, PartCategoryBrakes, PartCategoryCooling,
		PartCategoryForcedInduction, PartCategoryDrivetrain, PartCategoryFuelSystem,
		PartCategoryWheelsTires, PartCategoryAero, PartCategoryOther,
	}
}

// QualityTier represents the market positioning of a part.
type QualityTier string

const (
	QualityTierBudget       QualityTier = "budget"
	QualityTierMid          QualityTier = "mid"
	QualityTierPremium      QualityTier = "premium"
	QualityTierUltraPremium QualityTier = "ultra-premium"
)

// Valid reports whether the tier is one of the known values.
func (t QualityTier) Valid() bool {
	switch t {
	case QualityTierBudget, QualityTierMid, QualityTierPremium, QualityTierUltraPremium:
		return true
	}
	return false
}

// MatchTier records which resolution tier matched a part during an upsert.
type MatchTier string

const (
	MatchTierPartNumber MatchTier = "part_number"
	MatchTierIdentity   MatchTier = "identity"
	MatchTierFuzzy      MatchTier = "fuzzy"
	MatchTierInserted   MatchTier = "inserted"
	MatchTierRecovered  MatchTier = "recovered"
)

// AuditAction represents an audited engine decision.
type AuditAction string

const (
	AuditActionPartResolved        AuditAction = "part_resolved"
	AuditActionPartCreated         AuditAction = "part_created"
	AuditActionFitmentSaved        AuditAction = "fitment_saved"
	AuditActionRecommendationSaved AuditAction = "recommendation_saved"
	AuditActionRankVacated         AuditAction = "rank_vacated"
	AuditActionConflictRecovered   AuditAction = "conflict_recovered"
)

// Part represents a canonical aftermarket part identity.
type Part struct {
	ID              uuid.UUID    `json:"id" db:"id"`
	Name            string       `json:"name" db:"name"`
	Manufacturer    string       `json:"manufacturer" db:"manufacturer"`
	ManufacturerURL string       `json:"manufacturer_url,omitempty" db:"manufacturer_url"`
	ProductURL      string       `json:"product_url,omitempty" db:"product_url"`
	Category        PartCategory `json:"category" db:"category"`
	QualityTier     QualityTier  `json:"quality_tier" db:"quality_tier"`
	Description     string       `json:"description,omitempty" db:"description"`
	PartNumber      *string      `json:"part_number,omitempty" db:"part_number"`
	Confidence      float64      `json:"confidence" db:"confidence"`
	DataSource      string       `json:"data_source,omitempty" db:"data_source"`
	Active          bool         `json:"active" db:"active"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// PartFitment represents a claim that a part fits a vehicle.
type PartFitment struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PartID      uuid.UUID `json:"part_id" db:"part_id"`
	VehicleSlug string    `json:"vehicle_slug" db:"vehicle_slug"`
	Confidence  float64   `json:"confidence" db:"confidence"`
	Verified    bool      `json:"verified" db:"verified"`
	SourceURL   string    `json:"source_url,omitempty" db:"source_url"`
	Notes       string    `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// PricingSnapshot represents one vendor price observation for a part on a given day.
type PricingSnapshot struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PartID      uuid.UUID `json:"part_id" db:"part_id"`
	VendorName  string    `json:"vendor_name" db:"vendor_name"`
	VendorURL   string    `json:"vendor_url,omitempty" db:"vendor_url"`
	ProductURL  string    `json:"product_url,omitempty" db:"product_url"`
	PriceCents  int64     `json:"price_cents" db:"price_cents"`
	Currency    string    `json:"currency" db:"currency"`
	InStock     bool      `json:"in_stock" db:"in_stock"`
	RecordedDay time.Time `json:"recorded_day" db:"recorded_day"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AdvisorRecommendation represents a ranked part pick for a vehicle upgrade slot.
type AdvisorRecommendation struct {
	ID             uuid.UUID `json:"id" db:"id"`
	VehicleSlug    string    `json:"vehicle_slug" db:"vehicle_slug"`
	UpgradeKey     string    `json:"upgrade_key" db:"upgrade_key"`
	PartID         uuid.UUID `json:"part_id" db:"part_id"`
	Rank           int       `json:"rank" db:"rank"`
	ConversationID *string   `json:"conversation_id,omitempty" db:"conversation_id"`
	Source         string    `json:"source,omitempty" db:"source"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// AuditEvent represents a persisted record of an engine decision.
type AuditEvent struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Action      AuditAction     `json:"action" db:"action"`
	PartID      *uuid.UUID      `json:"part_id,omitempty" db:"part_id"`
	VehicleSlug string          `json:"vehicle_slug,omitempty" db:"vehicle_slug"`
	MatchTier   MatchTier       `json:"match_tier,omitempty" db:"match_tier"`
	Detail      json.RawMessage `json:"detail,omitempty" db:"detail"`
	Actor       string          `json:"actor,omitempty" db:"actor"`
	OccurredAt  time.Time       `json:"occurred_at" db:"occurred_at"`
}
