// Package catalog implements part identity resolution: the cascading upsert
// protocol that keeps one stored row per physical part, plus the fitment,
// pricing and recommendation writers built on top of it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/cache"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/manufacturer"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/monitoring"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/normalize"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// Common errors
var (
	// ErrRejectedManufacturer reports a manufacturer name on the retailer
	// denylist. The part is never written.
	ErrRejectedManufacturer = errors.New("manufacturer rejected: known retailer")
	// ErrInvalidInput reports a structurally unusable request.
	ErrInvalidInput = errors.New("invalid input")
)

// fuzzyMatchScanLimit bounds the candidate page scanned by the comparison-key
// tier. Very large single-category catalogs can in principle hide a duplicate
// beyond the page; the bound keeps upsert latency flat.
const fuzzyMatchScanLimit = 50

// defaultPartConfidence is assigned to parts registered without an explicit
// confidence, marking them implicitly as unreviewed.
const defaultPartConfidence = 0.5

// Engine resolves incoming part descriptions onto canonical identities and
// writes fitments, pricing snapshots and advisor recommendations.
type Engine struct {
	logger  *observability.Logger
	repos   *storage.Repositories
	cache   cache.Client
	audit   *monitoring.AuditWriter
	config  EngineConfig
	metrics *EngineMetrics
}

// EngineConfig holds engine tuning knobs.
type EngineConfig struct {
	FuzzyScanLimit    int
	DefaultConfidence float64
}

// EngineMetrics tracks which resolution tier settled each upsert.
type EngineMetrics struct {
	PartNumberHits       atomic.Int64
	IdentityHits         atomic.Int64
	FuzzyHits            atomic.Int64
	Inserts              atomic.Int64
	ConflictRecoveries   atomic.Int64
	FitmentsSaved        atomic.Int64
	RecommendationsSaved atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the engine counters.
type MetricsSnapshot struct {
	PartNumberHits       int64 `json:"part_number_hits"`
	IdentityHits         int64 `json:"identity_hits"`
	FuzzyHits            int64 `json:"fuzzy_hits"`
	Inserts              int64 `json:"inserts"`
	ConflictRecoveries   int64 `json:"conflict_recoveries"`
	FitmentsSaved        int64 `json:"fitments_saved"`
	RecommendationsSaved int64 `json:"recommendations_saved"`
}

// Snapshot returns a copy of the current counters.
func (m *EngineMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		PartNumberHits:       m.PartNumberHits.Load(),
		IdentityHits:         m.IdentityHits.Load(),
		FuzzyHits:            m.FuzzyHits.Load(),
		Inserts:              m.Inserts.Load(),
		ConflictRecoveries:   m.ConflictRecoveries.Load(),
		FitmentsSaved:        m.FitmentsSaved.Load(),
		RecommendationsSaved: m.RecommendationsSaved.Load(),
	}
}

// NewEngine creates a new catalog engine. The cache client and audit writer
// are optional; a nil cache disables invalidation, a nil writer disables the
// persisted audit trail.
func NewEngine(
	logger *observability.Logger,
	repos *storage.Repositories,
	cacheClient cache.Client,
	audit *monitoring.AuditWriter,
	cfg EngineConfig,
) *Engine {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	if cfg.FuzzyScanLimit <= 0 {
		cfg.FuzzyScanLimit = fuzzyMatchScanLimit
	}
	if cfg.DefaultConfidence <= 0 || cfg.DefaultConfidence > 1 {
		cfg.DefaultConfidence = defaultPartConfidence
	}

	return &Engine{
		logger:  logger,
		repos:   repos,
		cache:   cacheClient,
		audit:   audit,
		config:  cfg,
		metrics: &EngineMetrics{},
	}
}

// Metrics returns the engine counters.
func (e *Engine) Metrics() *EngineMetrics {
	return e.metrics
}

// UpsertPartInput describes one incoming part candidate.
type UpsertPartInput struct {
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
	Actor           string               `json:"-"`
}

// UpsertPartResult reports the resolved identity and how it was found.
type UpsertPartResult struct {
	Part      *storage.Part     `json:"part"`
	IsNew     bool              `json:"is_new"`
	MatchTier storage.MatchTier `json:"match_tier"`
}

// UpsertPart resolves the input onto an existing part or inserts a new one.
// Resolution tiers run in strict order, short-circuiting on the first hit:
// manufacturer part number, exact identity triple, comparison-key scan over a
// bounded candidate page, then insert. A concurrent duplicate insert is
// absorbed by re-querying the winning row; the caller never sees the conflict.
func (e *Engine) UpsertPart(ctx context.Context, input UpsertPartInput) (*UpsertPartResult, error) {
	manufacturerName := strings.TrimSpace(input.Manufacturer)
	if manufacturerName == "" || strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: manufacturer and name are required", ErrInvalidInput)
	}
	if !input.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, input.Category)
	}

	canonical, ok := manufacturer.Validate(manufacturerName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRejectedManufacturer, manufacturerName)
	}

	name := normalize.Normalize(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name %q normalizes to nothing", ErrInvalidInput, input.Name)
	}

	partNumber := strings.TrimSpace(input.PartNumber)

	attempts := []struct {
		tier storage.MatchTier
		fn   func(context.Context) (*storage.Part, error)
	}{
		{storage.MatchTierPartNumber, func(ctx context.Context) (*storage.Part, error) {
			if partNumber == "" {
				return nil, nil
			}
			return swallowNotFound(e.repos.Parts.GetByPartNumber(ctx, canonical, partNumber))
		}},
		{storage.MatchTierIdentity, func(ctx context.Context) (*storage.Part, error) {
			return swallowNotFound(e.repos.Parts.GetByIdentity(ctx, canonical, name, input.Category))
		}},
		{storage.MatchTierFuzzy, func(ctx context.Context) (*storage.Part, error) {
			return e.matchByComparisonKey(ctx, canonical, name, input.Category)
		}},
	}

	for _, attempt := range attempts {
		existing, err := attempt.fn(ctx)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			continue
		}
		if err := e.enrichExisting(ctx, existing, input, partNumber); err != nil {
			return nil, err
		}
		e.recordResolved(ctx, existing, attempt.tier, input.Actor)
		return &UpsertPartResult{Part: existing, IsNew: false, MatchTier: attempt.tier}, nil
	}

	part := e.newPart(canonical, name, input, partNumber)
	err := e.repos.Parts.Create(ctx, part)
	if err == nil {
		e.metrics.Inserts.Add(1)
		if e.audit != nil {
			_ = e.audit.RecordPartCreated(ctx, part.ID, input.Actor, map[string]interface{}{
				"manufacturer": canonical,
				"name":         name,
				"category":     string(input.Category),
			})
		}
		e.invalidateCatalog(ctx)
		e.logger.Debug().
			Str("part_id", part.ID.String()).
			Str("manufacturer", canonical).
			Str("name", name).
			Msg("Registered new part identity")
		return &UpsertPartResult{Part: part, IsNew: true, MatchTier: storage.MatchTierInserted}, nil
	}
	if !errors.Is(err, storage.ErrConflict) {
		return nil, err
	}

	// A concurrent writer won the race between the match tiers and this
	// insert. Converge onto its row instead of surfacing the conflict.
	existing, qerr := swallowNotFound(e.repos.Parts.GetByIdentity(ctx, canonical, name, input.Category))
	if qerr != nil {
		return nil, qerr
	}
	if existing == nil && partNumber != "" {
		existing, qerr = swallowNotFound(e.repos.Parts.GetByPartNumber(ctx, canonical, partNumber))
		if qerr != nil {
			return nil, qerr
		}
	}
	if existing == nil {
		return nil, err
	}

	if err := e.enrichExisting(ctx, existing, input, partNumber); err != nil {
		return nil, err
	}
	e.metrics.ConflictRecoveries.Add(1)
	if e.audit != nil {
		_ = e.audit.RecordConflictRecovered(ctx, existing.ID, input.Actor, map[string]interface{}{
			"manufacturer": canonical,
			"name":         name,
		})
	}
	e.logger.Debug().
		Str("part_id", existing.ID.String()).
		Msg("Recovered from concurrent duplicate insert")
	return &UpsertPartResult{Part: existing, IsNew: false, MatchTier: storage.MatchTierRecovered}, nil
}

// matchByComparisonKey scans a bounded page of same-manufacturer,
// same-category parts for a comparison-key equal candidate. This tier catches
// normalization drift across vendors describing the same product differently.
func (e *Engine) matchByComparisonKey(ctx context.Context, manufacturerName, name string, category storage.PartCategory) (*storage.Part, error) {
	key := normalize.ComparisonKey(name)
	if key == "" {
		return nil, nil
	}

	candidates, err := e.repos.Parts.ListByManufacturerCategory(ctx, manufacturerName, category, e.config.FuzzyScanLimit)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		if normalize.ComparisonKey(candidate.Name) == key {
			return candidate, nil
		}
	}
	return nil, nil
}

// enrichExisting merges the incoming observation into a resolved row: URLs
// and quality tier are refreshed, blanks are filled, confidence only rises,
// and a part number is adopted when the row has none. If adopting the number
// collides with another row, the number claim is dropped and the rest of the
// merge still lands.
func (e *Engine) enrichExisting(ctx context.Context, existing *storage.Part, input UpsertPartInput, partNumber string) error {
	changed := false
	numberAdded := false

	if input.ProductURL != "" && input.ProductURL != existing.ProductURL {
		existing.ProductURL = input.ProductURL
		changed = true
	}
	if input.ManufacturerURL != "" && input.ManufacturerURL != existing.ManufacturerURL {
		existing.ManufacturerURL = input.ManufacturerURL
		changed = true
	}
	if input.QualityTier.Valid() && input.QualityTier != existing.QualityTier {
		existing.QualityTier = input.QualityTier
		changed = true
	}
	if input.Description != "" && existing.Description == "" {
		existing.Description = input.Description
		changed = true
	}
	if input.DataSource != "" && existing.DataSource == "" {
		existing.DataSource = input.DataSource
		changed = true
	}
	if partNumber != "" && existing.PartNumber == nil {
		pn := partNumber
		existing.PartNumber = &pn
		changed = true
		numberAdded = true
	}
	if conf := clamp01(input.Confidence); conf > existing.Confidence {
		existing.Confidence = conf
		changed = true
	}
	if !existing.Active {
		existing.Active = true
		changed = true
	}

	if !changed {
		return nil
	}

	err := e.repos.Parts.Update(ctx, existing)
	if errors.Is(err, storage.ErrConflict) && numberAdded {
		existing.PartNumber = nil
		err = e.repos.Parts.Update(ctx, existing)
	}
	if err != nil {
		return err
	}
	e.invalidateCatalog(ctx)
	return nil
}

// newPart builds the row for the insert tier. The manufacturer registry fills
// the website when the caller did not supply one.
func (e *Engine) newPart(manufacturerName, name string, input UpsertPartInput, partNumber string) *storage.Part {
	tier := input.QualityTier
	if !tier.Valid() {
		tier = storage.QualityTierMid
	}

	confidence := clamp01(input.Confidence)
	if input.Confidence == 0 {
		confidence = e.config.DefaultConfidence
	}

	var pn *string
	if partNumber != "" {
		pn = &partNumber
	}

	manufacturerURL := input.ManufacturerURL
	if manufacturerURL == "" {
		if rec, ok := manufacturer.Lookup(manufacturerName); ok {
			manufacturerURL = rec.Website
		}
	}

	return &storage.Part{
		Name:            name,
		Manufacturer:    manufacturerName,
		ManufacturerURL: manufacturerURL,
		ProductURL:      input.ProductURL,
		Category:        input.Category,
		QualityTier:     tier,
		Description:     input.Description,
		PartNumber:      pn,
		Confidence:      confidence,
		DataSource:      input.DataSource,
		Active:          true,
	}
}

func (e *Engine) recordResolved(ctx context.Context, part *storage.Part, tier storage.MatchTier, actor string) {
	switch tier {
	case storage.MatchTierPartNumber:
		e.metrics.PartNumberHits.Add(1)
	case storage.MatchTierIdentity:
		e.metrics.IdentityHits.Add(1)
	case storage.MatchTierFuzzy:
		e.metrics.FuzzyHits.Add(1)
	}

	if e.audit != nil {
		_ = e.audit.RecordPartResolved(ctx, part.ID, tier, actor, map[string]interface{}{
			"manufacturer": part.Manufacturer,
			"name":         part.Name,
			"category":     string(part.Category),
		})
	}
	e.logger.Debug().
		Str("part_id", part.ID.String()).
		Str("match_tier", string(tier)).
		Msg("Resolved part to existing identity")
}

func (e *Engine) invalidateCatalog(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.DeleteByPrefix(ctx, "catalog"); err != nil {
		e.logger.Warn().Err(err).Msg("Catalog cache invalidation failed")
	}
}

func (e *Engine) invalidateVehicle(ctx context.Context, vehicleSlug string) {
	if e.cache == nil {
		return
	}
	for _, prefix := range []string{cache.CacheKey("v", vehicleSlug), "catalog:v:" + vehicleSlug} {
		if err := e.cache.DeleteByPrefix(ctx, prefix); err != nil {
			e.logger.Warn().Err(err).Str("vehicle_slug", vehicleSlug).Msg("Vehicle cache invalidation failed")
		}
	}
}

func swallowNotFound(part *storage.Part, err error) (*storage.Part, error) {
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return part, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
