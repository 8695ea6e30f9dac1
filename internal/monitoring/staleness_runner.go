package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// StalenessRunner scans the catalog for data past its useful life: parts with
// no recent price observation, fitments that were never verified, and stored
// names drifting from the normalizer. Findings go into a report for the
// research pipeline to act on; the runner itself mutates nothing.
type StalenessRunner struct {
	logger *observability.Logger
	db     storage.DB
	guard  *NormalizationGuard
	config StalenessConfig
}

// StalenessConfig holds staleness detection configuration.
type StalenessConfig struct {
	PricingMaxAge   time.Duration // newest snapshot older than this is stale
	UnverifiedAfter time.Duration // unverified fitments older than this are flagged
	ConfidenceFloor float64       // only fitments below this confidence are flagged
	ScanLimit       int           // cap per finding list
	CheckInterval   time.Duration // cadence for Schedule
}

// StalePricing is a part whose price has not been observed recently.
type StalePricing struct {
	PartID       uuid.UUID `json:"part_id"`
	Name         string    `json:"name"`
	Manufacturer string    `json:"manufacturer"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UnverifiedFitment is an aging, low-confidence fitment that nobody ever
// confirmed.
type UnverifiedFitment struct {
	FitmentID   uuid.UUID `json:"fitment_id"`
	PartID      uuid.UUID `json:"part_id"`
	VehicleSlug string    `json:"vehicle_slug"`
	Confidence  float64   `json:"confidence"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StalenessReport aggregates one scan.
type StalenessReport struct {
	CheckedAt          time.Time           `json:"checked_at"`
	StalePricing       []StalePricing      `json:"stale_pricing"`
	UnverifiedFitments []UnverifiedFitment `json:"unverified_fitments"`
	NameDrift          []NameDrift         `json:"name_drift"`
	TotalFindings      int                 `json:"total_findings"`
}

// NewStalenessRunner creates a new staleness runner. The guard is optional;
// without one the name-drift check is skipped.
func NewStalenessRunner(logger *observability.Logger, db storage.DB, guard *NormalizationGuard, cfg StalenessConfig) *StalenessRunner {
	if cfg.PricingMaxAge <= 0 {
		cfg.PricingMaxAge = 14 * 24 * time.Hour
	}
	if cfg.UnverifiedAfter <= 0 {
		cfg.UnverifiedAfter = 90 * 24 * time.Hour
	}
	if cfg.ConfidenceFloor <= 0 {
		cfg.ConfidenceFloor = 0.6
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = 200
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 24 * time.Hour
	}

	return &StalenessRunner{
		logger: logger,
		db:     db,
		guard:  guard,
		config: cfg,
	}
}

// RunCheck executes one full scan. Individual checks failing degrade the
// report rather than aborting it.
func (s *StalenessRunner) RunCheck(ctx context.Context) (*StalenessReport, error) {
	s.logger.Info().Msg("Starting staleness check")

	report := &StalenessReport{CheckedAt: time.Now()}

	stalePricing, err := s.checkStalePricing(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Stale pricing check failed")
	} else {
		report.StalePricing = stalePricing
	}

	unverified, err := s.checkUnverifiedFitments(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Unverified fitment check failed")
	} else {
		report.UnverifiedFitments = unverified
	}

	if s.guard != nil {
		drift, err := s.guard.CheckDrift(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Name drift check failed")
		} else {
			report.NameDrift = drift
		}
	}

	report.TotalFindings = len(report.StalePricing) + len(report.UnverifiedFitments) + len(report.NameDrift)

	s.logger.Info().
		Int("stale_pricing", len(report.StalePricing)).
		Int("unverified_fitments", len(report.UnverifiedFitments)).
		Int("name_drift", len(report.NameDrift)).
		Int("total_findings", report.TotalFindings).
		Msg("Staleness check completed")

	return report, nil
}

// checkStalePricing finds active parts with no pricing snapshot on or after
// the freshness threshold, oldest parts first. Parts that have never been
// priced count as stale.
func (s *StalenessRunner) checkStalePricing(ctx context.Context) ([]StalePricing, error) {
	query := `
		SELECT p.id, p.name, p.manufacturer, p.updated_at
		FROM parts p
		WHERE p.active = $1
		  AND NOT EXISTS (
			SELECT 1 FROM part_pricing_snapshots ps
			WHERE ps.part_id = p.id AND ps.recorded_day >= $2
		  )
		ORDER BY p.updated_at ASC
		LIMIT $3
	`
	threshold := time.Now().UTC().Add(-s.config.PricingMaxAge)

	rows, err := s.db.QueryContext(ctx, query, true, threshold, s.config.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("query stale pricing: %w", err)
	}
	defer rows.Close()

	var stale []StalePricing
	for rows.Next() {
		var entry StalePricing
		if err := rows.Scan(&entry.PartID, &entry.Name, &entry.Manufacturer, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stale pricing: %w", err)
		}
		stale = append(stale, entry)
	}
	return stale, rows.Err()
}

// checkUnverifiedFitments finds old, low-confidence fitments still awaiting
// verification.
func (s *StalenessRunner) checkUnverifiedFitments(ctx context.Context) ([]UnverifiedFitment, error) {
	query := `
		SELECT f.id, f.part_id, f.vehicle_slug, f.confidence, f.updated_at
		FROM part_fitments f
		WHERE f.verified = $1
		  AND f.confidence < $2
		  AND f.updated_at < $3
		ORDER BY f.updated_at ASC
		LIMIT $4
	`
	threshold := time.Now().UTC().Add(-s.config.UnverifiedAfter)

	rows, err := s.db.QueryContext(ctx, query, false, s.config.ConfidenceFloor, threshold, s.config.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("query unverified fitments: %w", err)
	}
	defer rows.Close()

	var unverified []UnverifiedFitment
	for rows.Next() {
		var entry UnverifiedFitment
		if err := rows.Scan(&entry.FitmentID, &entry.PartID, &entry.VehicleSlug, &entry.Confidence, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan unverified fitment: %w", err)
		}
		unverified = append(unverified, entry)
	}
	return unverified, rows.Err()
}

// Schedule runs checks on the configured cadence until the context ends.
func (s *StalenessRunner) Schedule(ctx context.Context) {
	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Stopping scheduled staleness checks")
			return
		case <-ticker.C:
			if _, err := s.RunCheck(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled staleness check failed")
			}
		}
	}
}
