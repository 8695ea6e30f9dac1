package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// SaveRecommendationInput places a part into a ranked advisor slot for a
// vehicle and upgrade path.
type SaveRecommendationInput struct {
	VehicleSlug    string    `json:"vehicle_slug"`
	UpgradeKey     string    `json:"upgrade_key"`
	PartID         uuid.UUID `json:"part_id"`
	Rank           int       `json:"rank"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Source         string    `json:"source,omitempty"`
	Actor          string    `json:"-"`
}

// SaveAdvisorRecommendation assigns a part to a rank slot. Each
// (vehicle, upgrade key) pair holds at most one part per rank and at most one
// rank per part: saving over an occupied slot displaces the occupant, and
// saving a part that already holds a different rank moves it. Re-saving the
// identical assignment is a no-op. Losing a race for the slot to a concurrent
// writer is not an error; the winning row is returned.
func (e *Engine) SaveAdvisorRecommendation(ctx context.Context, input SaveRecommendationInput) (*storage.AdvisorRecommendation, error) {
	vehicleSlug := strings.ToLower(strings.TrimSpace(input.VehicleSlug))
	upgradeKey := strings.ToLower(strings.TrimSpace(input.UpgradeKey))
	if vehicleSlug == "" || upgradeKey == "" {
		return nil, fmt.Errorf("%w: vehicle slug and upgrade key are required", ErrInvalidInput)
	}
	if input.PartID == uuid.Nil {
		return nil, fmt.Errorf("%w: part id is required", ErrInvalidInput)
	}
	if input.Rank < 1 {
		return nil, fmt.Errorf("%w: rank must be >= 1, got %d", ErrInvalidInput, input.Rank)
	}

	existing, err := e.repos.Recommendations.GetByIdentity(ctx, vehicleSlug, upgradeKey, input.PartID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		if existing.Rank == input.Rank {
			e.logger.Debug().
				Str("part_id", input.PartID.String()).
				Str("vehicle_slug", vehicleSlug).
				Int("rank", input.Rank).
				Msg("Recommendation already holds this rank")
			return existing, nil
		}
		return e.moveRecommendation(ctx, existing, input, vehicleSlug, upgradeKey)
	}
	return e.insertRecommendation(ctx, input, vehicleSlug, upgradeKey)
}

// moveRecommendation shifts an existing assignment to a new rank, displacing
// whatever held the target slot.
func (e *Engine) moveRecommendation(ctx context.Context, existing *storage.AdvisorRecommendation, input SaveRecommendationInput, vehicleSlug, upgradeKey string) (*storage.AdvisorRecommendation, error) {
	if err := e.vacateRank(ctx, vehicleSlug, upgradeKey, input.Rank); err != nil {
		return nil, err
	}

	err := e.repos.Recommendations.UpdateRank(ctx, existing.ID, input.Rank, input.Source)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrConflict):
		// A concurrent writer re-filled the slot between the vacate and the
		// update. Keep the current assignment rather than fighting over it.
		e.logger.Debug().
			Str("vehicle_slug", vehicleSlug).
			Int("rank", input.Rank).
			Msg("Rank slot re-filled concurrently, keeping existing assignment")
		return e.repos.Recommendations.GetByIdentity(ctx, vehicleSlug, upgradeKey, input.PartID)
	default:
		return nil, err
	}

	saved, err := e.repos.Recommendations.GetByIdentity(ctx, vehicleSlug, upgradeKey, input.PartID)
	if err != nil {
		return nil, err
	}
	e.finishRecommendationSave(ctx, saved, input.Actor)
	return saved, nil
}

// insertRecommendation creates a fresh assignment, displacing the slot's
// current occupant first.
func (e *Engine) insertRecommendation(ctx context.Context, input SaveRecommendationInput, vehicleSlug, upgradeKey string) (*storage.AdvisorRecommendation, error) {
	if err := e.vacateRank(ctx, vehicleSlug, upgradeKey, input.Rank); err != nil {
		return nil, err
	}

	rec := &storage.AdvisorRecommendation{
		VehicleSlug: vehicleSlug,
		UpgradeKey:  upgradeKey,
		PartID:      input.PartID,
		Rank:        input.Rank,
		Source:      input.Source,
	}
	if conv := strings.TrimSpace(input.ConversationID); conv != "" {
		rec.ConversationID = &conv
	}

	err := e.repos.Recommendations.Create(ctx, rec)
	if errors.Is(err, storage.ErrConflict) {
		// Lost the slot race to a concurrent writer.
		winner, qerr := e.repos.Recommendations.GetByIdentity(ctx, vehicleSlug, upgradeKey, input.PartID)
		if qerr == nil {
			return winner, nil
		}
		if errors.Is(qerr, storage.ErrNotFound) {
			return nil, err
		}
		return nil, qerr
	}
	if err != nil {
		return nil, err
	}

	e.finishRecommendationSave(ctx, rec, input.Actor)
	return rec, nil
}

// vacateRank removes whatever currently holds the slot. An empty slot is not
// an error.
func (e *Engine) vacateRank(ctx context.Context, vehicleSlug, upgradeKey string, rank int) error {
	occupant, err := e.repos.Recommendations.GetByRank(ctx, vehicleSlug, upgradeKey, rank)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	removed, err := e.repos.Recommendations.DeleteByRank(ctx, vehicleSlug, upgradeKey, rank)
	if err != nil {
		return err
	}
	if removed {
		if e.audit != nil {
			_ = e.audit.RecordRankVacated(ctx, occupant.PartID, vehicleSlug, upgradeKey, rank)
		}
		e.logger.Debug().
			Str("displaced_part_id", occupant.PartID.String()).
			Str("vehicle_slug", vehicleSlug).
			Int("rank", rank).
			Msg("Displaced rank slot occupant")
	}
	return nil
}

func (e *Engine) finishRecommendationSave(ctx context.Context, rec *storage.AdvisorRecommendation, actor string) {
	e.metrics.RecommendationsSaved.Add(1)
	if e.audit != nil {
		_ = e.audit.RecordRecommendationSaved(ctx, rec.PartID, rec.VehicleSlug, rec.UpgradeKey, rec.Rank, actor)
	}
	e.invalidateVehicle(ctx, rec.VehicleSlug)
	e.logger.Debug().
		Str("part_id", rec.PartID.String()).
		Str("vehicle_slug", rec.VehicleSlug).
		Str("upgrade_key", rec.UpgradeKey).
		Int("rank", rec.Rank).
		Msg("Advisor recommendation saved")
}

// ListRecommendations returns the current slate for a vehicle and upgrade
// path, ordered by rank.
func (e *Engine) ListRecommendations(ctx context.Context, vehicleSlug, upgradeKey string) ([]*storage.AdvisorRecommendation, error) {
	vehicleSlug = strings.ToLower(strings.TrimSpace(vehicleSlug))
	upgradeKey = strings.ToLower(strings.TrimSpace(upgradeKey))
	if vehicleSlug == "" || upgradeKey == "" {
		return nil, fmt.Errorf("%w: vehicle slug and upgrade key are required", ErrInvalidInput)
	}
	return e.repos.Recommendations.ListByVehicleUpgrade(ctx, vehicleSlug, upgradeKey)
}
