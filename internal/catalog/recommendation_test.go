package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// assertSlotInvariants checks the two structural rules for a slate: no two
// rows share a rank, no two rows share a part.
func assertSlotInvariants(t *testing.T, recs []*storage.AdvisorRecommendation) {
	t.Helper()

	ranks := make(map[int]uuid.UUID, len(recs))
	parts := make(map[uuid.UUID]int, len(recs))
	for _, rec := range recs {
		if prev, dup := ranks[rec.Rank]; dup {
			t.Fatalf("rank %d held by both %s and %s", rec.Rank, prev, rec.PartID)
		}
		if prev, dup := parts[rec.PartID]; dup {
			t.Fatalf("part %s holds both rank %d and rank %d", rec.PartID, prev, rec.Rank)
		}
		ranks[rec.Rank] = rec.PartID
		parts[rec.PartID] = rec.Rank
	}
}

func TestSaveAdvisorRecommendation_RankReassignment(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	partA := registerPart(t, engine, "Carbon Fiber Intake", storage.PartCategoryIntake)
	partB := registerPart(t, engine, "Catback Exhaust", storage.PartCategoryExhaust)

	_, err := engine.SaveAdvisorRecommendation(ctx, SaveRecommendationInput{
		VehicleSlug: "audi-rs3-8v", UpgradeKey: "stage-1", PartID: partA.ID, Rank: 1, Source: "advisor",
	})
	require.NoError(t, err)
	_, err = engine.SaveAdvisorRecommendation(ctx, SaveRecommendationInput{
		VehicleSlug: "audi-rs3-8v", UpgradeKey: "stage-1", PartID: partB.ID, Rank: 2, Source: "advisor",
	})
	require.NoError(t, err)

	// Promote B into A's slot. A is displaced outright, not shifted; the
	// caller is expected to resubmit the full slate if it wants A back.
	moved, err := engine.SaveAdvisorRecommendation(ctx, SaveRecommendationInput{
		VehicleSlug: "audi-rs3-8v", UpgradeKey: "stage-1", PartID: partB.ID, Rank: 1, Source: "editor",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, moved.Rank)
	assert.Equal(t, "editor", moved.Source, "source refreshed on the move")

	slate, err := engine.ListRecommendations(ctx, "audi-rs3-8v", "stage-1")
	require.NoError(t, err)
	require.Len(t, slate, 1)
	assert.Equal(t, partB.ID, slate[0].PartID)
	assert.Equal(t, 1, slate[0].Rank)
	assertSlotInvariants(t, slate)
}

func TestSaveAdvisorRecommendation_SameRankIsNoOp(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	part := registerPart(t, engine, "Carbon Fiber Intake", storage.PartCategoryIntake)

	input := SaveRecommendationInput{
		VehicleSlug: "audi-rs3-8v", UpgradeKey: "stage-1", PartID: part.ID, Rank: 1, Source: "advisor",
	}
	first, err := engine.SaveAdvisorRecommendation(ctx, input)
	require.NoError(t, err)

	second, err := engine.SaveAdvisorRecommendation(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	slate, err := engine.ListRecommendations(ctx, "audi-rs3-8v", "stage-1")
	require.NoError(t, err)
	assert.Len(t, slate, 1)
}

func TestSaveAdvisorRecommendation_InsertDisplacesOccupant(t *testing.T) {
	engine, repos := newTestEngine(t)
	ctx := context.Background()

	partA := registerPart(t, engine, "Carbon Fiber Intake", storage.PartCategoryIntake)
	partB := registerPart(t, engine, "Turbo Inlet Pipe", storage.PartCategoryForcedInduction)

	_, err := engine.SaveAdvisorRecommendation(ctx, SaveRecommendationInput{
		VehicleSlug: "audi-rs3-8v", UpgradeKey: "stage-2", PartID: partA.ID, Rank: 1,
	})
	require.NoError(t, err)

	saved, err := engine.SaveAdvisorRecommendation(ctx, SaveRecommendationInput{
		VehicleSlug: "audi-rs3-8v", UpgradeKey: "stage-2", PartID: partB.ID, Rank: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, partB.ID, saved.PartID)

	slate, err := engine.ListRecommendations(ctx, "audi-rs3-8v", "stage-2")
	require.NoError(t, err)
	require.Len(t, slate, 1)
	assert.Equal(t, partB.ID, slate[0].PartID)
	assertSlotInvariants(t, slate)

	// The displaced occupant is gone entirely, not parked at another rank.
	_, err = repos.Recommendations.GetByIdentity(ctx, "audi-rs3-8v", "stage-2", partA.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSaveAdvisorRecommendation_SlotInvariantsUnderChurn(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	parts := []*storage.Part{
		registerPart(t, engine, "Carbon Fiber Intake", storage.PartCategoryIntake),
		registerPart(t, engine, "Catback Exhaust", storage.PartCategoryExhaust),
		registerPart(t, engine, "Stage 1 Tune", storage.PartCategoryTune),
	}

	// Shuffle the same three parts through overlapping ranks.
	moves := []struct {
		part int
		rank int
	}{
		{0, 1}, {1, 2}, {2, 3},
		{1, 1}, {0, 2}, {2, 1},
		{0, 1}, {0, 3},
	}
	for _, mv := range moves {
		_, err := engine.SaveAdvisorRecommendation(ctx, SaveRecommendationInput{
			VehicleSlug: "vw-golf-gti-mk7", UpgradeKey: "power-path", PartID: parts[mv.part].ID, Rank: mv.rank,
		})
		require.NoError(t, err)
	}

	slate, err := engine.ListRecommendations(ctx, "vw-golf-gti-mk7", "power-path")
	require.NoError(t, err)
	assertSlotInvariants(t, slate)
}

func TestSaveAdvisorRecommendation_NormalizesKeys(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	part := registerPart(t, engine, "Carbon Fiber Intake", storage.PartCategoryIntake)

	saved, err := engine.SaveAdvisorRecommendation(ctx, SaveRecommendationInput{
		VehicleSlug: "  Audi-RS3-8V ", UpgradeKey: " Stage-1 ", PartID: part.ID, Rank: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "audi-rs3-8v", saved.VehicleSlug)
	assert.Equal(t, "stage-1", saved.UpgradeKey)

	// The differently cased resubmission hits the same row.
	again, err := engine.SaveAdvisorRecommendation(ctx, SaveRecommendationInput{
		VehicleSlug: "AUDI-RS3-8V", UpgradeKey: "STAGE-1", PartID: part.ID, Rank: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)
}

func TestSaveAdvisorRecommendation_Validation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	part := registerPart(t, engine, "Carbon Fiber Intake", storage.PartCategoryIntake)

	_, err := engine.SaveAdvisorRecommendation(ctx, SaveRecommendationInput{
		VehicleSlug: "", UpgradeKey: "stage-1", PartID: part.ID, Rank: 1,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.SaveAdvisorRecommendation(ctx, SaveRecommendationInput{
		VehicleSlug: "audi-rs3-8v", UpgradeKey: "stage-1", PartID: uuid.Nil, Rank: 1,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.SaveAdvisorRecommendation(ctx, SaveRecommendationInput{
		VehicleSlug: "audi-rs3-8v", UpgradeKey: "stage-1", PartID: part.ID, Rank: 0,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSaveAdvisorRecommendation_LostInsertRaceIsBenign(t *testing.T) {
	db := newTestDB(t)
	plain := storage.NewRepositories(db)
	ctx := context.Background()

	race := &raceDB{DB: db, prefix: "INSERT INTO advisor_part_recommendations"}
	engine := NewEngine(testLogger(), storage.NewRepositories(race), nil, nil, EngineConfig{})
	part := registerPart(t, engine, "Carbon Fiber Intake", storage.PartCategoryIntake)

	// A concurrent identical save lands between the slot check and the
	// insert.
	var winner *storage.AdvisorRecommendation
	race.hook = func() {
		winner = &storage.AdvisorRecommendation{
			VehicleSlug: "audi-rs3-8v",
			UpgradeKey:  "stage-1",
			PartID:      part.ID,
			Rank:        1,
			Source:      "batch",
		}
		require.NoError(t, plain.Recommendations.Create(ctx, winner))
	}

	saved, err := engine.SaveAdvisorRecommendation(ctx, SaveRecommendationInput{
		VehicleSlug: "audi-rs3-8v", UpgradeKey: "stage-1", PartID: part.ID, Rank: 1, Source: "advisor",
	})
	require.NoError(t, err, "losing an identical insert race is benign")
	require.NotNil(t, winner)
	assert.Equal(t, winner.ID, saved.ID)

	slate, err := engine.ListRecommendations(ctx, "audi-rs3-8v", "stage-1")
	require.NoError(t, err)
	assert.Len(t, slate, 1)
}
