package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/config"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:", MaxOpenConns: 1},
	}
	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db, "sqlite"))
	return NewRepositories(db)
}

func testPart(name string, category PartCategory) *Part {
	return &Part{
		Name:         name,
		Manufacturer: "APR",
		Category:     category,
		QualityTier:  QualityTierPremium,
		Confidence:   0.9,
		DataSource:   "research",
		Active:       true,
	}
}

func strPtr(s string) *string { return &s }

func TestPartRepository_CreateAndGet(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	part := testPart("intake", PartCategoryIntake)
	part.PartNumber = strPtr("CI100035")
	part.ProductURL = "https://www.goapr.com/products/intake"
	require.NoError(t, repos.Parts.Create(ctx, part))
	require.NotEqual(t, uuid.Nil, part.ID)

	byID, err := repos.Parts.GetByID(ctx, part.ID)
	require.NoError(t, err)
	assert.Equal(t, "intake", byID.Name)
	assert.Equal(t, "APR", byID.Manufacturer)
	assert.Equal(t, PartCategoryIntake, byID.Category)
	assert.Equal(t, QualityTierPremium, byID.QualityTier)
	require.NotNil(t, byID.PartNumber)
	assert.Equal(t, "CI100035", *byID.PartNumber)
	assert.True(t, byID.Active)
	assert.WithinDuration(t, part.CreatedAt, byID.CreatedAt, time.Second)

	byIdentity, err := repos.Parts.GetByIdentity(ctx, "APR", "intake", PartCategoryIntake)
	require.NoError(t, err)
	assert.Equal(t, part.ID, byIdentity.ID)

	byNumber, err := repos.Parts.GetByPartNumber(ctx, "APR", "CI100035")
	require.NoError(t, err)
	assert.Equal(t, part.ID, byNumber.ID)

	_, err = repos.Parts.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPartRepository_IdentityConflict(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Parts.Create(ctx, testPart("intake", PartCategoryIntake)))

	err := repos.Parts.Create(ctx, testPart("intake", PartCategoryIntake))
	assert.ErrorIs(t, err, ErrConflict)

	// Same name in a different category is a distinct identity.
	require.NoError(t, repos.Parts.Create(ctx, testPart("intake", PartCategoryTune)))
}

func TestPartRepository_PartNumberConflict(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	first := testPart("intake", PartCategoryIntake)
	first.PartNumber = strPtr("CI100035")
	require.NoError(t, repos.Parts.Create(ctx, first))

	// Same manufacturer part number under a different name still collides.
	second := testPart("carbon intake", PartCategoryIntake)
	second.PartNumber = strPtr("CI100035")
	assert.ErrorIs(t, repos.Parts.Create(ctx, second), ErrConflict)

	// Another manufacturer may reuse the number.
	third := testPart("intake", PartCategoryIntake)
	third.Manufacturer = "Integrated Engineering"
	third.PartNumber = strPtr("CI100035")
	require.NoError(t, repos.Parts.Create(ctx, third))

	// Parts without numbers never collide on the number index.
	require.NoError(t, repos.Parts.Create(ctx, testPart("catback exhaust", PartCategoryExhaust)))
	require.NoError(t, repos.Parts.Create(ctx, testPart("downpipe", PartCategoryExhaust)))
}

func TestPartRepository_Update(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	part := testPart("intake", PartCategoryIntake)
	require.NoError(t, repos.Parts.Create(ctx, part))

	part.Description = "open-element carbon fiber intake"
	part.Confidence = 0.95
	part.PartNumber = strPtr("CI100035")
	require.NoError(t, repos.Parts.Update(ctx, part))

	got, err := repos.Parts.GetByID(ctx, part.ID)
	require.NoError(t, err)
	assert.Equal(t, "open-element carbon fiber intake", got.Description)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
	require.NotNil(t, got.PartNumber)

	missing := testPart("ghost", PartCategoryOther)
	missing.ID = uuid.New()
	assert.ErrorIs(t, repos.Parts.Update(ctx, missing), ErrNotFound)

	// Updating onto a taken part number reports a conflict.
	other := testPart("downpipe", PartCategoryExhaust)
	require.NoError(t, repos.Parts.Create(ctx, other))
	other.PartNumber = strPtr("CI100035")
	assert.ErrorIs(t, repos.Parts.Update(ctx, other), ErrConflict)
}

func TestPartRepository_Deactivate(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	part := testPart("intake", PartCategoryIntake)
	require.NoError(t, repos.Parts.Create(ctx, part))
	require.NoError(t, repos.Fitments.Upsert(ctx, &PartFitment{
		PartID: part.ID, VehicleSlug: "audi-rs3-8v", Confidence: 0.9,
	}))

	listed, err := repos.Parts.ListByVehicle(ctx, "audi-rs3-8v")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, repos.Parts.Deactivate(ctx, part.ID))

	listed, err = repos.Parts.ListByVehicle(ctx, "audi-rs3-8v")
	require.NoError(t, err)
	assert.Empty(t, listed)

	assert.ErrorIs(t, repos.Parts.Deactivate(ctx, uuid.New()), ErrNotFound)
}

func TestPartRepository_ListByManufacturerCategory(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	for _, name := range []string{"intake", "carbon intake", "turbo inlet"} {
		require.NoError(t, repos.Parts.Create(ctx, testPart(name, PartCategoryIntake)))
	}
	require.NoError(t, repos.Parts.Create(ctx, testPart("catback exhaust", PartCategoryExhaust)))

	parts, err := repos.Parts.ListByManufacturerCategory(ctx, "APR", PartCategoryIntake, 50)
	require.NoError(t, err)
	assert.Len(t, parts, 3)

	// Most recently updated first.
	assert.Equal(t, "turbo inlet", parts[0].Name)

	parts, err = repos.Parts.ListByManufacturerCategory(ctx, "APR", PartCategoryIntake, 2)
	require.NoError(t, err)
	assert.Len(t, parts, 2)
}

func TestFitmentRepository_UpsertMergesExistingRow(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	part := testPart("intake", PartCategoryIntake)
	require.NoError(t, repos.Parts.Create(ctx, part))

	require.NoError(t, repos.Fitments.Upsert(ctx, &PartFitment{
		PartID:      part.ID,
		VehicleSlug: "audi-rs3-8v",
		Confidence:  0.6,
		SourceURL:   "https://example.com/listing",
	}))

	// A weaker re-assertion must not lower confidence or erase the source,
	// but new facts (verified, notes) are merged in.
	require.NoError(t, repos.Fitments.Upsert(ctx, &PartFitment{
		PartID:      part.ID,
		VehicleSlug: "audi-rs3-8v",
		Confidence:  0.4,
		Verified:    true,
		Notes:       "confirmed on 8V.2 facelift",
	}))

	got, err := repos.Fitments.GetByPartVehicle(ctx, part.ID, "audi-rs3-8v")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, got.Confidence, 1e-9)
	assert.True(t, got.Verified)
	assert.Equal(t, "https://example.com/listing", got.SourceURL)
	assert.Equal(t, "confirmed on 8V.2 facelift", got.Notes)

	// A stronger claim raises confidence and never clears verified.
	require.NoError(t, repos.Fitments.Upsert(ctx, &PartFitment{
		PartID:      part.ID,
		VehicleSlug: "audi-rs3-8v",
		Confidence:  0.9,
	}))
	got, err = repos.Fitments.GetByPartVehicle(ctx, part.ID, "audi-rs3-8v")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.True(t, got.Verified)

	all, err := repos.Fitments.ListByPart(ctx, part.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFitmentRepository_ListByVehicle(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	intake := testPart("intake", PartCategoryIntake)
	exhaust := testPart("catback exhaust", PartCategoryExhaust)
	require.NoError(t, repos.Parts.Create(ctx, intake))
	require.NoError(t, repos.Parts.Create(ctx, exhaust))

	require.NoError(t, repos.Fitments.Upsert(ctx, &PartFitment{
		PartID: intake.ID, VehicleSlug: "audi-rs3-8v", Confidence: 0.7,
	}))
	require.NoError(t, repos.Fitments.Upsert(ctx, &PartFitment{
		PartID: exhaust.ID, VehicleSlug: "audi-rs3-8v", Confidence: 0.95,
	}))
	require.NoError(t, repos.Fitments.Upsert(ctx, &PartFitment{
		PartID: intake.ID, VehicleSlug: "audi-s3-8v", Confidence: 0.5,
	}))

	fitments, err := repos.Fitments.ListByVehicle(ctx, "audi-rs3-8v")
	require.NoError(t, err)
	require.Len(t, fitments, 2)
	assert.Equal(t, exhaust.ID, fitments[0].PartID)
	assert.Equal(t, intake.ID, fitments[1].PartID)

	_, err = repos.Fitments.GetByPartVehicle(ctx, intake.ID, "bmw-m3-g80")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPricingRepository_UpsertDaily(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	part := testPart("intake", PartCategoryIntake)
	require.NoError(t, repos.Parts.Create(ctx, part))

	observed := time.Date(2026, 8, 24, 15, 30, 0, 0, time.UTC)
	require.NoError(t, repos.Pricing.UpsertDaily(ctx, &PricingSnapshot{
		PartID:      part.ID,
		VendorName:  "ecs-tuning",
		PriceCents:  49900,
		InStock:     true,
		RecordedDay: observed,
	}))

	// A second observation on the same day replaces the first row.
	require.NoError(t, repos.Pricing.UpsertDaily(ctx, &PricingSnapshot{
		PartID:      part.ID,
		VendorName:  "ecs-tuning",
		PriceCents:  47500,
		InStock:     false,
		RecordedDay: observed.Add(4 * time.Hour),
	}))

	snapshots, err := repos.Pricing.ListByPart(ctx, part.ID, 10)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, int64(47500), snapshots[0].PriceCents)
	assert.False(t, snapshots[0].InStock)
	assert.Equal(t, "USD", snapshots[0].Currency)

	day := snapshots[0].RecordedDay.UTC()
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), day)

	// The next day starts a new row; a second vendor keeps its own rows.
	require.NoError(t, repos.Pricing.UpsertDaily(ctx, &PricingSnapshot{
		PartID:      part.ID,
		VendorName:  "ecs-tuning",
		PriceCents:  48000,
		RecordedDay: observed.AddDate(0, 0, 1),
	}))
	require.NoError(t, repos.Pricing.UpsertDaily(ctx, &PricingSnapshot{
		PartID:      part.ID,
		VendorName:  "usp-motorsports",
		PriceCents:  46000,
		RecordedDay: observed,
	}))

	snapshots, err = repos.Pricing.ListByPart(ctx, part.ID, 10)
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	// Newest day first, vendors in name order within a day.
	assert.Equal(t, int64(48000), snapshots[0].PriceCents)
	assert.Equal(t, "ecs-tuning", snapshots[1].VendorName)
	assert.Equal(t, "usp-motorsports", snapshots[2].VendorName)
}

func TestRecommendationRepository_RankSlots(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	partA := testPart("intake", PartCategoryIntake)
	partB := testPart("carbon intake", PartCategoryIntake)
	require.NoError(t, repos.Parts.Create(ctx, partA))
	require.NoError(t, repos.Parts.Create(ctx, partB))

	recA := &AdvisorRecommendation{
		VehicleSlug: "audi-rs3-8v",
		UpgradeKey:  "intake",
		PartID:      partA.ID,
		Rank:        1,
		Source:      "advisor",
	}
	require.NoError(t, repos.Recommendations.Create(ctx, recA))

	occupied, err := repos.Recommendations.GetByRank(ctx, "audi-rs3-8v", "intake", 1)
	require.NoError(t, err)
	assert.Equal(t, partA.ID, occupied.PartID)

	// The rank slot is exclusive.
	err = repos.Recommendations.Create(ctx, &AdvisorRecommendation{
		VehicleSlug: "audi-rs3-8v", UpgradeKey: "intake", PartID: partB.ID, Rank: 1,
	})
	assert.ErrorIs(t, err, ErrConflict)

	// Vacating the slot lets the new pick in.
	deleted, err := repos.Recommendations.DeleteByRank(ctx, "audi-rs3-8v", "intake", 1)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repos.Recommendations.DeleteByRank(ctx, "audi-rs3-8v", "intake", 1)
	require.NoError(t, err)
	assert.False(t, deleted)

	recB := &AdvisorRecommendation{
		VehicleSlug: "audi-rs3-8v", UpgradeKey: "intake", PartID: partB.ID, Rank: 1,
	}
	require.NoError(t, repos.Recommendations.Create(ctx, recB))

	recA = &AdvisorRecommendation{
		VehicleSlug: "audi-rs3-8v", UpgradeKey: "intake", PartID: partA.ID, Rank: 2,
	}
	require.NoError(t, repos.Recommendations.Create(ctx, recA))

	// Moving onto an occupied rank is a conflict; a free rank works.
	assert.ErrorIs(t, repos.Recommendations.UpdateRank(ctx, recA.ID, 1, ""), ErrConflict)
	require.NoError(t, repos.Recommendations.UpdateRank(ctx, recA.ID, 3, "advisor"))
	assert.ErrorIs(t, repos.Recommendations.UpdateRank(ctx, uuid.New(), 5, ""), ErrNotFound)

	byIdentity, err := repos.Recommendations.GetByIdentity(ctx, "audi-rs3-8v", "intake", partA.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, byIdentity.Rank)
	assert.Equal(t, "advisor", byIdentity.Source)

	recs, err := repos.Recommendations.ListByVehicleUpgrade(ctx, "audi-rs3-8v", "intake")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Rank)
	assert.Equal(t, partB.ID, recs[0].PartID)
	assert.Equal(t, 3, recs[1].Rank)
}

func TestAuditRepository_BatchAndList(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	partID := uuid.New()
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	events := []AuditEvent{
		{
			Action:     AuditActionPartResolved,
			PartID:     &partID,
			MatchTier:  MatchTierPartNumber,
			Detail:     json.RawMessage(`{"part_number":"CI100035"}`),
			Actor:      "importer",
			OccurredAt: base,
		},
		{
			Action:      AuditActionFitmentSaved,
			PartID:      &partID,
			VehicleSlug: "audi-rs3-8v",
			OccurredAt:  base.Add(time.Minute),
		},
		{
			Action:      AuditActionRankVacated,
			VehicleSlug: "audi-rs3-8v",
			OccurredAt:  base.Add(2 * time.Minute),
		},
	}
	require.NoError(t, repos.Audit.BatchSaveAuditEvents(ctx, events))

	require.NoError(t, repos.Audit.SaveAuditEvent(ctx, &AuditEvent{
		Action:     AuditActionRecommendationSaved,
		OccurredAt: base.Add(3 * time.Minute),
	}))

	listed, err := repos.Audit.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, listed, 4)

	assert.Equal(t, AuditActionRecommendationSaved, listed[0].Action)
	assert.Equal(t, AuditActionRankVacated, listed[1].Action)

	resolved := listed[3]
	assert.Equal(t, AuditActionPartResolved, resolved.Action)
	require.NotNil(t, resolved.PartID)
	assert.Equal(t, partID, *resolved.PartID)
	assert.JSONEq(t, `{"part_number":"CI100035"}`, string(resolved.Detail))

	// Events without detail come back with none.
	assert.Nil(t, listed[1].Detail)

	listed, err = repos.Audit.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestMigrator_Idempotent(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:", MaxOpenConns: 1},
	}
	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, "sqlite"))
	require.NoError(t, Migrate(ctx, db, "sqlite"))

	m := NewMigrator(db, "sqlite")
	status, err := m.CheckMigrations(ctx)
	require.NoError(t, err)
	assert.True(t, status.UpToDate)
	assert.Empty(t, status.Pending)
	assert.Equal(t, status.Total, status.Applied)
	assert.Greater(t, status.Total, 0)
}

func TestCatalogViewRepository_Query(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	intake := testPart("intake", PartCategoryIntake)
	exhaust := testPart("catback exhaust", PartCategoryExhaust)
	milltek := testPart("catback exhaust", PartCategoryExhaust)
	milltek.Manufacturer = "Milltek Sport"
	for _, p := range []*Part{intake, exhaust, milltek} {
		require.NoError(t, repos.Parts.Create(ctx, p))
	}
	require.NoError(t, repos.Fitments.Upsert(ctx, &PartFitment{
		PartID: intake.ID, VehicleSlug: "audi-rs3-8v", Confidence: 0.9,
	}))
	require.NoError(t, repos.Fitments.Upsert(ctx, &PartFitment{
		PartID: milltek.ID, VehicleSlug: "audi-rs3-8v", Confidence: 0.8,
	}))

	view := NewCatalogViewRepository(repos.Parts.db)

	result, err := view.Query(ctx, CatalogQuery{VehicleSlug: "audi-rs3-8v", ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, result.Parts, 2)
	assert.True(t, result.CacheHint.Cacheable)
	assert.Equal(t, "catalog:v:audi-rs3-8v", result.CacheHint.Key)
	assert.Equal(t, 5*time.Minute, result.CacheHint.TTL)

	result, err = view.Query(ctx, CatalogQuery{Category: PartCategoryExhaust})
	require.NoError(t, err)
	assert.Len(t, result.Parts, 2)

	result, err = view.Query(ctx, CatalogQuery{Manufacturer: "APR", Category: PartCategoryExhaust})
	require.NoError(t, err)
	require.Len(t, result.Parts, 1)
	assert.Equal(t, exhaust.ID, result.Parts[0].ID)
	assert.Equal(t, 2*time.Minute, result.CacheHint.TTL)

	found, err := view.SearchByKeyword(ctx, "CATBACK", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	manufacturers, err := view.GetManufacturers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"APR", "Milltek Sport"}, manufacturers)
}
