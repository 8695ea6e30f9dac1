package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/ingest"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/vendors"
)

func mustVendor(t *testing.T, key string) vendors.Vendor {
	t.Helper()

	vendor, ok := vendors.ByKey(key)
	require.True(t, ok, "vendor %q not registered", key)
	return vendor
}

func TestSuggestFitmentsForProduct_WeightsByVendorBaseline(t *testing.T) {
	engine, _ := newTestEngine(t)
	vendor := mustVendor(t, "usp-motorsports")

	product := ingest.FeedProduct{
		Name: "Valved Catback Exhaust",
		Tags: []string{"8V-RS3", "DAZA"},
	}

	suggestions := engine.SuggestFitmentsForProduct(product, vendor)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "audi-rs3-8v", suggestions[0].VehicleSlug)
	assert.Equal(t, "vag", suggestions[0].Family)
	assert.Equal(t, []string{"8V-RS3"}, suggestions[0].Tags)
	// Pattern 0.85 scaled by the 0.90 vendor baseline.
	assert.InDelta(t, 0.90, suggestions[0].Confidence, 1e-9)
}

func TestSuggestFitmentsForProduct_ResolvesFromName(t *testing.T) {
	engine, _ := newTestEngine(t)
	vendor := mustVendor(t, "turner-motorsport")

	product := ingest.FeedProduct{Name: "F80 M3 Catted Downpipe"}

	suggestions := engine.SuggestFitmentsForProduct(product, vendor)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "bmw-m3-f80", suggestions[0].VehicleSlug)
	assert.Equal(t, []string{"F80 M3 Catted Downpipe"}, suggestions[0].Tags)
	assert.InDelta(t, 0.95, suggestions[0].Confidence, 1e-9)
}

func TestSuggestFitmentsForProduct_FamilyScopeExcludesForeignTags(t *testing.T) {
	engine, _ := newTestEngine(t)
	vendor := mustVendor(t, "turner-motorsport")

	product := ingest.FeedProduct{Tags: []string{"8V-RS3"}}

	assert.Empty(t, engine.SuggestFitmentsForProduct(product, vendor))
}

func TestSuggestFitmentsForProduct_UnregisteredVendorUsesReferenceBaseline(t *testing.T) {
	engine, _ := newTestEngine(t)

	product := ingest.FeedProduct{Tags: []string{"MK7 GTI"}}

	suggestions := engine.SuggestFitmentsForProduct(product, vendors.Vendor{})
	require.Len(t, suggestions, 1)
	assert.Equal(t, "vw-golf-gti-mk7", suggestions[0].VehicleSlug)
	assert.InDelta(t, 0.85, suggestions[0].Confidence, 1e-9)
}

func TestImportFeedProduct_FullPipeline(t *testing.T) {
	ctx := context.Background()
	engine, repos := newTestEngine(t)
	vendor := mustVendor(t, "usp-motorsports")

	product := ingest.FeedProduct{
		RecordID:    ingest.RecordID("usp-motorsports", "88771"),
		ExternalID:  "88771",
		Name:        "Cat-Back Exhaust System",
		Brand:       "Milltek Sport",
		PartNumber:  "SSXAU754",
		Description: "Resonated valved system.",
		ProductURL:  "/products/catback-exhaust-8v-rs3",
		PriceCents:  184900,
		Currency:    "usd",
		InStock:     true,
		Tags:        []string{"8V-RS3", "Race"},
	}

	outcome := engine.ImportFeedProduct(ctx, vendor, product, "importer")
	require.NoError(t, outcome.Err)
	assert.True(t, outcome.Success)
	assert.Equal(t, product.RecordID, outcome.RecordID)
	assert.True(t, outcome.IsNew)
	assert.Equal(t, storage.MatchTierInserted, outcome.MatchTier)
	assert.Equal(t, 1, outcome.Fitments)
	assert.True(t, outcome.PriceSaved)
	require.NotEqual(t, uuid.Nil, outcome.PartID)

	part, err := repos.Parts.GetByID(ctx, outcome.PartID)
	require.NoError(t, err)
	assert.Equal(t, "catback exhaust", part.Name)
	assert.Equal(t, "Milltek Sport", part.Manufacturer)
	assert.Equal(t, "https://millteksport.com", part.ManufacturerURL)
	assert.Equal(t, storage.PartCategoryExhaust, part.Category)
	assert.Equal(t, "https://uspmotorsports.com/products/catback-exhaust-8v-rs3", part.ProductURL)
	assert.Equal(t, "feed:usp-motorsports", part.DataSource)
	assert.InDelta(t, 0.90, part.Confidence, 1e-9)
	require.NotNil(t, part.PartNumber)
	assert.Equal(t, "SSXAU754", *part.PartNumber)
	assert.True(t, part.Active)

	fitments, err := repos.Fitments.ListByPart(ctx, outcome.PartID)
	require.NoError(t, err)
	require.Len(t, fitments, 1)
	assert.Equal(t, "audi-rs3-8v", fitments[0].VehicleSlug)
	assert.InDelta(t, 0.90, fitments[0].Confidence, 1e-9)
	assert.False(t, fitments[0].Verified)
	assert.Equal(t, part.ProductURL, fitments[0].SourceURL)

	snapshots, err := repos.Pricing.ListByPart(ctx, outcome.PartID, 10)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "USP Motorsports", snapshots[0].VendorName)
	assert.Equal(t, "https://uspmotorsports.com", snapshots[0].VendorURL)
	assert.Equal(t, int64(184900), snapshots[0].PriceCents)
	assert.Equal(t, "USD", snapshots[0].Currency)
	assert.True(t, snapshots[0].InStock)

	// Re-importing the same record resolves by part number instead of
	// inserting, and the day's price snapshot is replaced, not duplicated.
	product.PriceCents = 179900
	again := engine.ImportFeedProduct(ctx, vendor, product, "importer")
	require.NoError(t, again.Err)
	assert.False(t, again.IsNew)
	assert.Equal(t, storage.MatchTierPartNumber, again.MatchTier)
	assert.Equal(t, outcome.PartID, again.PartID)
	assert.Equal(t, 1, again.Fitments)

	fitments, err = repos.Fitments.ListByPart(ctx, outcome.PartID)
	require.NoError(t, err)
	assert.Len(t, fitments, 1)

	snapshots, err = repos.Pricing.ListByPart(ctx, outcome.PartID, 10)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, int64(179900), snapshots[0].PriceCents)
}

func TestImportFeedProduct_RetailerBrandRejected(t *testing.T) {
	engine, _ := newTestEngine(t)

	outcome := engine.ImportFeedProduct(context.Background(), mustVendor(t, "ecs-tuning"), ingest.FeedProduct{
		Name:  "Luft-Technik Intake System",
		Brand: "ECS Tuning",
		Tags:  []string{"8V-RS3"},
	}, "importer")

	assert.False(t, outcome.Success)
	assert.ErrorIs(t, outcome.Err, ErrRejectedManufacturer)
	assert.Equal(t, uuid.Nil, outcome.PartID)
}

func TestImportFeedProduct_MissingBrandRejected(t *testing.T) {
	engine, _ := newTestEngine(t)

	outcome := engine.ImportFeedProduct(context.Background(), mustVendor(t, "ecs-tuning"), ingest.FeedProduct{
		Name:  "Catback Exhaust",
		Brand: "   ",
	}, "importer")

	assert.False(t, outcome.Success)
	assert.ErrorIs(t, outcome.Err, ErrInvalidInput)
	assert.Equal(t, uuid.Nil, outcome.PartID)
	assert.Zero(t, outcome.Fitments)
}

func TestImportFeedProduct_PartialFailureKeepsResolvedPart(t *testing.T) {
	ctx := context.Background()
	engine, repos := newTestEngine(t)

	// An unregistered vendor carries no identity for the pricing writer, so
	// the price step fails while identity and fitments still land.
	product := ingest.FeedProduct{
		Name:       "Catback",
		Brand:      "Borla",
		PriceCents: 49900,
		Tags:       []string{"8V-RS3"},
	}

	outcome := engine.ImportFeedProduct(ctx, vendors.Vendor{}, product, "importer")
	assert.False(t, outcome.Success)
	assert.ErrorIs(t, outcome.Err, ErrInvalidInput)
	require.NotEqual(t, uuid.Nil, outcome.PartID)
	assert.True(t, outcome.IsNew)
	assert.Equal(t, 1, outcome.Fitments)
	assert.False(t, outcome.PriceSaved)

	part, err := repos.Parts.GetByID(ctx, outcome.PartID)
	require.NoError(t, err)
	assert.Equal(t, "feed", part.DataSource)
	assert.InDelta(t, defaultPartConfidence, part.Confidence, 1e-9)

	snapshots, err := repos.Pricing.ListByPart(ctx, outcome.PartID, 10)
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestImportFeedProduct_NoMatchesStillRegistersPart(t *testing.T) {
	ctx := context.Background()
	engine, repos := newTestEngine(t)

	outcome := engine.ImportFeedProduct(ctx, mustVendor(t, "turner-motorsport"), ingest.FeedProduct{
		Name:  "Carbon Mirror Caps",
		Brand: "Sterckenn",
	}, "importer")
	require.NoError(t, outcome.Err)
	assert.True(t, outcome.Success)
	assert.Zero(t, outcome.Fitments)
	assert.False(t, outcome.PriceSaved)

	fitments, err := repos.Fitments.ListByPart(ctx, outcome.PartID)
	require.NoError(t, err)
	assert.Empty(t, fitments)
}

func TestAbsolutizeURL(t *testing.T) {
	tests := []struct {
		name    string
		site    string
		product string
		want    string
	}{
		{"absolute passes through", "https://uspmotorsports.com", "https://cdn.example.com/p/1", "https://cdn.example.com/p/1"},
		{"path joined to site", "https://uspmotorsports.com", "/products/a", "https://uspmotorsports.com/products/a"},
		{"slashes deduplicated", "https://uspmotorsports.com/", "/products/a", "https://uspmotorsports.com/products/a"},
		{"bare path gains slash", "https://uspmotorsports.com", "products/a", "https://uspmotorsports.com/products/a"},
		{"empty path stays empty", "https://uspmotorsports.com", "", ""},
		{"no site leaves path alone", "", "/products/a", "/products/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, absolutizeURL(tt.site, tt.product))
		})
	}
}
