package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/vendors"
)

func TestDecodeFeed_Shopify(t *testing.T) {
	payload := `{
  "products": [
    {
      "id": 7234567890,
      "title": "Catback Exhaust System",
      "handle": "catback-exhaust-audi-rs3-8v",
      "vendor": "Milltek",
      "product_type": "Exhaust",
      "body_html": "<p>Resonated system for the <b>8V RS3</b> &amp; 8V.2.</p>",
      "tags": ["8V-RS3", "RS3", "Audi"],
      "variants": [
        {"sku": "", "price": "1849.00", "available": false},
        {"sku": "SSXAU754", "price": "1899.00", "available": true}
      ]
    },
    {
      "id": 7234567891,
      "title": "Downpipe",
      "handle": "downpipe-rs3",
      "vendor": "Scorch",
      "product_type": "Exhaust",
      "tags": "8V-RS3, DAZA, Race",
      "variants": [{"sku": "SC-DP-8V", "price": "649.00", "available": false}]
    }
  ]
}`

	products, warnings, err := DecodeFeed("turner-motorsport", vendors.ShapeShopify, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, products, 2)

	catback := products[0]
	assert.Equal(t, "7234567890", catback.ExternalID)
	assert.Equal(t, RecordID("turner-motorsport", "7234567890"), catback.RecordID)
	assert.Equal(t, "Catback Exhaust System", catback.Name)
	assert.Equal(t, "Milltek", catback.Brand)
	assert.Equal(t, "Exhaust", catback.Category)
	assert.Equal(t, "Resonated system for the 8V RS3 & 8V.2.", catback.Description)
	assert.Equal(t, "/products/catback-exhaust-audi-rs3-8v", catback.ProductURL)
	assert.Equal(t, "SSXAU754", catback.PartNumber)
	assert.Equal(t, int64(184900), catback.PriceCents)
	assert.True(t, catback.InStock)
	assert.Equal(t, []string{"8V-RS3", "RS3", "Audi"}, catback.Tags)

	// Comma-joined tag string, the admin API form.
	downpipe := products[1]
	assert.Equal(t, []string{"8V-RS3", "DAZA", "Race"}, downpipe.Tags)
	assert.Equal(t, "SC-DP-8V", downpipe.PartNumber)
	assert.False(t, downpipe.InStock)
}

func TestDecodeFeed_WooCommerce(t *testing.T) {
	payload := `[
  {
    "id": 812,
    "name": "Downpipe",
    "permalink": "https://modbargains.com/product/downpipe-8v-rs3",
    "sku": "DP-RS3-8V",
    "price": "",
    "regular_price": "699.00",
    "stock_status": "instock",
    "description": "<p>High-flow catted downpipe.</p>",
    "short_description": "<p></p>",
    "tags": [{"name": "8V-RS3"}, {"name": "RS3"}],
    "categories": [{"name": "Exhaust"}],
    "attributes": [{"name": "Brand", "options": ["Scorch"]}]
  },
  {
    "id": 813,
    "name": "Lowering Springs",
    "sku": "LS-8V",
    "price": "289.00",
    "stock_status": "outofstock",
    "tags": [],
    "categories": [{"name": "Suspension"}],
    "attributes": []
  }
]`

	products, warnings, err := DecodeFeed("modbargains", vendors.ShapeWooCommerce, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, products, 2)

	downpipe := products[0]
	assert.Equal(t, "812", downpipe.ExternalID)
	assert.Equal(t, "Scorch", downpipe.Brand)
	assert.Equal(t, "Exhaust", downpipe.Category)
	assert.Equal(t, "DP-RS3-8V", downpipe.PartNumber)
	assert.Equal(t, "https://modbargains.com/product/downpipe-8v-rs3", downpipe.ProductURL)
	assert.Equal(t, int64(69900), downpipe.PriceCents) // regular_price fallback
	assert.Equal(t, "High-flow catted downpipe.", downpipe.Description)
	assert.True(t, downpipe.InStock)
	assert.Equal(t, []string{"8V-RS3", "RS3"}, downpipe.Tags)

	springs := products[1]
	assert.Empty(t, springs.Brand)
	assert.Equal(t, int64(28900), springs.PriceCents)
	assert.False(t, springs.InStock)
}

func TestDecodeFeed_BigCommerce(t *testing.T) {
	payload := `{
  "data": [
    {
      "id": 55,
      "name": "Competition Intercooler",
      "sku": "200001064",
      "price": 999.95,
      "brand_name": "Wagner Tuning",
      "availability": "available",
      "inventory_level": 4,
      "search_keywords": "8V-RS3, intercooler",
      "description": "Bar and plate core.",
      "custom_url": {"url": "/competition-intercooler-8v/"}
    },
    {
      "id": 56,
      "name": "HPFP Upgrade",
      "sku": "HPFP-EA888",
      "price": 849.5,
      "brand_name": "APR",
      "availability": "",
      "inventory_level": 2,
      "search_keywords": "MK7 GTI"
    }
  ],
  "meta": {}
}`

	products, warnings, err := DecodeFeed("summit-racing", vendors.ShapeBigCommerce, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, products, 2)

	intercooler := products[0]
	assert.Equal(t, "55", intercooler.ExternalID)
	assert.Equal(t, "Wagner Tuning", intercooler.Brand)
	assert.Equal(t, int64(99995), intercooler.PriceCents)
	assert.Equal(t, "/competition-intercooler-8v/", intercooler.ProductURL)
	assert.True(t, intercooler.InStock)
	assert.Equal(t, []string{"8V-RS3", "intercooler"}, intercooler.Tags)

	// Empty availability falls back to the inventory level.
	pump := products[1]
	assert.Equal(t, int64(84950), pump.PriceCents)
	assert.True(t, pump.InStock)
}

func TestDecodeFeed_CustomJSON(t *testing.T) {
	payload := `{
  "products": [
    {
      "external_id": "251982",
      "name": "Catback Exhaust",
      "brand": "Milltek",
      "category": "Exhaust",
      "part_number": "SSXAU754",
      "description": "Valved resonated system.",
      "url": "https://www.ecstuning.com/b-milltek-parts/catback-exhaust/ssxau754/",
      "price_cents": 184900,
      "currency": "usd",
      "in_stock": true,
      "tags": ["8V-RS3", "rs3", "RS3"]
    }
  ]
}`

	products, warnings, err := DecodeFeed("ecs-tuning", vendors.ShapeCustomJSON, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, products, 1)

	catback := products[0]
	assert.Equal(t, "251982", catback.ExternalID)
	assert.Equal(t, RecordID("ecs-tuning", "251982"), catback.RecordID)
	assert.Equal(t, "Milltek", catback.Brand)
	assert.Equal(t, int64(184900), catback.PriceCents)
	assert.Equal(t, "USD", catback.Currency)
	assert.True(t, catback.InStock)
	// Duplicate tag dropped case-insensitively, first casing kept.
	assert.Equal(t, []string{"8V-RS3", "rs3"}, catback.Tags)
}

func TestDecodeFeed_SkipsNamelessRecords(t *testing.T) {
	payload := `{
  "products": [
    {"external_id": "1", "name": "  ", "brand": "APR"},
    {"external_id": "2", "name": "Stage 1 Tune", "brand": "APR"}
  ]
}`

	products, warnings, err := DecodeFeed("ecs-tuning", vendors.ShapeCustomJSON, strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Stage 1 Tune", products[0].Name)
	require.Len(t, warnings, 1)
	assert.Equal(t, 0, warnings[0].Record)
	assert.Contains(t, warnings[0].Message, "missing name")
}

func TestDecodeFeed_UnknownShape(t *testing.T) {
	_, _, err := DecodeFeed("ecs-tuning", vendors.Shape("xml-sitemap"), strings.NewReader("{}"))
	require.ErrorIs(t, err, ErrUnknownShape)
}

func TestDecodeFeed_MalformedPayload(t *testing.T) {
	_, _, err := DecodeFeed("ecs-tuning", vendors.ShapeShopify, strings.NewReader(`{"products": [`))
	require.Error(t, err)
}

func TestRecordID_Deterministic(t *testing.T) {
	a := RecordID("ecs-tuning", "251982")
	b := RecordID("ecs-tuning", "251982")
	c := RecordID("fcp-euro", "251982")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSplitTags(t *testing.T) {
	tags := SplitTags(" 8V-RS3, RS3; Audi | rs3 ,, ")
	assert.Equal(t, []string{"8V-RS3", "RS3", "Audi"}, tags)
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		rawCategory string
		name        string
		want        storage.PartCategory
	}{
		{"Exhaust", "Valved System", storage.PartCategoryExhaust},
		{"", "Turbo-Back Exhaust System", storage.PartCategoryExhaust},
		{"", "Axle-Back Exhaust", storage.PartCategoryExhaust},
		{"", "IS38 Turbocharger Upgrade", storage.PartCategoryForcedInduction},
		{"", "Cold Air Intake", storage.PartCategoryIntake},
		{"", "Lowering Springs", storage.PartCategorySuspension},
		{"", "Competition Intercooler", storage.PartCategoryCooling},
		{"", "Stage 1 ECU Upgrade", storage.PartCategoryTune},
		{"", "Big Brake Kit", storage.PartCategoryBrakes},
		{"", "Forged Wheels 19x9.5", storage.PartCategoryWheelsTires},
		{"", "Carbon Mirror Caps", storage.PartCategoryOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, InferCategory(tt.rawCategory, tt.name), "category=%q name=%q", tt.rawCategory, tt.name)
	}
}

func TestParsePriceCents(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"1,299.99", 129999},
		{"$299.00", 29900},
		{"299.9", 29990},
		{"299", 29900},
		{"299.999", 29999},
		{"", 0},
		{"call for price", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parsePriceCents(tt.raw), "raw=%q", tt.raw)
	}
}
