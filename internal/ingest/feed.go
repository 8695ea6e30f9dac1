// Package ingest decodes vendor product feeds into the neutral FeedProduct
// form the catalog consumes. Each registered ingestion shape has its own
// decoder; all of them tolerate partial feeds, reporting unusable records as
// warnings instead of failing the batch.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/vendors"
)

// ErrUnknownShape reports a feed shape with no registered decoder.
var ErrUnknownShape = errors.New("unknown feed shape")

// FeedProduct is one product record in vendor-neutral form. Prices are
// integer cents; Currency may be empty when the feed is store-scoped, the
// pricing layer defaults it. Tags arrive cleaned and deduplicated.
type FeedProduct struct {
	RecordID    uuid.UUID `json:"record_id"`
	ExternalID  string    `json:"external_id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand,omitempty"`
	Category    string    `json:"category,omitempty"`
	PartNumber  string    `json:"part_number,omitempty"`
	Description string    `json:"description,omitempty"`
	ProductURL  string    `json:"product_url,omitempty"`
	PriceCents  int64     `json:"price_cents,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	InStock     bool      `json:"in_stock"`
	Tags        []string  `json:"tags,omitempty"`
}

// FeedWarning flags a record the decoder had to skip or partially drop.
type FeedWarning struct {
	Record  int    `json:"record"`
	Message string `json:"message"`
}

// DecodeFeed decodes a feed payload in the given shape. The vendor key seeds
// the deterministic record ids. Unusable records come back as warnings; only
// a malformed payload or an unregistered shape is an error.
func DecodeFeed(vendorKey string, shape vendors.Shape, r io.Reader) ([]FeedProduct, []FeedWarning, error) {
	switch shape {
	case vendors.ShapeShopify:
		return decodeShopify(vendorKey, r)
	case vendors.ShapeWooCommerce:
		return decodeWooCommerce(vendorKey, r)
	case vendors.ShapeBigCommerce:
		return decodeBigCommerce(vendorKey, r)
	case vendors.ShapeCustomJSON:
		return decodeCustomJSON(vendorKey, r)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownShape, shape)
	}
}

// RecordID creates a deterministic id for a feed record, so re-importing the
// same feed resolves to the same records instead of minting new ones.
func RecordID(vendorKey, externalID string) uuid.UUID {
	// Use UUID v5 for deterministic generation
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8") // DNS namespace
	return uuid.NewSHA1(namespace, []byte(vendorKey+":"+externalID))
}

// SplitTags breaks a vendor tag string on the separators seen across feed
// shapes (comma, semicolon, pipe) and cleans the pieces.
func SplitTags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	return CleanTags(fields)
}

// CleanTags trims, drops empties and deduplicates case-insensitively while
// preserving first-seen order and casing. Chassis-code tags are matched by
// case-insensitive patterns downstream, so original casing is kept for
// display.
func CleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// categoryKeywords maps product text to catalog categories, checked in
// order. Order is load-bearing: "turbo back exhaust" must land in exhaust
// before the turbo keyword can claim it for forced induction.
var categoryKeywords = []struct {
	keyword  string
	category storage.PartCategory
}{
	{"intake", storage.PartCategoryIntake},
	{"air filter", storage.PartCategoryIntake},
	{"exhaust", storage.PartCategoryExhaust},
	{"catback", storage.PartCategoryExhaust},
	{"cat-back", storage.PartCategoryExhaust},
	{"downpipe", storage.PartCategoryExhaust},
	{"down pipe", storage.PartCategoryExhaust},
	{"midpipe", storage.PartCategoryExhaust},
	{"mid pipe", storage.PartCategoryExhaust},
	{"muffler", storage.PartCategoryExhaust},
	{"resonator", storage.PartCategoryExhaust},
	{"tune", storage.PartCategoryTune},
	{"ecu", storage.PartCategoryTune},
	{"software", storage.PartCategoryTune},
	{"coilover", storage.PartCategorySuspension},
	{"spring", storage.PartCategorySuspension},
	{"sway bar", storage.PartCategorySuspension},
	{"damper", storage.PartCategorySuspension},
	{"shock", storage.PartCategorySuspension},
	{"camber", storage.PartCategorySuspension},
	{"brake", storage.PartCategoryBrakes},
	{"rotor", storage.PartCategoryBrakes},
	{"caliper", storage.PartCategoryBrakes},
	{"intercooler", storage.PartCategoryCooling},
	{"radiator", storage.PartCategoryCooling},
	{"oil cooler", storage.PartCategoryCooling},
	{"turbo", storage.PartCategoryForcedInduction},
	{"supercharger", storage.PartCategoryForcedInduction},
	{"wastegate", storage.PartCategoryForcedInduction},
	{"charge pipe", storage.PartCategoryForcedInduction},
	{"blow off", storage.PartCategoryForcedInduction},
	{"diverter valve", storage.PartCategoryForcedInduction},
	{"clutch", storage.PartCategoryDrivetrain},
	{"flywheel", storage.PartCategoryDrivetrain},
	{"differential", storage.PartCategoryDrivetrain},
	{"driveshaft", storage.PartCategoryDrivetrain},
	{"axle", storage.PartCategoryDrivetrain},
	{"mount", storage.PartCategoryDrivetrain},
	{"injector", storage.PartCategoryFuelSystem},
	{"fuel pump", storage.PartCategoryFuelSystem},
	{"hpfp", storage.PartCategoryFuelSystem},
	{"fuel rail", storage.PartCategoryFuelSystem},
	{"wheel", storage.PartCategoryWheelsTires},
	{"tire", storage.PartCategoryWheelsTires},
	{"tyre", storage.PartCategoryWheelsTires},
	{"spacer", storage.PartCategoryWheelsTires},
	{"splitter", storage.PartCategoryAero},
	{"spoiler", storage.PartCategoryAero},
	{"diffuser", storage.PartCategoryAero},
	{"wing", storage.PartCategoryAero},
	{"canard", storage.PartCategoryAero},
}

// InferCategory guesses a catalog category from the vendor's own category
// text first, then from the product name. Unrecognized products land in
// "other" rather than being dropped.
func InferCategory(rawCategory, name string) storage.PartCategory {
	for _, source := range []string{rawCategory, name} {
		lower := strings.ToLower(source)
		if lower == "" {
			continue
		}
		for _, entry := range categoryKeywords {
			if strings.Contains(lower, entry.keyword) {
				return entry.category
			}
		}
	}
	return storage.PartCategoryOther
}

// parsePriceCents converts a decimal price string ("1,299.99", "$299.00")
// to integer cents without a float round trip. Returns 0 for anything it
// cannot read; feeds carry enough junk that a bad price should not sink the
// record.
func parsePriceCents(raw string) int64 {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimLeft(cleaned, "$€£ ")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0
	}

	intPart := cleaned
	fracPart := ""
	if idx := strings.IndexByte(cleaned, '.'); idx >= 0 {
		intPart = cleaned[:idx]
		fracPart = cleaned[idx+1:]
	}
	if len(fracPart) > 2 {
		fracPart = fracPart[:2]
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	var cents int64
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return 0
		}
		cents = cents*10 + int64(r-'0')
	}
	return cents
}
