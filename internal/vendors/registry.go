// Package vendors is the static registry of upstream feed vendors: which
// vehicle families each one legitimately carries, what shape its feed
// arrives in, and how much its fitment tagging is trusted relative to the
// reference baseline.
package vendors

// Shape identifies the wire format of a vendor's product feed.
type Shape string

const (
	ShapeShopify     Shape = "shopify"
	ShapeWooCommerce Shape = "woocommerce"
	ShapeBigCommerce Shape = "bigcommerce"
	ShapeCustomJSON  Shape = "custom-json"
)

// Vendor describes one upstream feed source. Families scope tag resolution
// so a Euro-parts vendor's tags are never matched against, say, Mopar
// patterns. BaselineConfidence weights that vendor's matches; 0.85 is the
// pass-through reference.
type Vendor struct {
	Key                string   `json:"key"`
	DisplayName        string   `json:"display_name"`
	SiteURL            string   `json:"site_url"`
	IngestionShape     Shape    `json:"ingestion_shape"`
	Families           []string `json:"families"`
	BaselineConfidence float64  `json:"baseline_confidence"`
}

var catalog = []Vendor{
	{
		Key:                "ecs-tuning",
		DisplayName:        "ECS Tuning",
		SiteURL:            "https://ecstuning.com",
		IngestionShape:     ShapeCustomJSON,
		Families:           []string{"vag", "bmw", "porsche"},
		BaselineConfidence: 0.85,
	},
	{
		Key:                "fcp-euro",
		DisplayName:        "FCP Euro",
		SiteURL:            "https://fcpeuro.com",
		IngestionShape:     ShapeCustomJSON,
		Families:           []string{"vag", "bmw", "porsche"},
		BaselineConfidence: 0.90,
	},
	{
		Key:                "turner-motorsport",
		DisplayName:        "Turner Motorsport",
		SiteURL:            "https://turnermotorsport.com",
		IngestionShape:     ShapeShopify,
		Families:           []string{"bmw"},
		BaselineConfidence: 0.95,
	},
	{
		Key:                "usp-motorsports",
		DisplayName:        "USP Motorsports",
		SiteURL:            "https://uspmotorsports.com",
		IngestionShape:     ShapeShopify,
		Families:           []string{"vag"},
		BaselineConfidence: 0.90,
	},
	{
		Key:                "maperformance",
		DisplayName:        "MAPerformance",
		SiteURL:            "https://maperformance.com",
		IngestionShape:     ShapeShopify,
		Families:           []string{"subaru", "ford", "honda", "gm"},
		BaselineConfidence: 0.80,
	},
	{
		Key:                "summit-racing",
		DisplayName:        "Summit Racing",
		SiteURL:            "https://summitracing.com",
		IngestionShape:     ShapeBigCommerce,
		Families:           []string{"ford", "gm", "mopar"},
		BaselineConfidence: 0.75,
	},
	{
		Key:                "modbargains",
		DisplayName:        "ModBargains",
		SiteURL:            "https://modbargains.com",
		IngestionShape:     ShapeWooCommerce,
		Families:           []string{"bmw", "honda", "ford"},
		BaselineConfidence: 0.70,
	},
	{
		Key:                "vivid-racing",
		DisplayName:        "Vivid Racing",
		SiteURL:            "https://vividracing.com",
		IngestionShape:     ShapeWooCommerce,
		Families:           []string{"vag", "bmw", "porsche", "subaru", "ford", "gm", "honda", "mopar"},
		BaselineConfidence: 0.60,
	},
	{
		Key:                "carid",
		DisplayName:        "CARiD",
		SiteURL:            "https://carid.com",
		IngestionShape:     ShapeCustomJSON,
		Families:           []string{"vag", "bmw", "porsche", "subaru", "ford", "gm", "honda", "mopar"},
		BaselineConfidence: 0.50,
	},
}

var byKey = func() map[string]Vendor {
	m := make(map[string]Vendor, len(catalog))
	for _, v := range catalog {
		m[v.Key] = v
	}
	return m
}()

// ByKey returns the vendor registered under key.
func ByKey(key string) (Vendor, bool) {
	v, ok := byKey[key]
	return v, ok
}

// ByFamily returns every vendor that carries the given vehicle family, in
// registry order.
func ByFamily(family string) []Vendor {
	var out []Vendor
	for _, v := range catalog {
		for _, f := range v.Families {
			if f == family {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// ByIngestionShape returns every vendor whose feed arrives in the given
// shape, in registry order.
func ByIngestionShape(shape Shape) []Vendor {
	var out []Vendor
	for _, v := range catalog {
		if v.IngestionShape == shape {
			out = append(out, v)
		}
	}
	return out
}

// All returns the full registry in declaration order.
func All() []Vendor {
	out := make([]Vendor, len(catalog))
	copy(out, catalog)
	return out
}
