package platform

import "regexp"

// Pattern is one ordered entry in a family table. Confidence is a static
// property of the entry, chosen when the pattern is authored, never computed
// from match strength. Table order is the tie-break: authors place
// high-precision chassis-coded patterns before generic model-name fallbacks,
// and the first match wins.
type Pattern struct {
	Expr        *regexp.Regexp
	VehicleSlug string
	Confidence  float64
	Note        string
}

// FamilyTable groups the patterns for one vehicle family.
type FamilyTable struct {
	Name     string
	Patterns []Pattern
}

var vagPatterns = []Pattern{
	{regexp.MustCompile(`(?i)\b8v[\s-]?rs3\b`), "audi-rs3-8v", 0.85, "chassis-coded RS3"},
	{regexp.MustCompile(`(?i)\b8y[\s-]?rs3\b`), "audi-rs3-8y", 0.85, ""},
	{regexp.MustCompile(`(?i)\brs3\b`), "audi-rs3-8v", 0.80, "bare RS3 defaults to the 8V"},
	{regexp.MustCompile(`(?i)\b8s[\s-]?tt[\s-]?rs\b`), "audi-tt-rs-8s", 0.85, ""},
	{regexp.MustCompile(`(?i)\btt[\s-]?rs\b`), "audi-tt-rs-8s", 0.75, ""},
	{regexp.MustCompile(`(?i)\bb9[\s-]?rs4\b`), "audi-rs4-b9", 0.85, ""},
	{regexp.MustCompile(`(?i)\brs4\b`), "audi-rs4-b9", 0.60, "bare RS4 spans B5 through B9"},
	{regexp.MustCompile(`(?i)\bc8[\s-]?rs6\b`), "audi-rs6-c8", 0.85, ""},
	{regexp.MustCompile(`(?i)\brs6\b`), "audi-rs6-c8", 0.70, ""},
	{regexp.MustCompile(`(?i)\b8v[\s-]?s3\b`), "audi-s3-8v", 0.85, ""},
	{regexp.MustCompile(`(?i)\b8y[\s-]?s3\b`), "audi-s3-8y", 0.85, ""},
	{regexp.MustCompile(`(?i)\b8p[\s-]?s3\b`), "audi-s3-8p", 0.85, ""},
	{regexp.MustCompile(`(?i)\bs3\b`), "audi-s3-8v", 0.60, ""},
	{regexp.MustCompile(`(?i)\bb9[\s-]?s4\b`), "audi-s4-b9", 0.85, ""},
	{regexp.MustCompile(`(?i)\bb8(\.5)?[\s-]?s4\b`), "audi-s4-b8", 0.85, ""},
	{regexp.MustCompile(`(?i)\bs4\b`), "audi-s4-b9", 0.60, ""},
	{regexp.MustCompile(`(?i)\bmk8[\s-]?golf[\s-]?r\b`), "vw-golf-r-mk8", 0.85, ""},
	{regexp.MustCompile(`(?i)\bmk8[\s-]?r\b`), "vw-golf-r-mk8", 0.80, ""},
	{regexp.MustCompile(`(?i)\bmk7(\.5)?[\s-]?golf[\s-]?r\b`), "vw-golf-r-mk7", 0.85, ""},
	{regexp.MustCompile(`(?i)\bmk7(\.5)?[\s-]?r\b`), "vw-golf-r-mk7", 0.80, ""},
	{regexp.MustCompile(`(?i)\bgolf[\s-]?r\b`), "vw-golf-r-mk7", 0.70, "bare Golf R defaults to the Mk7"},
	{regexp.MustCompile(`(?i)\bmk8[\s-]?gti\b`), "vw-golf-gti-mk8", 0.85, ""},
	{regexp.MustCompile(`(?i)\bmk7(\.5)?[\s-]?gti\b`), "vw-golf-gti-mk7", 0.85, ""},
	{regexp.MustCompile(`(?i)\bmk6[\s-]?gti\b`), "vw-golf-gti-mk6", 0.85, ""},
	{regexp.MustCompile(`(?i)\bmk5[\s-]?gti\b`), "vw-golf-gti-mk5", 0.85, ""},
	{regexp.MustCompile(`(?i)\bgti\b`), "vw-golf-gti-mk7", 0.65, "bare GTI defaults to the Mk7"},
	{regexp.MustCompile(`(?i)\bmk7[\s-]?gli\b`), "vw-jetta-gli-mk7", 0.85, ""},
	{regexp.MustCompile(`(?i)\bgli\b`), "vw-jetta-gli-mk7", 0.70, ""},
	{regexp.MustCompile(`(?i)\bleon[\s-]?cupra\b`), "seat-leon-cupra-5f", 0.80, ""},
	{regexp.MustCompile(`(?i)\bcupra[\s-]?(280|290|300)\b`), "seat-leon-cupra-5f", 0.85, ""},
	{regexp.MustCompile(`(?i)\boctavia[\s-]?v?rs\b`), "skoda-octavia-vrs-5e", 0.80, ""},
	{regexp.MustCompile(`(?i)\bmk7\b`), "vw-golf-mk7", 0.55, "chassis only, trim unknown"},
	{regexp.MustCompile(`(?i)\bea888\b`), "vw-golf-gti-mk7", 0.50, "engine code shared across MQB"},
}

var bmwPatterns = []Pattern{
	{regexp.MustCompile(`(?i)\bf80[\s-]?m3\b|\bm3[\s-]?f80\b`), "bmw-m3-f80", 0.85, ""},
	{regexp.MustCompile(`(?i)\bg80[\s-]?m3\b|\bm3[\s-]?g80\b`), "bmw-m3-g80", 0.85, ""},
	{regexp.MustCompile(`(?i)\be9[02][\s-]?m3\b`), "bmw-m3-e9x", 0.85, ""},
	{regexp.MustCompile(`(?i)\be46[\s-]?m3\b`), "bmw-m3-e46", 0.85, ""},
	{regexp.MustCompile(`(?i)\bf80\b`), "bmw-m3-f80", 0.75, ""},
	{regexp.MustCompile(`(?i)\bg80\b`), "bmw-m3-g80", 0.75, ""},
	{regexp.MustCompile(`(?i)\bm3\b`), "bmw-m3-g80", 0.60, "bare M3 defaults to the G80"},
	{regexp.MustCompile(`(?i)\bf82[\s-]?m4\b`), "bmw-m4-f82", 0.85, ""},
	{regexp.MustCompile(`(?i)\bg82[\s-]?m4\b`), "bmw-m4-g82", 0.85, ""},
	{regexp.MustCompile(`(?i)\bm4\b`), "bmw-m4-g82", 0.60, ""},
	{regexp.MustCompile(`(?i)\bf87[\s-]?m2\b|\bm2[\s-]?competition\b`), "bmw-m2-f87", 0.85, ""},
	{regexp.MustCompile(`(?i)\bg87[\s-]?m2\b`), "bmw-m2-g87", 0.85, ""},
	{regexp.MustCompile(`(?i)\bm2\b`), "bmw-m2-g87", 0.60, ""},
	{regexp.MustCompile(`(?i)\bm340i\b`), "bmw-m340i-g20", 0.80, ""},
	{regexp.MustCompile(`(?i)\b340i\b`), "bmw-340i-f30", 0.75, ""},
	{regexp.MustCompile(`(?i)\b335i\b`), "bmw-335i-e90", 0.75, ""},
	{regexp.MustCompile(`(?i)\bb58\b`), "bmw-340i-f30", 0.50, "engine code spans several chassis"},
	{regexp.MustCompile(`(?i)\bn5[45]\b`), "bmw-335i-e90", 0.50, ""},
}

var porschePatterns = []Pattern{
	{regexp.MustCompile(`(?i)\b992[\s-]?gt3\b`), "porsche-911-gt3-992", 0.85, ""},
	{regexp.MustCompile(`(?i)\b991(\.[12])?[\s-]?gt3\b`), "porsche-911-gt3-991", 0.85, ""},
	{regexp.MustCompile(`(?i)\bgt3\b`), "porsche-911-gt3-992", 0.65, ""},
	{regexp.MustCompile(`(?i)\b718[\s-]?(cayman[\s-]?)?gt4\b|\bgt4\b`), "porsche-cayman-gt4-718", 0.80, ""},
	{regexp.MustCompile(`(?i)\b987[\s-]?cayman\b`), "porsche-cayman-987", 0.85, ""},
	{regexp.MustCompile(`(?i)\b981[\s-]?cayman\b`), "porsche-cayman-981", 0.85, ""},
	{regexp.MustCompile(`(?i)\b718\b`), "porsche-cayman-718", 0.70, ""},
	{regexp.MustCompile(`(?i)\b997\b`), "porsche-911-997", 0.75, ""},
	{regexp.MustCompile(`(?i)\b991\b`), "porsche-911-991", 0.75, ""},
	{regexp.MustCompile(`(?i)\b992\b`), "porsche-911-992", 0.75, ""},
	{regexp.MustCompile(`(?i)\bmacan\b`), "porsche-macan-95b", 0.70, ""},
}

var subaruPatterns = []Pattern{
	{regexp.MustCompile(`(?i)\bgd[\s-]?sti\b`), "subaru-wrx-sti-gd", 0.85, ""},
	{regexp.MustCompile(`(?i)\bva[\s-]?sti\b`), "subaru-wrx-sti-va", 0.85, ""},
	{regexp.MustCompile(`(?i)\bwrx[\s-]?sti\b`), "subaru-wrx-sti-va", 0.80, ""},
	{regexp.MustCompile(`(?i)\bsti\b`), "subaru-wrx-sti-va", 0.70, ""},
	{regexp.MustCompile(`(?i)\bva[\s-]?wrx\b`), "subaru-wrx-va", 0.85, ""},
	{regexp.MustCompile(`(?i)\bwrx\b`), "subaru-wrx-va", 0.75, ""},
	{regexp.MustCompile(`(?i)\bbrz\b`), "subaru-brz-zd8", 0.80, ""},
	{regexp.MustCompile(`(?i)\bfa2[04]\b`), "subaru-brz-zd8", 0.50, "engine code shared with the twins"},
	{regexp.MustCompile(`(?i)\bej25\b`), "subaru-wrx-sti-va", 0.50, ""},
}

var fordPatterns = []Pattern{
	{regexp.MustCompile(`(?i)\bgt500\b`), "ford-mustang-gt500-s550", 0.85, ""},
	{regexp.MustCompile(`(?i)\bgt350\b|\bshelby\b`), "ford-mustang-gt350-s550", 0.85, ""},
	{regexp.MustCompile(`(?i)\bs650\b`), "ford-mustang-s650", 0.85, ""},
	{regexp.MustCompile(`(?i)\bs550\b`), "ford-mustang-s550", 0.85, ""},
	{regexp.MustCompile(`(?i)\bmustang[\s-]?gt\b`), "ford-mustang-s550", 0.75, ""},
	{regexp.MustCompile(`(?i)\bmustang\b`), "ford-mustang-s550", 0.65, ""},
	{regexp.MustCompile(`(?i)\bfocus[\s-]?rs\b`), "ford-focus-rs-mk3", 0.85, ""},
	{regexp.MustCompile(`(?i)\bfocus[\s-]?st\b`), "ford-focus-st-mk3", 0.80, ""},
	{regexp.MustCompile(`(?i)\bfiesta[\s-]?st\b`), "ford-fiesta-st-mk7", 0.80, ""},
	{regexp.MustCompile(`(?i)\braptor\b`), "ford-f150-raptor-14th", 0.80, ""},
	{regexp.MustCompile(`(?i)\bf[\s-]?150\b`), "ford-f150-14th", 0.70, ""},
}

var gmPatterns = []Pattern{
	{regexp.MustCompile(`(?i)\bc8[\s-]?corvette\b|\bcorvette[\s-]?c8\b`), "chevrolet-corvette-c8", 0.85, ""},
	{regexp.MustCompile(`(?i)\bc7[\s-]?corvette\b|\bcorvette[\s-]?c7\b`), "chevrolet-corvette-c7", 0.85, ""},
	{regexp.MustCompile(`(?i)\bz06\b`), "chevrolet-corvette-c8", 0.75, ""},
	{regexp.MustCompile(`(?i)\bcorvette\b`), "chevrolet-corvette-c8", 0.65, ""},
	{regexp.MustCompile(`(?i)\bzl1\b`), "chevrolet-camaro-zl1-6th", 0.85, ""},
	{regexp.MustCompile(`(?i)\bcamaro[\s-]?ss\b`), "chevrolet-camaro-ss-6th", 0.80, ""},
	{regexp.MustCompile(`(?i)\bcamaro\b`), "chevrolet-camaro-6th", 0.65, ""},
	{regexp.MustCompile(`(?i)\bct5[\s-]?v\b`), "cadillac-ct5-v", 0.80, ""},
	{regexp.MustCompile(`(?i)\bct4[\s-]?v\b`), "cadillac-ct4-v", 0.80, ""},
	{regexp.MustCompile(`(?i)\blt[14]\b`), "chevrolet-corvette-c7", 0.50, "engine code spans Corvette and Camaro"},
}

var hondaPatterns = []Pattern{
	{regexp.MustCompile(`(?i)\bfl5\b`), "honda-civic-type-r-fl5", 0.85, ""},
	{regexp.MustCompile(`(?i)\bfk8\b`), "honda-civic-type-r-fk8", 0.85, ""},
	{regexp.MustCompile(`(?i)\btype[\s-]?r\b`), "honda-civic-type-r-fl5", 0.70, "bare Type R defaults to the FL5"},
	{regexp.MustCompile(`(?i)\bctr\b`), "honda-civic-type-r-fl5", 0.65, ""},
	{regexp.MustCompile(`(?i)\bap[12][\s-]?s2000\b|\bs2000\b`), "honda-s2000-ap2", 0.80, ""},
	{regexp.MustCompile(`(?i)\b10th[\s-]?gen[\s-]?civic\b`), "honda-civic-fc", 0.75, ""},
	{regexp.MustCompile(`(?i)\bk2[04]\b`), "honda-civic-type-r-fk8", 0.50, "engine code spans chassis"},
}

var moparPatterns = []Pattern{
	{regexp.MustCompile(`(?i)\bhellcat\b`), "dodge-challenger-hellcat", 0.85, ""},
	{regexp.MustCompile(`(?i)\btrackhawk\b`), "jeep-grand-cherokee-trackhawk", 0.85, ""},
	{regexp.MustCompile(`(?i)\bscat[\s-]?pack\b`), "dodge-challenger-scatpack", 0.80, ""},
	{regexp.MustCompile(`(?i)\bsrt[\s-]?8\b`), "dodge-challenger-srt8", 0.80, ""},
	{regexp.MustCompile(`(?i)\bchallenger\b`), "dodge-challenger-lc", 0.65, ""},
	{regexp.MustCompile(`(?i)\bcharger\b`), "dodge-charger-ld", 0.65, ""},
	{regexp.MustCompile(`(?i)\bhemi\b`), "dodge-challenger-lc", 0.50, "engine family only"},
}

// familyTables is the registry of every family, in default search order.
// Kept as an ordered slice, not a map, because family order is the outer
// tie-break when a caller does not scope the search.
var familyTables = []FamilyTable{
	{Name: "vag", Patterns: vagPatterns},
	{Name: "bmw", Patterns: bmwPatterns},
	{Name: "porsche", Patterns: porschePatterns},
	{Name: "subaru", Patterns: subaruPatterns},
	{Name: "ford", Patterns: fordPatterns},
	{Name: "gm", Patterns: gmPatterns},
	{Name: "honda", Patterns: hondaPatterns},
	{Name: "mopar", Patterns: moparPatterns},
}

var tablesByName = func() map[string]FamilyTable {
	m := make(map[string]FamilyTable, len(familyTables))
	for _, t := range familyTables {
		m[t.Name] = t
	}
	return m
}()

// Families returns every registered family name in default search order.
func Families() []string {
	names := make([]string, len(familyTables))
	for i, t := range familyTables {
		names[i] = t.Name
	}
	return names
}
