package manufacturer

// Manufacturer is one canonical entry in the static registry. Name carries
// the casing we store; Website is used to backfill part URLs when a vendor
// record omits one.
type Manufacturer struct {
	Name    string
	Website string
}

// registry lists the manufacturers we recognize. Matching is
// case-insensitive; the Name field is the canonical casing written to the
// catalog.
var registry = []Manufacturer{
	{Name: "APR", Website: "https://goapr.com"},
	{Name: "Unitronic", Website: "https://getunitronic.com"},
	{Name: "Integrated Engineering", Website: "https://performancebyie.com"},
	{Name: "034Motorsport", Website: "https://034motorsport.com"},
	{Name: "AWE Tuning", Website: "https://awe-tuning.com"},
	{Name: "Milltek Sport", Website: "https://millteksport.com"},
	{Name: "Akrapovič", Website: "https://akrapovic.com"},
	{Name: "Borla", Website: "https://borla.com"},
	{Name: "MagnaFlow", Website: "https://magnaflow.com"},
	{Name: "Remus", Website: "https://remus.eu"},
	{Name: "Supersprint", Website: "https://supersprint.com"},
	{Name: "KW Suspension", Website: "https://kwsuspensions.net"},
	{Name: "Bilstein", Website: "https://bilstein.com"},
	{Name: "Öhlins", Website: "https://ohlins.com"},
	{Name: "H&R", Website: "https://h-r.com"},
	{Name: "Eibach", Website: "https://eibach.com"},
	{Name: "BC Racing", Website: "https://bcracing-na.com"},
	{Name: "Whiteline", Website: "https://whiteline.com.au"},
	{Name: "StopTech", Website: "https://stoptech.com"},
	{Name: "Brembo", Website: "https://brembo.com"},
	{Name: "EBC Brakes", Website: "https://ebcbrakes.com"},
	{Name: "Hawk Performance", Website: "https://hawkperformance.com"},
	{Name: "Mishimoto", Website: "https://mishimoto.com"},
	{Name: "CSF", Website: "https://csfrace.com"},
	{Name: "Wagner Tuning", Website: "https://wagner-tuning.com"},
	{Name: "do88", Website: "https://do88.se"},
	{Name: "Garrett", Website: "https://garrettmotion.com"},
	{Name: "Injen", Website: "https://injen.com"},
	{Name: "K&N", Website: "https://knfilters.com"},
	{Name: "aFe Power", Website: "https://afepower.com"},
	{Name: "Cobb Tuning", Website: "https://cobbtuning.com"},
	{Name: "Dinan", Website: "https://dinancars.com"},
	{Name: "Forge Motorsport", Website: "https://forgemotorsport.com"},
	{Name: "DeatschWerks", Website: "https://deatschwerks.com"},
	{Name: "South Bend Clutch", Website: "https://southbendclutch.com"},
	{Name: "Wavetrac", Website: "https://wavetrac.net"},
}

// retailers are storefronts that resell the brands above. A retailer name in
// the manufacturer field is a data error upstream and must never be stored,
// so these are rejected outright rather than accepted-unverified.
var retailers = []string{
	"ECS Tuning",
	"FCP Euro",
	"Turner Motorsport",
	"Pelican Parts",
	"Summit Racing",
	"Jegs",
	"RockAuto",
	"AutoZone",
	"Advance Auto Parts",
	"O'Reilly Auto Parts",
	"CARiD",
	"Vivid Racing",
	"MAPerformance",
	"USP Motorsports",
	"ModBargains",
	"Amazon",
	"eBay",
}
