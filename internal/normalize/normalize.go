// Package normalize converts free-text aftermarket product names into the
// canonical form stored in the catalog and into loose comparison keys used
// for duplicate detection. Both transforms are pure and deterministic:
// byte-identical input always yields byte-identical output, which is the
// property the whole deduplication protocol rests on.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// rule rewrites one synonym family to its canonical spelling. Rules run in
// declaration order and the order is load-bearing: a specific pattern must
// appear before any general pattern that could consume the same text.
type rule struct {
	pattern *regexp.Regexp
	replace string
}

var synonymRules = []rule{
	// Intakes. The cold-air form must outrank the bare "air intake" form.
	{regexp.MustCompile(`(?i)\bcold[\s-]*air\s+intake\b`), "intake"},
	{regexp.MustCompile(`(?i)\bshort\s+ram\s+intake\b`), "intake"},
	{regexp.MustCompile(`(?i)\bintake\s+system\b`), "intake"},
	{regexp.MustCompile(`(?i)\bair\s+intake\b`), "intake"},
	{regexp.MustCompile(`(?i)\bCAI\b`), "intake"},

	// Exhaust sections. Solid spellings win so that "Cat Back", "Cat-Back"
	// and "Catback" all store identically.
	{regexp.MustCompile(`(?i)\bcat[\s-]+back\b`), "catback"},
	{regexp.MustCompile(`(?i)\bturbo[\s-]+back\b`), "turboback"},
	{regexp.MustCompile(`(?i)\baxle[\s-]+back\b`), "axleback"},
	{regexp.MustCompile(`(?i)\bdown[\s-]+pipe\b`), "downpipe"},
	{regexp.MustCompile(`(?i)\bmid[\s-]+pipe\b`), "midpipe"},
	{regexp.MustCompile(`(?i)\bexhaust\s+system\b`), "exhaust"},

	// Forced induction and cooling.
	{regexp.MustCompile(`(?i)\bfront[\s-]*mount\s+intercooler\b`), "intercooler"},
	{regexp.MustCompile(`(?i)\bFMIC\b`), "intercooler"},
	{regexp.MustCompile(`(?i)\bcharge\s+pipe\s+kit\b`), "charge pipes"},
	{regexp.MustCompile(`(?i)\bcharge\s+pipes?\b`), "charge pipes"},

	// Engine software.
	{regexp.MustCompile(`(?i)\becu\s+tune\b`), "tune"},
	{regexp.MustCompile(`(?i)\becu\s+flash\b`), "tune"},
	{regexp.MustCompile(`(?i)\becu\s+software\b`), "tune"},
	{regexp.MustCompile(`(?i)\bengine\s+tune\b`), "tune"},

	// Suspension.
	{regexp.MustCompile(`(?i)\bcoil[\s-]+overs\b`), "coilovers"},
	{regexp.MustCompile(`(?i)\bcoil[\s-]+over\b`), "coilover"},
	{regexp.MustCompile(`(?i)\blowering\s+springs\b`), "lowering springs"},
	{regexp.MustCompile(`(?i)\bsway[\s-]+bar\b`), "sway bar"},
	{regexp.MustCompile(`(?i)\banti[\s-]+roll\s+bar\b`), "sway bar"},

	// Brakes.
	{regexp.MustCompile(`(?i)\bbig\s+brake\s+kit\b`), "big brake kit"},
	{regexp.MustCompile(`(?i)\bBBK\b`), "big brake kit"},
	{regexp.MustCompile(`(?i)\bbrake\s+pads?\b`), "brake pads"},
	{regexp.MustCompile(`(?i)\bbrake\s+rotors?\b`), "brake rotors"},
	{regexp.MustCompile(`(?i)\bbrake\s+disc(s)?\b`), "brake rotors"},

	// Wheels and tires.
	{regexp.MustCompile(`(?i)\bwheel\s+set\b`), "wheels"},
	{regexp.MustCompile(`(?i)\balloy\s+wheels\b`), "wheels"},

	// Whitespace collapse always runs last.
	{regexp.MustCompile(`\s+`), " "},
}

// trailingFiller is the fixed set of low-information words stripped from the
// end of a canonical name. Only these exact words are eligible; domain words
// such as "exhaust" or "intercooler" are never stripped.
var trailingFiller = map[string]struct{}{
	"system":  {},
	"kit":     {},
	"set":     {},
	"upgrade": {},
	"for":     {},
	"with":    {},
	"and":     {},
	"the":     {},
}

// stopWords is the broader set removed token-by-token when building a
// comparison key: the trailing filler words plus common articles and
// prepositions that carry no product identity.
var stopWords = map[string]struct{}{
	"system":  {},
	"kit":     {},
	"set":     {},
	"upgrade": {},
	"for":     {},
	"with":    {},
	"and":     {},
	"the":     {},
	"a":       {},
	"an":      {},
	"of":      {},
	"in":      {},
	"on":      {},
	"to":      {},
	"by":      {},
	"at":      {},
}

// accentFolder strips combining marks after NFD decomposition, so "Öhlins"
// and "Ohlins" key identically. Pure Unicode table work, no locale input.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize maps a raw product name to its canonical stored form. Synonym
// rules are applied in table order, then trailing filler words are stripped
// repeatedly until a non-filler token ends the string. Empty input returns
// the empty string.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	name := strings.TrimSpace(raw)
	for _, r := range synonymRules {
		name = r.pattern.ReplaceAllString(name, r.replace)
	}
	return stripTrailingFiller(name)
}

// ComparisonKey produces the loose key used for fuzzy equality between
// independently sourced names: Normalize, lower-case, fold accents, drop
// everything that is not a letter, digit or space, collapse whitespace,
// then remove stop words token-by-token. Never stored as a display name.
func ComparisonKey(raw string) string {
	if raw == "" {
		return ""
	}
	key := strings.ToLower(Normalize(raw))
	key = foldAccents(key)

	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, skip := stopWords[tok]; !skip {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// stripTrailingFiller removes eligible filler words from the end of the
// name, looping so chained filler ("Exhaust System Kit") is fully removed.
// The final token always survives so a non-empty name cannot strip to "".
func stripTrailingFiller(name string) string {
	for {
		trimmed := strings.TrimRight(name, " ")
		idx := strings.LastIndexByte(trimmed, ' ')
		if idx < 0 {
			return trimmed
		}
		last := strings.ToLower(trimmed[idx+1:])
		if _, ok := trailingFiller[last]; !ok {
			return trimmed
		}
		name = trimmed[:idx]
	}
}

func foldAccents(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return folded
}
