// Package manufacturer classifies candidate manufacturer strings against a
// static registry: known brands come back in canonical casing, known
// retailers are rejected, and everything else is accepted unverified.
package manufacturer

import (
	"strings"
	"sync"
)

var (
	indexOnce     sync.Once
	nameIndex     map[string]Manufacturer
	retailerIndex map[string]struct{}
)

// buildIndex materializes the case-insensitive lookup tables. Runs at most
// once per process; the registry is static so the index is never rebuilt.
func buildIndex() {
	nameIndex = make(map[string]Manufacturer, len(registry))
	for _, m := range registry {
		nameIndex[strings.ToLower(m.Name)] = m
	}
	retailerIndex = make(map[string]struct{}, len(retailers))
	for _, r := range retailers {
		retailerIndex[strings.ToLower(r)] = struct{}{}
	}
}

// Validate classifies a candidate manufacturer name. A retailer returns
// ("", false) and must not be stored. A registry match returns the canonical
// casing. Anything else is returned unchanged: unknown manufacturers are
// allowed through and flagged only by the low default confidence on the
// resulting part.
func Validate(candidate string) (string, bool) {
	indexOnce.Do(buildIndex)

	trimmed := strings.TrimSpace(candidate)
	key := strings.ToLower(trimmed)
	if _, retailer := retailerIndex[key]; retailer {
		return "", false
	}
	if m, known := nameIndex[key]; known {
		return m.Name, true
	}
	return trimmed, true
}

// Lookup returns the canonical registry record for a name, matched
// case-insensitively.
func Lookup(name string) (Manufacturer, bool) {
	indexOnce.Do(buildIndex)

	m, ok := nameIndex[strings.ToLower(strings.TrimSpace(name))]
	return m, ok
}

// IsRetailer reports whether the name is on the retailer denylist.
func IsRetailer(name string) bool {
	indexOnce.Do(buildIndex)

	_, ok := retailerIndex[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// All returns the full registry in declaration order.
func All() []Manufacturer {
	out := make([]Manufacturer, len(registry))
	copy(out, registry)
	return out
}
