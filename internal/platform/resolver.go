// Package platform resolves vendor fitment tags ("8V-RS3", "MK7 GTI 2.0T")
// to stable vehicle identifiers using ordered per-family pattern tables.
// Resolution is deterministic and auditable: every result names the pattern
// that produced it, and confidence is read from the table, never computed.
package platform

import (
	"math"
	"sort"
	"strings"
)

// ReferenceBaseline is the vendor trust level at which a pattern's
// confidence passes through unweighted. Vendors above it can push a match
// toward 1.0, vendors below it pull the match down.
const ReferenceBaseline = 0.85

// Match is the outcome of resolving a single tag.
type Match struct {
	VehicleSlug    string  `json:"vehicle_slug"`
	Confidence     float64 `json:"confidence"`
	MatchedPattern string  `json:"matched_pattern"`
	Family         string  `json:"family"`
}

// Aggregate is one deduplicated entry in a batch resolution: the best
// confidence seen for a vehicle across all input tags, plus every tag that
// contributed to it.
type Aggregate struct {
	VehicleSlug    string   `json:"vehicle_slug"`
	Confidence     float64  `json:"confidence"`
	MatchedPattern string   `json:"matched_pattern"`
	Family         string   `json:"family"`
	Tags           []string `json:"tags"`
}

// Resolve matches one tag against the requested families, in caller order.
// Within a family the first matching pattern wins; there is no scoring
// tie-break beyond table order. A nil families slice searches every family
// in registry order. Returns nil when nothing matches.
func Resolve(tag string, families []string) *Match {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" {
		return nil
	}
	if len(families) == 0 {
		families = Families()
	}
	for _, name := range families {
		table, ok := tablesByName[name]
		if !ok {
			continue
		}
		for _, p := range table.Patterns {
			if p.Expr.MatchString(trimmed) {
				return &Match{
					VehicleSlug:    p.VehicleSlug,
					Confidence:     clamp01(p.Confidence),
					MatchedPattern: p.Expr.String(),
					Family:         name,
				}
			}
		}
	}
	return nil
}

// ResolveAll resolves a batch of tags and deduplicates by vehicle. When
// several tags land on the same vehicle the maximum individual confidence is
// kept, never a sum, so redundant tags cannot inflate trust. Every
// contributing tag is recorded for audit. Results are ordered by confidence
// descending with slug as a deterministic tie-break.
func ResolveAll(tags []string, families []string) []Aggregate {
	byVehicle := make(map[string]*Aggregate)
	for _, tag := range tags {
		m := Resolve(tag, families)
		if m == nil {
			continue
		}
		agg, seen := byVehicle[m.VehicleSlug]
		if !seen {
			byVehicle[m.VehicleSlug] = &Aggregate{
				VehicleSlug:    m.VehicleSlug,
				Confidence:     m.Confidence,
				MatchedPattern: m.MatchedPattern,
				Family:         m.Family,
				Tags:           []string{tag},
			}
			continue
		}
		agg.Tags = append(agg.Tags, tag)
		if m.Confidence > agg.Confidence {
			agg.Confidence = m.Confidence
			agg.MatchedPattern = m.MatchedPattern
			agg.Family = m.Family
		}
	}

	out := make([]Aggregate, 0, len(byVehicle))
	for _, agg := range byVehicle {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].VehicleSlug < out[j].VehicleSlug
	})
	return out
}

// WeightedConfidence scales a pattern confidence by a vendor's baseline
// relative to the reference baseline, clamped to [0,1]. A low-trust vendor's
// otherwise-identical match is down-weighted without touching the tables.
func WeightedConfidence(patternConfidence, vendorBaseline float64) float64 {
	return clamp01(patternConfidence * (vendorBaseline / ReferenceBaseline))
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
