package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/catalog"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/manufacturer"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/platform"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/vendors"
)

// seedTags are vendor-style fitment tags that all resolve through the
// pattern tables, so seeded fitments exercise the real resolver rather than
// a hardcoded slug list.
var seedTags = []string{
	"8V-RS3", "8Y RS3", "8S TT-RS", "B9 S4", "MK7 GTI", "MK7.5 Golf R",
	"MK8 GTI", "F80 M3", "G80 M3", "G82 M4", "M340i", "991.2 GT3",
	"718 Cayman GT4", "VA STI", "FL5 Type R", "FK8 Type R", "C8 Corvette",
	"S550 Mustang", "Focus RS", "Hellcat",
}

// seedProductLines pairs a catalog category with the product noun used in
// generated names. The category string doubles as the upgrade key for the
// ranked recommendation.
var seedProductLines = []struct {
	category storage.PartCategory
	noun     string
}{
	{storage.PartCategoryIntake, "Cold Air Intake"},
	{storage.PartCategoryExhaust, "Cat-Back Exhaust"},
	{storage.PartCategoryTune, "Performance ECU Tune"},
	{storage.PartCategorySuspension, "Coilover Kit"},
	{storage.PartCategoryBrakes, "Big Brake Kit"},
	{storage.PartCategoryCooling, "Intercooler Kit"},
	{storage.PartCategoryForcedInduction, "Turbo Upgrade Kit"},
	{storage.PartCategoryDrivetrain, "Limited Slip Differential"},
}

var seedTiers = []storage.QualityTier{
	storage.QualityTierBudget,
	storage.QualityTierMid,
	storage.QualityTierPremium,
	storage.QualityTierUltraPremium,
}

// seedEntry is one candidate ready to save: the vehicle and upgrade it
// targets plus the researched-part payload. Rank 0 means "next free slot".
type seedEntry struct {
	vehicleSlug string
	upgrade     string
	candidate   catalog.ResearchedPart
}

// seedFixture is the YAML document accepted by --fixture.
type seedFixture struct {
	Candidates []seedFixtureCandidate `yaml:"candidates"`
}

// seedFixtureCandidate is one hand-authored catalog entry. The tag is
// resolved through the same pattern tables the importer uses, so a fixture
// never hardcodes vehicle slugs.
type seedFixtureCandidate struct {
	Tag          string `yaml:"tag"`
	Manufacturer string `yaml:"manufacturer"`
	Name         string `yaml:"name"`
	Category     string `yaml:"category"`
	Upgrade      string `yaml:"upgrade"`
	PartNumber   string `yaml:"part_number"`
	Description  string `yaml:"description"`
	QualityTier  string `yaml:"quality_tier"`
	Vendor       string `yaml:"vendor"`
	PriceCents   int64  `yaml:"price_cents"`
	Currency     string `yaml:"currency"`
	InStock      *bool  `yaml:"in_stock"`
	Rank         int    `yaml:"rank"`
}

// newSeedCmd creates the seed subcommand.
func newSeedCmd() *cobra.Command {
	var (
		partCount   int
		seedValue   uint64
		actor       string
		fixturePath string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed a demo catalog through the real pipeline",
		Long: `Seed generates a plausible demo catalog and saves every part through the
same composite pipeline the API uses, so identity dedup, fitment resolution,
pricing snapshots, and rank slots all behave exactly as in production.

Manufacturers come from the registry, fitments from resolvable tags, and
pricing from registered vendors. Runs with the same --seed value produce the
same catalog.

With --fixture a curated YAML catalog is seeded instead of a generated one:

  candidates:
    - tag: MK7 GTI
      manufacturer: Integrated Engineering
      name: Cold Air Intake
      category: intake
      part_number: IEINCC1
      quality_tier: premium
      vendor: ecs-tuning
      price_cents: 34900
      rank: 1

Fitment tags in the fixture resolve through the same pattern tables; a
candidate whose tag matches no vehicle is skipped with a warning.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			if actor == "" {
				actor = "seed"
			}

			engine, cleanup, err := newCatalogEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			ui := NewUI(outputJSON, false)
			defer ui.Close()

			var (
				entries   []seedEntry
				requested int
				skipped   int
			)
			if fixturePath != "" {
				var warnings []string
				entries, requested, warnings, err = loadSeedFixture(fixturePath)
				if err != nil {
					return err
				}
				for _, w := range warnings {
					ui.Warning("%s", w)
				}
				skipped = requested - len(entries)
				if len(entries) == 0 {
					return fmt.Errorf("fixture %s contains no usable candidates", fixturePath)
				}
				ui.Step("Seeding %d fixture candidates into the %s catalog", len(entries), cfg.Database.Driver)
			} else {
				faker := gofakeit.New(int64(seedValue))
				entries, skipped = generateSeedEntries(faker, partCount)
				requested = partCount
				ui.Step("Seeding %d parts into the %s catalog", partCount, cfg.Database.Driver)
			}

			bar := ui.ProgressBar("seeding", int64(len(entries)))
			start := time.Now()

			rankSlots := make(map[string]int)
			vehicles := make(map[string]struct{})
			var saved, created, failed int

			for i, entry := range entries {
				slotKey := entry.vehicleSlug + "|" + entry.upgrade
				rank := entry.candidate.Rank
				if rank <= 0 {
					rank = rankSlots[slotKey] + 1
				}
				if rank > rankSlots[slotKey] {
					rankSlots[slotKey] = rank
				}
				entry.candidate.Rank = rank

				result := engine.SaveResearchedPart(ctx, entry.vehicleSlug, entry.upgrade, entry.candidate, actor)
				if result.Success {
					saved++
					if result.IsNew {
						created++
					}
					vehicles[entry.vehicleSlug] = struct{}{}
				} else {
					failed++
					if verbose {
						ui.Error("candidate %d (%s %s): %v", i, entry.candidate.Manufacturer, entry.candidate.Name, result.Err)
					}
				}
				if bar != nil {
					bar.Increment()
				}
			}
			elapsed := time.Since(start)

			slugs := make([]string, 0, len(vehicles))
			for slug := range vehicles {
				slugs = append(slugs, slug)
			}
			sort.Strings(slugs)

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"requested":     requested,
					"saved":         saved,
					"parts_created": created,
					"skipped":       skipped,
					"failed":        failed,
					"vehicles":      slugs,
					"duration":      elapsed.String(),
				})
			}

			ui.Section("seed summary")
			ui.KeyValue("Parts saved", saved)
			ui.KeyValue("Parts created", created)
			ui.KeyValue("Vehicles covered", len(slugs))
			ui.KeyValue("Duration", FormatDuration(elapsed))
			if skipped > 0 {
				ui.Warning("%d candidates skipped", skipped)
			}
			if failed > 0 {
				ui.Warning("%d candidates failed", failed)
			}
			ui.Success("Demo catalog ready")
			return nil
		},
	}

	cmd.Flags().IntVar(&partCount, "parts", 24, "number of parts to generate")
	cmd.Flags().Uint64Var(&seedValue, "seed", 0, "rng seed (0 derives one from the clock)")
	cmd.Flags().StringVar(&actor, "actor", "", "actor name for the audit trail")
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "seed a curated YAML catalog instead of generating one")

	return cmd
}

// generateSeedEntries fabricates count candidates from the registries and the
// resolvable tag list. The returned skip count is tags that failed to
// resolve, which means the tag list drifted from the pattern tables.
func generateSeedEntries(faker *gofakeit.Faker, count int) ([]seedEntry, int) {
	makers := manufacturer.All()
	sellers := vendors.All()

	entries := make([]seedEntry, 0, count)
	skipped := 0
	for i := 0; i < count; i++ {
		line := seedProductLines[faker.Number(0, len(seedProductLines)-1)]
		maker := makers[faker.Number(0, len(makers)-1)]
		seller := sellers[faker.Number(0, len(sellers)-1)]
		tag := seedTags[faker.Number(0, len(seedTags)-1)]

		match := platform.Resolve(tag, nil)
		if match == nil {
			skipped++
			continue
		}

		upgrade := string(line.category)
		entries = append(entries, seedEntry{
			vehicleSlug: match.VehicleSlug,
			upgrade:     upgrade,
			candidate: catalog.ResearchedPart{
				Manufacturer:      maker.Name,
				Name:              fmt.Sprintf("%s%s %s", strings.ToUpper(faker.LetterN(1)), faker.DigitN(2), line.noun),
				Category:          line.category,
				PartNumber:        fmt.Sprintf("%s-%s", strings.ToUpper(faker.LetterN(3)), faker.DigitN(5)),
				ManufacturerURL:   maker.Website,
				Description:       faker.Sentence(10),
				QualityTier:       seedTiers[faker.Number(0, len(seedTiers)-1)],
				Confidence:        0.9,
				DataSource:        "seed",
				FitmentConfidence: match.Confidence,
				FitmentSourceURL:  maker.Website,
				VendorKey:         seller.Key,
				VendorName:        seller.DisplayName,
				PriceCents:        int64(faker.Number(19900, 349900)),
				Currency:          "USD",
				InStock:           faker.Bool(),
				Source:            "seed",
			},
		})
	}
	return entries, skipped
}

// loadSeedFixture reads a curated candidate list. Unresolvable or invalid
// candidates become warnings so a partly-bad fixture still seeds the rest.
func loadSeedFixture(path string) ([]seedEntry, int, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("read fixture: %w", err)
	}

	var fixture seedFixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, 0, nil, fmt.Errorf("parse fixture: %w", err)
	}

	entries := make([]seedEntry, 0, len(fixture.Candidates))
	var warnings []string
	for i, c := range fixture.Candidates {
		category := storage.PartCategory(c.Category)
		if !category.Valid() {
			warnings = append(warnings, fmt.Sprintf("candidate %d (%s): unknown category %q", i, c.Name, c.Category))
			continue
		}
		match := platform.Resolve(c.Tag, nil)
		if match == nil {
			warnings = append(warnings, fmt.Sprintf("candidate %d (%s): tag %q matched no vehicle", i, c.Name, c.Tag))
			continue
		}

		upgrade := c.Upgrade
		if upgrade == "" {
			upgrade = c.Category
		}
		currency := c.Currency
		if currency == "" {
			currency = "USD"
		}
		inStock := true
		if c.InStock != nil {
			inStock = *c.InStock
		}
		vendorName := c.Vendor
		if vendor, ok := vendors.ByKey(c.Vendor); ok {
			vendorName = vendor.DisplayName
		}

		entries = append(entries, seedEntry{
			vehicleSlug: match.VehicleSlug,
			upgrade:     upgrade,
			candidate: catalog.ResearchedPart{
				Manufacturer:      c.Manufacturer,
				Name:              c.Name,
				Category:          category,
				PartNumber:        c.PartNumber,
				Description:       c.Description,
				QualityTier:       storage.QualityTier(c.QualityTier),
				Confidence:        0.9,
				DataSource:        "seed-fixture",
				FitmentConfidence: match.Confidence,
				VendorKey:         c.Vendor,
				VendorName:        vendorName,
				PriceCents:        c.PriceCents,
				Currency:          currency,
				InStock:           inStock,
				Rank:              c.Rank,
				Source:            "seed-fixture",
			},
		})
	}
	return entries, len(fixture.Candidates), warnings, nil
}
