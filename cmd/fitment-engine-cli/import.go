package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/catalog"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/ingest"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/platform"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/vendors"
)

// newImportCmd creates the import subcommand.
func newImportCmd() *cobra.Command {
	var (
		vendorKey string
		actor     string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a vendor product feed",
		Long: `Import decodes a vendor feed in the shape the registry declares for the
vendor (shopify, woocommerce, bigcommerce, custom-json) and runs every record
through the identity pipeline: part upsert, fitment suggestions from the
record's tags, and the day's price snapshot.

Pass "-" as the file to read the feed from stdin. With --dry-run the feed is
decoded and resolved but nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			key := vendorKey
			if key == "" {
				key = cfg.Importer.DefaultVendor
			}
			if key == "" {
				return fmt.Errorf("--vendor is required when importer.default_vendor is not configured")
			}
			vendor, ok := vendors.ByKey(key)
			if !ok {
				return fmt.Errorf("unknown vendor: %s", key)
			}

			if actor == "" {
				actor = os.Getenv("USER")
				if actor == "" {
					actor = "cli"
				}
			}

			var reader io.Reader = os.Stdin
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open feed: %w", err)
				}
				defer file.Close()
				reader = file
			}

			ui := NewUI(outputJSON, false)
			defer ui.Close()
			ui.Step("Decoding %s feed (%s)", vendor.DisplayName, vendor.IngestionShape)

			products, warnings, err := ingest.DecodeFeed(vendor.Key, vendor.IngestionShape, reader)
			if err != nil {
				return fmt.Errorf("decode feed: %w", err)
			}
			for _, w := range warnings {
				ui.Warning("record %d: %s", w.Record, w.Message)
			}
			if len(products) == 0 {
				return fmt.Errorf("feed contains no usable records")
			}

			if dryRun {
				resolvable := 0
				for _, p := range products {
					tags := append(append([]string(nil), p.Tags...), p.Name)
					if len(platform.ResolveAll(tags, vendor.Families)) > 0 {
						resolvable++
					}
				}

				if outputJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(map[string]interface{}{
						"dry_run":    true,
						"vendor":     vendor.Key,
						"decoded":    len(products),
						"resolvable": resolvable,
						"warnings":   warnings,
					})
				}

				ui.Success("Dry run: %d records decoded, %d resolve to a vehicle, %d warnings",
					len(products), resolvable, len(warnings))
				return nil
			}

			engine, cleanup, err := newCatalogEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			bar := ui.ProgressBar("importing", int64(len(products)))
			start := time.Now()

			var tally importTally
			for _, product := range products {
				outcome := engine.ImportFeedProduct(ctx, vendor, product, actor)
				tally.record(outcome)
				if outcome.Err != nil && verbose {
					ui.Error("record %s: %v", product.ExternalID, outcome.Err)
				}
				if bar != nil {
					bar.Increment()
				}
			}
			elapsed := time.Since(start)

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"vendor":           vendor.Key,
					"decoded":          len(products),
					"imported":         tally.imported,
					"parts_created":    tally.created,
					"parts_matched":    tally.matched,
					"fitments":         tally.fitments,
					"prices_saved":     tally.prices,
					"failed":           tally.failed,
					"partial_failures": tally.partial,
					"warnings":         warnings,
					"duration":         elapsed.String(),
				})
			}

			ui.Newline()
			ui.Success("Import completed in %s", FormatDuration(elapsed))
			ui.KeyValue("Records", len(products))
			ui.KeyValue("Parts created", tally.created)
			ui.KeyValue("Parts matched", tally.matched)
			ui.KeyValue("Fitments saved", tally.fitments)
			ui.KeyValue("Prices saved", tally.prices)
			if tally.partial > 0 {
				ui.KeyValue("Partial failures", tally.partial)
			}
			if tally.failed > 0 {
				ui.Warning("%d records failed identity resolution", tally.failed)
			}

			if tally.failed == len(products) {
				return fmt.Errorf("all %d records failed", tally.failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vendorKey, "vendor", "", "vendor key from the registry (default: importer.default_vendor)")
	cmd.Flags().StringVar(&actor, "actor", "", "actor name for the audit trail")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "decode and resolve without writing")

	return cmd
}

// importTally accumulates per-record outcomes into the run summary.
type importTally struct {
	imported int
	created  int
	matched  int
	fitments int
	prices   int
	failed   int
	partial  int
}

func (t *importTally) record(outcome catalog.ImportOutcome) {
	if outcome.PartID == uuid.Nil {
		t.failed++
		return
	}
	t.imported++
	if outcome.IsNew {
		t.created++
	} else {
		t.matched++
	}
	t.fitments += outcome.Fitments
	if outcome.PriceSaved {
		t.prices++
	}
	if !outcome.Success {
		t.partial++
	}
}
