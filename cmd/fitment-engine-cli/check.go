package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/monitoring"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// checkTableRows caps console findings tables; the full lists are always in
// the JSON output.
const checkTableRows = 15

// newCheckCmd creates the check subcommand.
func newCheckCmd() *cobra.Command {
	var (
		pricingMaxAge   time.Duration
		unverifiedAfter time.Duration
		confidenceFloor float64
		limit           int
		skipDrift       bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Scan the catalog for stale pricing, unverified fitments, and name drift",
		Long: `Check runs the maintenance scans against the configured database and
prints a findings report. Nothing is mutated; findings are input for the next
research or import run.

Three scans run: parts whose newest price snapshot is older than the pricing
window (never-priced parts count as stale), aging low-confidence fitments
nobody verified, and stored names that no longer agree with the current
normalization rules.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			db, err := storage.Open(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := storage.Migrate(ctx, db, cfg.Database.Driver); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}

			var guard *monitoring.NormalizationGuard
			if !skipDrift {
				guard = monitoring.NewNormalizationGuard(logger, db, monitoring.GuardConfig{})
			}
			runner := monitoring.NewStalenessRunner(logger, db, guard, monitoring.StalenessConfig{
				PricingMaxAge:   pricingMaxAge,
				UnverifiedAfter: unverifiedAfter,
				ConfidenceFloor: confidenceFloor,
				ScanLimit:       limit,
			})

			report, err := runner.RunCheck(ctx)
			if err != nil {
				return fmt.Errorf("run checks: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			ui := NewUI(outputJSON, false)
			defer ui.Close()

			ui.Section("catalog health")
			ui.KeyValue("Stale pricing", len(report.StalePricing))
			ui.KeyValue("Unverified fitments", len(report.UnverifiedFitments))
			ui.KeyValue("Name drift", len(report.NameDrift))

			if len(report.StalePricing) > 0 {
				rows := make([][]string, 0, len(report.StalePricing))
				for _, entry := range report.StalePricing {
					rows = append(rows, []string{
						entry.Manufacturer,
						entry.Name,
						entry.UpdatedAt.Format("2006-01-02"),
					})
				}
				printFindings(ui, []string{"MANUFACTURER", "PART", "LAST TOUCHED"}, rows)
			}

			if len(report.UnverifiedFitments) > 0 {
				rows := make([][]string, 0, len(report.UnverifiedFitments))
				for _, entry := range report.UnverifiedFitments {
					rows = append(rows, []string{
						entry.VehicleSlug,
						entry.PartID.String(),
						fmt.Sprintf("%.2f", entry.Confidence),
						entry.UpdatedAt.Format("2006-01-02"),
					})
				}
				printFindings(ui, []string{"VEHICLE", "PART ID", "CONFIDENCE", "UPDATED"}, rows)
			}

			if len(report.NameDrift) > 0 {
				rows := make([][]string, 0, len(report.NameDrift))
				for _, entry := range report.NameDrift {
					collides := ""
					if entry.CollidesWith != nil {
						collides = entry.CollidesWith.String()
					}
					rows = append(rows, []string{
						entry.Manufacturer,
						entry.StoredName,
						entry.CanonicalName,
						collides,
					})
				}
				printFindings(ui, []string{"MANUFACTURER", "STORED", "CANONICAL", "COLLIDES WITH"}, rows)
			}

			if report.TotalFindings == 0 {
				ui.Success("Catalog is current")
			} else {
				ui.Warning("%d findings", report.TotalFindings)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&pricingMaxAge, "pricing-max-age", 14*24*time.Hour, "price snapshots older than this are stale")
	cmd.Flags().DurationVar(&unverifiedAfter, "unverified-after", 90*24*time.Hour, "unverified fitments older than this are flagged")
	cmd.Flags().Float64Var(&confidenceFloor, "confidence-floor", 0.6, "only fitments below this confidence are flagged")
	cmd.Flags().IntVar(&limit, "limit", 200, "cap per finding list")
	cmd.Flags().BoolVar(&skipDrift, "skip-drift", false, "skip the name drift scan")

	return cmd
}

// printFindings renders a capped table so a large catalog does not flood the
// terminal.
func printFindings(ui *UI, headers []string, rows [][]string) {
	shown := rows
	if len(shown) > checkTableRows {
		shown = shown[:checkTableRows]
	}
	ui.Table(headers, shown)
	if len(rows) > len(shown) {
		ui.Info("and %d more (use --json for the full list)", len(rows)-len(shown))
	}
}
