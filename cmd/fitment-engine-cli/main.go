// Package main provides the Fitment Engine CLI entrypoint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/cache"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/catalog"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/config"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/monitoring"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/platform"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/vendors"
)

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool

	// Configuration and logger
	cfg    *config.Config
	logger *observability.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "fitment-engine-cli",
	Short: "Fitment Engine CLI for part resolution, feed import, and administration",
	Long: `Fitment Engine CLI provides commands for managing the aftermarket part catalog.

Use this tool to:
- Resolve vendor fitment tags to vehicle identifiers
- Import vendor product feeds through the identity pipeline
- Save researched upgrade candidates in bulk
- Seed a demo catalog for development
- Scan the catalog for stale pricing, unverified fitments, and name drift
- Apply database migrations and inspect the vendor registry

All commands support --json for automation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logFormat := "console"
		if outputJSON {
			logFormat = "json"
		}

		level := cfg.Observability.LogLevel
		if !verbose && logFormat == "console" {
			// Console runs keep the log quiet so command output stays readable
			level = "warn"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      logFormat,
			ServiceName: "fitment-engine-cli",
		})

		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newResearchCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVendorsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newResolveCmd creates the resolve subcommand.
func newResolveCmd() *cobra.Command {
	var (
		vendorKey string
		families  []string
	)

	cmd := &cobra.Command{
		Use:   "resolve <tag> [tag...]",
		Short: "Resolve fitment tags to vehicle identifiers",
		Long: `Resolve matches free-form vendor tags ("8V-RS3", "MK7 GTI") against the
platform pattern tables and prints the vehicles they identify.

With --vendor, resolution is scoped to that vendor's families and each
confidence is weighted by the vendor's trust baseline. With --family, only
the named pattern families are searched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseline := platform.ReferenceBaseline
			scope := families
			if vendorKey != "" {
				vendor, ok := vendors.ByKey(vendorKey)
				if !ok {
					return fmt.Errorf("unknown vendor: %s", vendorKey)
				}
				baseline = vendor.BaselineConfidence
				if len(scope) == 0 {
					scope = vendor.Families
				}
			}

			matches := platform.ResolveAll(args, scope)
			for i := range matches {
				matches[i].Confidence = platform.WeightedConfidence(matches[i].Confidence, baseline)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"tags":    args,
					"matches": matches,
				})
			}

			ui := NewUI(outputJSON, false)
			defer ui.Close()

			if len(matches) == 0 {
				ui.Warning("No vehicle matched %d tag(s)", len(args))
				return nil
			}

			rows := make([][]string, 0, len(matches))
			for _, m := range matches {
				rows = append(rows, []string{
					m.VehicleSlug,
					fmt.Sprintf("%.2f", m.Confidence),
					m.Family,
					strings.Join(m.Tags, ", "),
				})
			}
			ui.Table([]string{"VEHICLE", "CONFIDENCE", "FAMILY", "TAGS"}, rows)

			if verbose {
				for _, m := range matches {
					ui.Info("%s matched by %s", m.VehicleSlug, m.MatchedPattern)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&vendorKey, "vendor", "", "scope and weight by vendor key")
	cmd.Flags().StringSliceVar(&families, "family", nil, "restrict to pattern families (vag, bmw, ...)")

	return cmd
}

// newResearchCmd creates the research subcommand.
func newResearchCmd() *cobra.Command {
	var (
		vehicleSlug string
		upgradeKey  string
		actor       string
	)

	cmd := &cobra.Command{
		Use:   "research <file>",
		Short: "Save researched upgrade candidates in bulk",
		Long: `Research reads a JSON array of researched part candidates and runs each
through the full pipeline: identity resolution, fitment, pricing, and ranked
recommendation for the given vehicle and upgrade context.

Individual candidate failures are counted, never abort the batch, so a file
can be re-run safely after fixing bad entries.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read candidates: %w", err)
			}

			var parts []catalog.ResearchedPart
			if err := json.Unmarshal(data, &parts); err != nil {
				return fmt.Errorf("parse candidates: %w", err)
			}
			if len(parts) == 0 {
				return fmt.Errorf("no candidates in %s", args[0])
			}

			if actor == "" {
				actor = os.Getenv("USER")
				if actor == "" {
					actor = "cli"
				}
			}

			engine, cleanup, err := newCatalogEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			ui := NewUI(outputJSON, false)
			defer ui.Close()
			ui.Info("Loaded %d candidates for %s / %s", len(parts), vehicleSlug, upgradeKey)

			spinner := ui.Spinner("saving")
			report := engine.BulkSaveResearchedParts(ctx, vehicleSlug, upgradeKey, parts, actor)
			if spinner != nil {
				spinner.SetTotal(100, true)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"vehicle_slug": vehicleSlug,
					"upgrade_key":  upgradeKey,
					"saved":        report.Saved,
					"failed":       report.Failed,
					"part_ids":     report.PartIDs,
				})
			}

			if report.Failed > 0 {
				ui.Warning("%d of %d candidates failed", report.Failed, len(parts))
			}
			ui.Success("Saved %d candidates (%d parts touched)", report.Saved, len(report.PartIDs))
			return nil
		},
	}

	cmd.Flags().StringVar(&vehicleSlug, "vehicle", "", "vehicle slug the candidates fit (required)")
	cmd.Flags().StringVar(&upgradeKey, "upgrade", "", "upgrade context, e.g. intake or exhaust (required)")
	cmd.Flags().StringVar(&actor, "actor", "", "actor name for the audit trail")

	_ = cmd.MarkFlagRequired("vehicle")
	_ = cmd.MarkFlagRequired("upgrade")

	return cmd
}

// newMigrateCmd creates the migrate subcommand.
func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long: `Migrate applies the schema for the configured database driver. The
statements are idempotent, so re-running against an up-to-date database is a
no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			db, err := storage.Open(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := storage.Migrate(ctx, db, cfg.Database.Driver); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{
					"status": "applied",
					"driver": cfg.Database.Driver,
				})
			}

			ui := NewUI(outputJSON, false)
			defer ui.Close()
			ui.Success("Migrations applied on %s", cfg.Database.Driver)
			return nil
		},
	}

	return cmd
}

// newVendorsCmd creates the vendors subcommand.
func newVendorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vendors",
		Short: "List the vendor registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			list := vendors.All()

			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{"vendors": list})
			}

			ui := NewUI(outputJSON, false)
			defer ui.Close()

			rows := make([][]string, 0, len(list))
			for _, v := range list {
				rows = append(rows, []string{
					v.Key,
					v.DisplayName,
					string(v.IngestionShape),
					strings.Join(v.Families, ", "),
					fmt.Sprintf("%.2f", v.BaselineConfidence),
				})
			}
			ui.Table([]string{"KEY", "NAME", "SHAPE", "FAMILIES", "BASELINE"}, rows)
			return nil
		},
	}
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.Encode(map[string]string{
					"version": "0.1.0",
					"go":      "1.25",
				})
				return
			}
			fmt.Println("fitment-engine-cli v0.1.0")
		},
	}
}

// newCatalogEngine wires the storage, cache, and audit stack for one CLI run.
// The cleanup function flushes the audit writer and closes the connections.
// Migrations are applied up front so a fresh SQLite file works on first use.
func newCatalogEngine(ctx context.Context) (*catalog.Engine, func(), error) {
	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	if err := storage.Migrate(ctx, db, cfg.Database.Driver); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	repos := storage.NewRepositories(db)

	// A CLI write must invalidate the same redis entries the API serves
	// from. Without redis the engine skips invalidation entirely.
	var cacheClient cache.Client
	if cfg.Cache.Driver == "redis" {
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
			Prefix:   cfg.Cache.KeyPrefix + ":",
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, continuing without cache invalidation")
		} else {
			cacheClient = client
		}
	}

	var audit *monitoring.AuditWriter
	if cfg.Audit.Enabled {
		audit = monitoring.NewAuditWriter(logger, repos.Audit, monitoring.AuditConfig{
			BufferSize:    cfg.Audit.BufferSize,
			FlushInterval: cfg.Audit.FlushInterval,
			EnableAsync:   true,
			IncludeDetail: true,
		})
	}

	engine := catalog.NewEngine(logger, repos, cacheClient, audit, catalog.EngineConfig{})

	cleanup := func() {
		if audit != nil {
			audit.Stop()
		}
		if cacheClient != nil {
			cacheClient.Close()
		}
		db.Close()
	}
	return engine, cleanup, nil
}
