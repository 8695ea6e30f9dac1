// Package main provides the standalone vendor feed importer, built for
// scheduled runs: feeds come from files or stdin, records go through the
// catalog pipeline on a bounded worker pool, and the exit code tells the
// scheduler how the run went (0 clean, 1 record failures, 2 nothing
// imported).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/cache"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/catalog"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/config"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/ingest"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/monitoring"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/vendors"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		cfgPath     = flag.String("config", "", "config file path")
		vendorKey   = flag.String("vendor", "", "vendor key from the registry (default: importer.default_vendor)")
		actor       = flag.String("actor", "feed-importer", "actor name for the audit trail")
		concurrency = flag.Int("concurrency", 0, "worker count (default: importer.max_concurrent_jobs)")
		jsonOut     = flag.Bool("json", false, "print a JSON run summary to stdout")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: feed-importer [flags] [feed-file...]\n\n")
		fmt.Fprintf(os.Stderr, "Reads stdin when no feed files are given.\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		Error("load config: %v", err)
		return 2
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		Output:      os.Stderr,
		ServiceName: "feed-importer",
	})

	key := *vendorKey
	if key == "" {
		key = cfg.Importer.DefaultVendor
	}
	vendor, ok := vendors.ByKey(key)
	if !ok {
		Error("unknown vendor %q (pass -vendor or set importer.default_vendor)", key)
		return 2
	}

	workers := *concurrency
	if workers <= 0 {
		workers = cfg.Importer.MaxConcurrentJobs
	}
	if workers <= 0 {
		workers = 1
	}

	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		Error("open database: %v", err)
		return 2
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db, cfg.Database.Driver); err != nil {
		Error("migrate database: %v", err)
		return 2
	}
	repos := storage.NewRepositories(db)

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
			defer client.Close()
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
		defer audit.Stop()
	}

	engine := catalog.NewEngine(logger, repos, cacheClient, audit, catalog.EngineConfig{})

	logger.Info().
		Str("vendor", vendor.Key).
		Int("workers", workers).
		Int("feeds", len(paths)).
		Msg("Starting feed import run")

	summary := runSummary{
		Vendor:    vendor.Key,
		Workers:   workers,
		StartedAt: time.Now().UTC(),
	}
	start := time.Now()

	for _, path := range paths {
		report, err := importFeed(ctx, engine, vendor, path, workers, *actor)
		if err != nil {
			logger.Error().Err(err).Str("feed", path).Msg("Feed import failed")
			summary.Errors = append(summary.Errors, feedError{Feed: displayName(path), Error: err.Error()})
			continue
		}
		summary.Feeds = append(summary.Feeds, *report)
	}
	summary.Duration = time.Since(start).Round(time.Millisecond).String()

	var decoded, imported, failed int
	for _, f := range summary.Feeds {
		decoded += f.Decoded
		imported += f.Imported
		failed += f.Failed + f.Partial
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			Error("encode summary: %v", err)
			return 2
		}
	} else {
		Section("Import summary")
		Info("Vendor: %s (%d workers)", vendor.DisplayName, workers)
		for _, f := range summary.Feeds {
			Info("%s: %d decoded, %d imported (%d new), %d fitments, %d prices",
				f.Feed, f.Decoded, f.Imported, f.Created, f.Fitments, f.Prices)
		}
		for _, e := range summary.Errors {
			Error("%s: %s", e.Feed, e.Error)
		}
		if failed > 0 {
			Warning("%d of %d records had failures", failed, decoded)
		}
		if imported > 0 {
			Success("Imported %d records in %s", imported, summary.Duration)
		}
	}

	if imported == 0 {
		return 2
	}
	if failed > 0 || len(summary.Errors) > 0 {
		return 1
	}
	return 0
}

// runSummary is the machine-readable result of one run.
type runSummary struct {
	Vendor    string       `json:"vendor"`
	Workers   int          `json:"workers"`
	StartedAt time.Time    `json:"started_at"`
	Duration  string       `json:"duration"`
	Feeds     []feedReport `json:"feeds"`
	Errors    []feedError  `json:"errors,omitempty"`
}

type feedError struct {
	Feed  string `json:"feed"`
	Error string `json:"error"`
}

// feedReport tallies one feed file.
type feedReport struct {
	Feed     string               `json:"feed"`
	Decoded  int                  `json:"decoded"`
	Imported int                  `json:"imported"`
	Created  int                  `json:"parts_created"`
	Matched  int                  `json:"parts_matched"`
	Fitments int                  `json:"fitments"`
	Prices   int                  `json:"prices_saved"`
	Failed   int                  `json:"failed"`
	Partial  int                  `json:"partial_failures"`
	Warnings []ingest.FeedWarning `json:"warnings,omitempty"`
}

// importFeed decodes one feed source and pushes its records through the
// pipeline. A decode problem is an error; per-record failures are tallied in
// the report, never returned.
func importFeed(ctx context.Context, engine *catalog.Engine, vendor vendors.Vendor, path string, workers int, actor string) (*feedReport, error) {
	var reader io.Reader = os.Stdin
	name := displayName(path)
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open feed: %w", err)
		}
		defer file.Close()
		reader = file
	}

	sp := NewSpinner(fmt.Sprintf("decoding %s", name))
	sp.Start()
	products, warnings, err := ingest.DecodeFeed(vendor.Key, vendor.IngestionShape, reader)
	sp.Stop()
	if err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("feed contains no usable records")
	}

	bar := NewProgressBar(int64(len(products)), name)
	outcomes := processRecords(ctx, engine, vendor, products, workers, actor, bar)
	bar.Finish()

	report := &feedReport{Feed: name, Decoded: len(products), Warnings: warnings}
	for _, outcome := range outcomes {
		if outcome.PartID == uuid.Nil {
			report.Failed++
			continue
		}
		report.Imported++
		if outcome.IsNew {
			report.Created++
		} else {
			report.Matched++
		}
		report.Fitments += outcome.Fitments
		if outcome.PriceSaved {
			report.Prices++
		}
		if !outcome.Success {
			report.Partial++
		}
	}
	return report, nil
}

// processRecords fans the records out to a bounded worker pool. Results keep
// the input order so a record's outcome can be traced back to its feed
// position.
func processRecords(ctx context.Context, engine *catalog.Engine, vendor vendors.Vendor, products []ingest.FeedProduct, workers int, actor string, bar *ProgressBar) []catalog.ImportOutcome {
	type workItem struct {
		index   int
		product ingest.FeedProduct
	}

	workChan := make(chan workItem, len(products))
	results := make([]catalog.ImportOutcome, len(products))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, p := range products {
		workChan <- workItem{index: i, product: p}
	}
	close(workChan)

	if workers > len(products) {
		workers = len(products)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workChan {
				outcome := engine.ImportFeedProduct(ctx, vendor, item.product, actor)

				mu.Lock()
				results[item.index] = outcome
				mu.Unlock()

				if bar != nil {
					bar.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	return results
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}
