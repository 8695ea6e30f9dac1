package monitoring

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// backdateFitment rewrites a fitment's updated_at; the repositories always
// stamp the current time, so aging a row takes raw SQL.
func backdateFitment(t *testing.T, db *sql.DB, id uuid.UUID, to time.Time) {
	t.Helper()
	_, err := db.ExecContext(context.Background(),
		"UPDATE part_fitments SET updated_at = $1 WHERE id = $2", to, id)
	require.NoError(t, err)
}

func seedFitment(t *testing.T, repos *storage.Repositories, partID uuid.UUID, slug string, confidence float64, verified bool) uuid.UUID {
	t.Helper()

	fitment := &storage.PartFitment{
		PartID:      partID,
		VehicleSlug: slug,
		Confidence:  confidence,
		Verified:    verified,
	}
	require.NoError(t, repos.Fitments.Upsert(context.Background(), fitment))
	return fitment.ID
}

func TestStalenessRunner_FlagsStalePricingAndUnverifiedFitments(t *testing.T) {
	db := newTestDB(t)
	repos := storage.NewRepositories(db)
	ctx := context.Background()

	neverPriced := seedPart(t, repos, "intake", "APR", storage.PartCategoryIntake, true)
	freshlyPriced := seedPart(t, repos, "downpipe", "APR", storage.PartCategoryExhaust, true)
	stalePriced := seedPart(t, repos, "catback exhaust", "Milltek", storage.PartCategoryExhaust, true)
	seedPart(t, repos, "intercooler", "Wagner Tuning", storage.PartCategoryCooling, false)

	require.NoError(t, repos.Pricing.UpsertDaily(ctx, &storage.PricingSnapshot{
		PartID:     freshlyPriced,
		VendorName: "ECS Tuning",
		PriceCents: 129900,
		InStock:    true,
	}))
	require.NoError(t, repos.Pricing.UpsertDaily(ctx, &storage.PricingSnapshot{
		PartID:      stalePriced,
		VendorName:  "ECS Tuning",
		PriceCents:  164900,
		InStock:     true,
		RecordedDay: time.Now().UTC().AddDate(0, 0, -30),
	}))

	longAgo := time.Now().UTC().AddDate(0, 0, -120)

	flagged := seedFitment(t, repos, neverPriced, "audi-rs3-8v", 0.4, false)
	backdateFitment(t, db, flagged, longAgo)

	verified := seedFitment(t, repos, neverPriced, "audi-s3-8v", 0.4, true)
	backdateFitment(t, db, verified, longAgo)

	confident := seedFitment(t, repos, neverPriced, "vw-golf-r-mk7", 0.9, false)
	backdateFitment(t, db, confident, longAgo)

	seedFitment(t, repos, neverPriced, "bmw-m3-f80", 0.4, false) // recent, still in grace

	runner := NewStalenessRunner(testLogger(), db, nil, StalenessConfig{})

	report, err := runner.RunCheck(ctx)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), report.CheckedAt, 5*time.Second)

	require.Len(t, report.StalePricing, 2)
	var staleIDs []uuid.UUID
	for _, entry := range report.StalePricing {
		staleIDs = append(staleIDs, entry.PartID)
		assert.NotEmpty(t, entry.Name)
		assert.NotEmpty(t, entry.Manufacturer)
	}
	assert.ElementsMatch(t, []uuid.UUID{neverPriced, stalePriced}, staleIDs)

	require.Len(t, report.UnverifiedFitments, 1)
	aging := report.UnverifiedFitments[0]
	assert.Equal(t, flagged, aging.FitmentID)
	assert.Equal(t, neverPriced, aging.PartID)
	assert.Equal(t, "audi-rs3-8v", aging.VehicleSlug)
	assert.InDelta(t, 0.4, aging.Confidence, 1e-9)
	assert.WithinDuration(t, longAgo, aging.UpdatedAt, time.Minute)

	// No guard wired, so the drift check is skipped entirely.
	assert.Empty(t, report.NameDrift)
	assert.Equal(t, 3, report.TotalFindings)
}

func TestStalenessRunner_RunCheckIncludesNameDrift(t *testing.T) {
	db := newTestDB(t)
	repos := storage.NewRepositories(db)
	ctx := context.Background()

	seedPart(t, repos, "Down Pipe", "APR", storage.PartCategoryExhaust, true)

	guard := NewNormalizationGuard(testLogger(), db, GuardConfig{})
	runner := NewStalenessRunner(testLogger(), db, guard, StalenessConfig{})

	report, err := runner.RunCheck(ctx)
	require.NoError(t, err)

	require.Len(t, report.NameDrift, 1)
	assert.Equal(t, "downpipe", report.NameDrift[0].CanonicalName)

	// The same part has never been priced, so both checks fire on it.
	require.Len(t, report.StalePricing, 1)
	assert.Equal(t, 2, report.TotalFindings)
}

func TestStalenessRunner_ScanLimitCapsFindings(t *testing.T) {
	db := newTestDB(t)
	repos := storage.NewRepositories(db)
	ctx := context.Background()

	names := []string{"intake", "downpipe", "midpipe", "intercooler", "coilovers"}
	for _, name := range names {
		seedPart(t, repos, name, "APR", storage.PartCategoryOther, true)
	}

	runner := NewStalenessRunner(testLogger(), db, nil, StalenessConfig{ScanLimit: 3})

	report, err := runner.RunCheck(ctx)
	require.NoError(t, err)
	assert.Len(t, report.StalePricing, 3)
}

// failingDB rejects queries touching one table so a test can watch a single
// sub-check fail.
type failingDB struct {
	storage.DB
	failSubstring string
}

func (d *failingDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if strings.Contains(query, d.failSubstring) {
		return nil, errors.New("table unavailable")
	}
	return d.DB.QueryContext(ctx, query, args...)
}

func TestStalenessRunner_SubCheckFailureDegradesReport(t *testing.T) {
	db := newTestDB(t)
	repos := storage.NewRepositories(db)
	ctx := context.Background()

	partID := seedPart(t, repos, "intake", "APR", storage.PartCategoryIntake, true)
	flagged := seedFitment(t, repos, partID, "audi-rs3-8v", 0.4, false)
	backdateFitment(t, db, flagged, time.Now().UTC().AddDate(0, 0, -120))

	broken := &failingDB{DB: db, failSubstring: "part_pricing_snapshots"}
	runner := NewStalenessRunner(testLogger(), broken, nil, StalenessConfig{})

	report, err := runner.RunCheck(ctx)
	require.NoError(t, err)

	assert.Empty(t, report.StalePricing)
	require.Len(t, report.UnverifiedFitments, 1)
	assert.Equal(t, flagged, report.UnverifiedFitments[0].FitmentID)
	assert.Equal(t, 1, report.TotalFindings)
}

// countingDB counts queries so a test can observe scheduled runs happening.
type countingDB struct {
	storage.DB
	mu      sync.Mutex
	queries int
}

func (d *countingDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	d.mu.Lock()
	d.queries++
	d.mu.Unlock()
	return d.DB.QueryContext(ctx, query, args...)
}

func (d *countingDB) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queries
}

func TestStalenessRunner_ScheduleStopsOnContextCancel(t *testing.T) {
	counter := &countingDB{DB: newTestDB(t)}
	runner := NewStalenessRunner(testLogger(), counter, nil, StalenessConfig{CheckInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Schedule(ctx)
		close(done)
	}()

	// Each run issues two queries, so two ticks have fired by four.
	require.Eventually(t, func() bool { return counter.count() >= 4 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("schedule did not stop after cancel")
	}
}
