// Package storage provides database models and repositories for the Fitment Engine.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrConflict         = errors.New("record conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PartRepository handles part identity CRUD operations.
type PartRepository struct {
	db DB
}

// NewPartRepository creates a new part repository.
func NewPartRepository(db DB) *PartRepository {
	return &PartRepository{db: db}
}

// Create inserts a new part. A unique violation on either the identity triple
// or the manufacturer part number reports ErrConflict so callers can re-query.
func (r *PartRepository) Create(ctx context.Context, part *Part) error {
	if part.ID == uuid.Nil {
		part.ID = uuid.New()
	}
	part.CreatedAt = time.Now()
	part.UpdatedAt = time.Now()

	query := `
		INSERT INTO parts (id, name, manufacturer, manufacturer_url, product_url, category,
			quality_tier, description, part_number, confidence, data_source, active,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		part.ID, part.Name, part.Manufacturer, part.ManufacturerURL, part.ProductURL,
		part.Category, part.QualityTier, part.Description, part.PartNumber,
		part.Confidence, part.DataSource, part.Active, part.CreatedAt, part.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// GetByID retrieves a part by ID.
func (r *PartRepository) GetByID(ctx context.Context, id uuid.UUID) (*Part, error) {
	query := `
		SELECT id, name, manufacturer, manufacturer_url, product_url, category,
			quality_tier, description, part_number, confidence, data_source, active,
			created_at, updated_at
		FROM parts WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByPartNumber retrieves a part by manufacturer and manufacturer part number.
func (r *PartRepository) GetByPartNumber(ctx context.Context, manufacturer, partNumber string) (*Part, error) {
	query := `
		SELECT id, name, manufacturer, manufacturer_url, product_url, category,
			quality_tier, description, part_number, confidence, data_source, active,
			created_at, updated_at
		FROM parts WHERE manufacturer = $1 AND part_number = $2
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, manufacturer, partNumber))
}

// GetByIdentity retrieves a part by its identity triple.
func (r *PartRepository) GetByIdentity(ctx context.Context, manufacturer, name string, category PartCategory) (*Part, error) {
	query := `
		SELECT id, name, manufacturer, manufacturer_url, product_url, category,
			quality_tier, description, part_number, confidence, data_source, active,
			created_at, updated_at
		FROM parts WHERE manufacturer = $1 AND name = $2 AND category = $3
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, manufacturer, name, category))
}

// ListByManufacturerCategory retrieves the most recently updated parts for a
// manufacturer and category, newest first.
func (r *PartRepository) ListByManufacturerCategory(ctx context.Context, manufacturer string, category PartCategory, limit int) ([]*Part, error) {
	query := `
		SELECT id, name, manufacturer, manufacturer_url, product_url, category,
			quality_tier, description, part_number, confidence, data_source, active,
			created_at, updated_at
		FROM parts
		WHERE manufacturer = $1 AND category = $2
		ORDER BY updated_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, manufacturer, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// ListByVehicle retrieves active parts with a fitment for the vehicle,
// strongest fitment first.
func (r *PartRepository) ListByVehicle(ctx context.Context, vehicleSlug string) ([]*Part, error) {
	query := `
		SELECT p.id, p.name, p.manufacturer, p.manufacturer_url, p.product_url, p.category,
			p.quality_tier, p.description, p.part_number, p.confidence, p.data_source, p.active,
			p.created_at, p.updated_at
		FROM parts p
		JOIN part_fitments f ON f.part_id = p.id
		WHERE f.vehicle_slug = $1 AND p.active = $2
		ORDER BY f.confidence DESC, p.name ASC
	`
	rows, err := r.db.QueryContext(ctx, query, vehicleSlug, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// Update updates the mutable fields of a part.
func (r *PartRepository) Update(ctx context.Context, part *Part) error {
	part.UpdatedAt = time.Now()

	query := `
		UPDATE parts SET name = $1, manufacturer_url = $2, product_url = $3,
			quality_tier = $4, description = $5, part_number = $6, confidence = $7,
			data_source = $8, active = $9, updated_at = $10
		WHERE id = $11
	`
	result, err := r.db.ExecContext(ctx, query,
		part.Name, part.ManufacturerURL, part.ProductURL, part.QualityTier,
		part.Description, part.PartNumber, part.Confidence, part.DataSource,
		part.Active, part.UpdatedAt, part.ID,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate marks a part inactive without deleting its history.
func (r *PartRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE parts SET active = $1, updated_at = $2 WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, false, time.Now(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PartRepository) scanOne(row *sql.Row) (*Part, error) {
	part := &Part{}
	err := row.Scan(
		&part.ID, &part.Name, &part.Manufacturer, &part.ManufacturerURL, &part.ProductURL,
		&part.Category, &part.QualityTier, &part.Description, &part.PartNumber,
		&part.Confidence, &part.DataSource, &part.Active, &part.CreatedAt, &part.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return part, nil
}

func (r *PartRepository) scanMany(rows *sql.Rows) ([]*Part, error) {
	var parts []*Part
	for rows.Next() {
		part := &Part{}
		if err := rows.Scan(
			&part.ID, &part.Name, &part.Manufacturer, &part.ManufacturerURL, &part.ProductURL,
			&part.Category, &part.QualityTier, &part.Description, &part.PartNumber,
			&part.Confidence, &part.DataSource, &part.Active, &part.CreatedAt, &part.UpdatedAt,
		); err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, rows.Err()
}

// FitmentRepository handles part fitment operations.
type FitmentRepository struct {
	db DB
}

// NewFitmentRepository creates a new fitment repository.
func NewFitmentRepository(db DB) *FitmentRepository {
	return &FitmentRepository{db: db}
}

// Upsert inserts a fitment or merges it into the existing (part, vehicle) row.
// Confidence never decreases and a verified fitment never becomes unverified.
// Source URL and notes are only replaced when the new value is non-empty.
func (r *FitmentRepository) Upsert(ctx context.Context, fitment *PartFitment) error {
	if fitment.ID == uuid.Nil {
		fitment.ID = uuid.New()
	}
	fitment.CreatedAt = time.Now()
	fitment.UpdatedAt = time.Now()

	query := `
		INSERT INTO part_fitments (id, part_id, vehicle_slug, confidence, verified,
			source_url, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (part_id, vehicle_slug) DO UPDATE SET
			confidence = CASE WHEN excluded.confidence > confidence
				THEN excluded.confidence ELSE confidence END,
			verified = verified OR excluded.verified,
			source_url = CASE WHEN excluded.source_url <> ''
				THEN excluded.source_url ELSE source_url END,
			notes = CASE WHEN excluded.notes <> ''
				THEN excluded.notes ELSE notes END,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		fitment.ID, fitment.PartID, fitment.VehicleSlug, fitment.Confidence,
		fitment.Verified, fitment.SourceURL, fitment.Notes,
		fitment.CreatedAt, fitment.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// GetByPartVehicle retrieves the fitment row for a part and vehicle.
func (r *FitmentRepository) GetByPartVehicle(ctx context.Context, partID uuid.UUID, vehicleSlug string) (*PartFitment, error) {
	query := `
		SELECT id, part_id, vehicle_slug, confidence, verified, source_url, notes,
			created_at, updated_at
		FROM part_fitments WHERE part_id = $1 AND vehicle_slug = $2
	`
	fitment := &PartFitment{}
	err := r.db.QueryRowContext(ctx, query, partID, vehicleSlug).Scan(
		&fitment.ID, &fitment.PartID, &fitment.VehicleSlug, &fitment.Confidence,
		&fitment.Verified, &fitment.SourceURL, &fitment.Notes,
		&fitment.CreatedAt, &fitment.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fitment, nil
}

// ListByPart retrieves all fitments for a part, strongest first.
func (r *FitmentRepository) ListByPart(ctx context.Context, partID uuid.UUID) ([]*PartFitment, error) {
	query := `
		SELECT id, part_id, vehicle_slug, confidence, verified, source_url, notes,
			created_at, updated_at
		FROM part_fitments WHERE part_id = $1
		ORDER BY confidence DESC, vehicle_slug ASC
	`
	rows, err := r.db.QueryContext(ctx, query, partID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// ListByVehicle retrieves all fitments for a vehicle, strongest first.
func (r *FitmentRepository) ListByVehicle(ctx context.Context, vehicleSlug string) ([]*PartFitment, error) {
	query := `
		SELECT id, part_id, vehicle_slug, confidence, verified, source_url, notes,
			created_at, updated_at
		FROM part_fitments WHERE vehicle_slug = $1
		ORDER BY confidence DESC, part_id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, vehicleSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *FitmentRepository) scanMany(rows *sql.Rows) ([]*PartFitment, error) {
	var fitments []*PartFitment
	for rows.Next() {
		fitment := &PartFitment{}
		if err := rows.Scan(
			&fitment.ID, &fitment.PartID, &fitment.VehicleSlug, &fitment.Confidence,
			&fitment.Verified, &fitment.SourceURL, &fitment.Notes,
			&fitment.CreatedAt, &fitment.UpdatedAt,
		); err != nil {
			return nil, err
		}
		fitments = append(fitments, fitment)
	}
	return fitments, rows.Err()
}

// PricingRepository handles vendor pricing snapshots.
type PricingRepository struct {
	db DB
}

// NewPricingRepository creates a new pricing repository.
func NewPricingRepository(db DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// UpsertDaily records a vendor price observation, keeping at most one row per
// part, vendor and UTC day. A second observation on the same day overwrites
// the price and stock state.
func (r *PricingRepository) UpsertDaily(ctx context.Context, snapshot *PricingSnapshot) error {
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.Currency == "" {
		snapshot.Currency = "USD"
	}
	if snapshot.RecordedDay.IsZero() {
		snapshot.RecordedDay = time.Now()
	}
	snapshot.RecordedDay = truncateToDay(snapshot.RecordedDay)
	snapshot.CreatedAt = time.Now()

	query := `
		INSERT INTO part_pricing_snapshots (id, part_id, vendor_name, vendor_url,
			product_url, price_cents, currency, in_stock, recorded_day, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (part_id, vendor_name, recorded_day) DO UPDATE SET
			vendor_url = excluded.vendor_url,
			product_url = excluded.product_url,
			price_cents = excluded.price_cents,
			currency = excluded.currency,
			in_stock = excluded.in_stock
	`
	_, err := r.db.ExecContext(ctx, query,
		snapshot.ID, snapshot.PartID, snapshot.VendorName, snapshot.VendorURL,
		snapshot.ProductURL, snapshot.PriceCents, snapshot.Currency,
		snapshot.InStock, snapshot.RecordedDay, snapshot.CreatedAt,
	)
	return err
}

// ListByPart retrieves pricing snapshots for a part, newest day first.
func (r *PricingRepository) ListByPart(ctx context.Context, partID uuid.UUID, limit int) ([]*PricingSnapshot, error) {
	query := `
		SELECT id, part_id, vendor_name, vendor_url, product_url, price_cents,
			currency, in_stock, recorded_day, created_at
		FROM part_pricing_snapshots
		WHERE part_id = $1
		ORDER BY recorded_day DESC, vendor_name ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, partID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*PricingSnapshot
	for rows.Next() {
		snapshot := &PricingSnapshot{}
		if err := rows.Scan(
			&snapshot.ID, &snapshot.PartID, &snapshot.VendorName, &snapshot.VendorURL,
			&snapshot.ProductURL, &snapshot.PriceCents, &snapshot.Currency,
			&snapshot.InStock, &snapshot.RecordedDay, &snapshot.CreatedAt,
		); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RecommendationRepository handles ranked advisor part recommendations.
type RecommendationRepository struct {
	db DB
}

// NewRecommendationRepository creates a new recommendation repository.
func NewRecommendationRepository(db DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Create inserts a recommendation. A unique violation on either the part slot
// or the rank slot reports ErrConflict.
func (r *RecommendationRepository) Create(ctx context.Context, rec *AdvisorRecommendation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = time.Now()

	query := `
		INSERT INTO advisor_part_recommendations (id, vehicle_slug, upgrade_key, part_id,
			rank, conversation_id, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.VehicleSlug, rec.UpgradeKey, rec.PartID, rec.Rank,
		rec.ConversationID, rec.Source, rec.CreatedAt, rec.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// GetByIdentity retrieves the recommendation for a specific part in an upgrade slot.
func (r *RecommendationRepository) GetByIdentity(ctx context.Context, vehicleSlug, upgradeKey string, partID uuid.UUID) (*AdvisorRecommendation, error) {
	query := `
		SELECT id, vehicle_slug, upgrade_key, part_id, rank, conversation_id, source,
			created_at, updated_at
		FROM advisor_part_recommendations
		WHERE vehicle_slug = $1 AND upgrade_key = $2 AND part_id = $3
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, vehicleSlug, upgradeKey, partID))
}

// GetByRank retrieves the recommendation occupying a rank slot.
func (r *RecommendationRepository) GetByRank(ctx context.Context, vehicleSlug, upgradeKey string, rank int) (*AdvisorRecommendation, error) {
	query := `
		SELECT id, vehicle_slug, upgrade_key, part_id, rank, conversation_id, source,
			created_at, updated_at
		FROM advisor_part_recommendations
		WHERE vehicle_slug = $1 AND upgrade_key = $2 AND rank = $3
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, vehicleSlug, upgradeKey, rank))
}

// DeleteByRank vacates a rank slot. It reports whether a row was removed;
// vacating an already empty slot is not an error.
func (r *RecommendationRepository) DeleteByRank(ctx context.Context, vehicleSlug, upgradeKey string, rank int) (bool, error) {
	query := `
		DELETE FROM advisor_part_recommendations
		WHERE vehicle_slug = $1 AND upgrade_key = $2 AND rank = $3
	`
	result, err := r.db.ExecContext(ctx, query, vehicleSlug, upgradeKey, rank)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// UpdateRank moves an existing recommendation to a new rank slot. A non-empty
// source replaces the stored source.
func (r *RecommendationRepository) UpdateRank(ctx context.Context, id uuid.UUID, rank int, source string) error {
	query := `
		UPDATE advisor_part_recommendations
		SET rank = $1,
			source = CASE WHEN $2 <> '' THEN $2 ELSE source END,
			updated_at = $3
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query, rank, source, time.Now(), id)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByVehicleUpgrade retrieves recommendations for an upgrade slot, best rank first.
func (r *RecommendationRepository) ListByVehicleUpgrade(ctx context.Context, vehicleSlug, upgradeKey string) ([]*AdvisorRecommendation, error) {
	query := `
		SELECT id, vehicle_slug, upgrade_key, part_id, rank, conversation_id, source,
			created_at, updated_at
		FROM advisor_part_recommendations
		WHERE vehicle_slug = $1 AND upgrade_key = $2
		ORDER BY rank ASC
	`
	rows, err := r.db.QueryContext(ctx, query, vehicleSlug, upgradeKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*AdvisorRecommendation
	for rows.Next() {
		rec := &AdvisorRecommendation{}
		if err := rows.Scan(
			&rec.ID, &rec.VehicleSlug, &rec.UpgradeKey, &rec.PartID, &rec.Rank,
			&rec.ConversationID, &rec.Source, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *RecommendationRepository) scanOne(row *sql.Row) (*AdvisorRecommendation, error) {
	rec := &AdvisorRecommendation{}
	err := row.Scan(
		&rec.ID, &rec.VehicleSlug, &rec.UpgradeKey, &rec.PartID, &rec.Rank,
		&rec.ConversationID, &rec.Source, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// AuditRepository handles persisted audit events.
type AuditRepository struct {
	db DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// SaveAuditEvent persists a single audit event.
func (r *AuditRepository) SaveAuditEvent(ctx context.Context, event *AuditEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	query := `
		INSERT INTO audit_events (id, action, part_id, vehicle_slug, match_tier,
			detail, actor, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.Action, event.PartID, event.VehicleSlug, event.MatchTier,
		detailParam(event.Detail), event.Actor, event.OccurredAt,
	)
	return err
}

// BatchSaveAuditEvents persists a batch of audit events in a single statement.
func (r *AuditRepository) BatchSaveAuditEvents(ctx context.Context, events []AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO audit_events (id, action, part_id, vehicle_slug, match_tier,
			detail, actor, occurred_at)
		VALUES `)
	args := make([]interface{}, 0, len(events)*8)
	for i := range events {
		event := &events[i]
		if event.ID == uuid.Nil {
			event.ID = uuid.New()
		}
		if event.OccurredAt.IsZero() {
			event.OccurredAt = time.Now()
		}

		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 8
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		args = append(args,
			event.ID, event.Action, event.PartID, event.VehicleSlug, event.MatchTier,
			detailParam(event.Detail), event.Actor, event.OccurredAt,
		)
	}

	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return err
}

// ListRecent retrieves the most recent audit events, newest first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*AuditEvent, error) {
	query := `
		SELECT id, action, part_id, vehicle_slug, match_tier, detail, actor, occurred_at
		FROM audit_events
		ORDER BY occurred_at DESC, id ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*AuditEvent
	for rows.Next() {
		event := &AuditEvent{}
		var detail sql.NullString
		if err := rows.Scan(
			&event.ID, &event.Action, &event.PartID, &event.VehicleSlug,
			&event.MatchTier, &detail, &event.Actor, &event.OccurredAt,
		); err != nil {
			return nil, err
		}
		if detail.Valid {
			event.Detail = []byte(detail.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// detailParam binds JSON detail as text so both database drivers store it the
// same way. Empty detail becomes NULL.
func detailParam(detail []byte) interface{} {
	if len(detail) == 0 {
		return nil
	}
	return string(detail)
}

// Repositories bundles all repositories together.
type Repositories struct {
	Parts           *PartRepository
	Fitments        *FitmentRepository
	Pricing         *PricingRepository
	Recommendations *RecommendationRepository
	Audit           *AuditRepository
}

// NewRepositories creates all repositories with the given database connection.
func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Parts:           NewPartRepository(db),
		Fitments:        NewFitmentRepository(db),
		Pricing:         NewPricingRepository(db),
		Recommendations: NewRecommendationRepository(db),
		Audit:           NewAuditRepository(db),
	}
}
