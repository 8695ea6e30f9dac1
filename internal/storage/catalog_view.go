// Package storage provides catalog view queries with cache hints.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CatalogViewRepository provides filtered read access to the part catalog.
type CatalogViewRepository struct {
	db DB
}

// NewCatalogViewRepository creates a new catalog view repository.
func NewCatalogViewRepository(db DB) *CatalogViewRepository {
	return &CatalogViewRepository{db: db}
}

// CatalogQuery represents a filtered query against the catalog.
type CatalogQuery struct {
	Manufacturer string
	Category     PartCategory
	VehicleSlug  string
	QualityTier  QualityTier
	ActiveOnly   bool
	Limit        int
	Offset       int
}

// CatalogResult contains the query result with cache hints.
type CatalogResult struct {
	Parts      []*Part
	TotalCount int
	CacheHint  CacheHint
	ComputedAt time.Time
}

// CacheHint provides caching guidance for the result.
type CacheHint struct {
	// Cacheable indicates if the result can be cached
	Cacheable bool
	// TTL is the recommended cache duration
	TTL time.Duration
	// Key is the cache key for this result
	Key string
}

// Query executes a filtered catalog query with cache hints.
func (r *CatalogViewRepository) Query(ctx context.Context, q CatalogQuery) (*CatalogResult, error) {
	query := `
		SELECT p.id, p.name, p.manufacturer, p.manufacturer_url, p.product_url, p.category,
			p.quality_tier, p.description, p.part_number, p.confidence, p.data_source, p.active,
			p.created_at, p.updated_at
		FROM parts p
	`
	var args []interface{}
	argIdx := 1

	if q.VehicleSlug != "" {
		query += " JOIN part_fitments f ON f.part_id = p.id"
	}

	var conditions []string
	if q.VehicleSlug != "" {
		conditions = append(conditions, fmt.Sprintf("f.vehicle_slug = $%d", argIdx))
		args = append(args, q.VehicleSlug)
		argIdx++
	}
	if q.Manufacturer != "" {
		conditions = append(conditions, fmt.Sprintf("p.manufacturer = $%d", argIdx))
		args = append(args, q.Manufacturer)
		argIdx++
	}
	if q.Category != "" {
		conditions = append(conditions, fmt.Sprintf("p.category = $%d", argIdx))
		args = append(args, q.Category)
		argIdx++
	}
	if q.QualityTier != "" {
		conditions = append(conditions, fmt.Sprintf("p.quality_tier = $%d", argIdx))
		args = append(args, q.QualityTier)
		argIdx++
	}
	if q.ActiveOnly {
		conditions = append(conditions, fmt.Sprintf("p.active = $%d", argIdx))
		args = append(args, true)
		argIdx++
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY p.manufacturer, p.name"

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)
	argIdx++

	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, q.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &CatalogResult{
		Parts:      parts,
		TotalCount: len(parts),
		CacheHint:  r.computeCacheHint(q),
		ComputedAt: time.Now(),
	}, nil
}

// SearchByKeyword retrieves parts whose name, manufacturer or description
// contains the keyword, case-insensitively.
func (r *CatalogViewRepository) SearchByKeyword(ctx context.Context, keyword string, limit int) ([]*Part, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + strings.ToLower(keyword) + "%"

	query := `
		SELECT id, name, manufacturer, manufacturer_url, product_url, category,
			quality_tier, description, part_number, confidence, data_source, active,
			created_at, updated_at
		FROM parts
		WHERE lower(name) LIKE $1 OR lower(manufacturer) LIKE $2 OR lower(description) LIKE $3
		ORDER BY manufacturer, name
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

// GetManufacturers retrieves the distinct manufacturers present in the catalog.
func (r *CatalogViewRepository) GetManufacturers(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT manufacturer
		FROM parts
		ORDER BY manufacturer
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var manufacturers []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		manufacturers = append(manufacturers, m)
	}
	return manufacturers, rows.Err()
}

// CacheHintFor exposes the hint for a query shape without executing it, so a
// caller can probe the cache before hitting the database.
func (r *CatalogViewRepository) CacheHintFor(q CatalogQuery) CacheHint {
	return r.computeCacheHint(q)
}

// computeCacheHint determines caching recommendations for a query.
func (r *CatalogViewRepository) computeCacheHint(q CatalogQuery) CacheHint {
	key := "catalog"
	if q.VehicleSlug != "" {
		key += ":v:" + q.VehicleSlug
	}
	if q.Manufacturer != "" {
		key += ":m:" + strings.ToLower(q.Manufacturer)
	}
	if q.Category != "" {
		key += ":c:" + string(q.Category)
	}

	// Vehicle-scoped listings are the hot path and stay cacheable longer.
	ttl := 2 * time.Minute
	if q.VehicleSlug != "" && q.Manufacturer == "" && q.QualityTier == "" {
		ttl = 5 * time.Minute
	}

	return CacheHint{
		Cacheable: q.Offset == 0,
		TTL:       ttl,
		Key:       key,
	}
}
