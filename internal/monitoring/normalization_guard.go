package monitoring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/normalize"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/observability"
	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/storage"
)

// NormalizationGuard detects catalog rows whose stored names no longer agree
// with the normalizer. The synonym table evolves; a part written before a rule
// existed keeps its old canonical form and can silently split an identity
// with parts written after. The guard reports drift, it never renames: a
// rename can collide with a row that already owns the new canonical form, so
// merges need a human or a dedicated backfill.
type NormalizationGuard struct {
	logger *observability.Logger
	db     storage.DB
	config GuardConfig
}

// GuardConfig holds normalization guard configuration.
type GuardConfig struct {
	PageSize int // parts fetched per page
	MaxPages int // upper bound on pages per scan
}

// NameDrift is one part whose stored name re-normalizes differently under the
// current rules.
type NameDrift struct {
	PartID        uuid.UUID            `json:"part_id"`
	Manufacturer  string               `json:"manufacturer"`
	Category      storage.PartCategory `json:"category"`
	StoredName    string               `json:"stored_name"`
	CanonicalName string               `json:"canonical_name"`
	// CollidesWith is set when another row already holds the canonical
	// identity, meaning the two rows describe one physical part.
	CollidesWith *uuid.UUID `json:"collides_with,omitempty"`
	DetectedAt   time.Time  `json:"detected_at"`
}

// SplitIdentity is a group of stored rows sharing one comparison key: parts
// the fuzzy tier would have merged had they arrived close enough together.
type SplitIdentity struct {
	Manufacturer  string               `json:"manufacturer"`
	Category      storage.PartCategory `json:"category"`
	ComparisonKey string               `json:"comparison_key"`
	PartIDs       []uuid.UUID          `json:"part_ids"`
	Names         []string             `json:"names"`
}

// NewNormalizationGuard creates a new normalization guard.
func NewNormalizationGuard(logger *observability.Logger, db storage.DB, cfg GuardConfig) *NormalizationGuard {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 40
	}

	return &NormalizationGuard{
		logger: logger,
		db:     db,
		config: cfg,
	}
}

// CheckDrift pages through active parts re-running the normalizer over each
// stored name, and reports every row whose canonical form has moved.
func (g *NormalizationGuard) CheckDrift(ctx context.Context) ([]NameDrift, error) {
	var drift []NameDrift

	for page := 0; page < g.config.MaxPages; page++ {
		batch, err := g.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		for _, row := range batch {
			canonical := normalize.Normalize(row.name)
			if canonical == row.name {
				continue
			}

			entry := NameDrift{
				PartID:        row.id,
				Manufacturer:  row.manufacturer,
				Category:      row.category,
				StoredName:    row.name,
				CanonicalName: canonical,
				DetectedAt:    time.Now(),
			}
			holder, err := g.identityHolder(ctx, row.manufacturer, canonical, row.category)
			if err != nil {
				return nil, err
			}
			if holder != nil && *holder != row.id {
				entry.CollidesWith = holder
			}
			drift = append(drift, entry)
		}

		if len(batch) < g.config.PageSize {
			break
		}
	}

	g.logger.Info().
		Int("drifted", len(drift)).
		Msg("Normalization drift scan completed")
	return drift, nil
}

// FindSplitIdentities groups a manufacturer's rows in one category by
// comparison key and reports every key held by more than one row. These are
// duplicates that slipped past the bounded fuzzy scan, typically because the
// category grew past the candidate page between the two registrations.
func (g *NormalizationGuard) FindSplitIdentities(ctx context.Context, manufacturer string, category storage.PartCategory) ([]SplitIdentity, error) {
	query := `
		SELECT id, name FROM parts
		WHERE manufacturer = $1 AND category = $2 AND active = $3
		ORDER BY created_at ASC
	`
	rows, err := g.db.QueryContext(ctx, query, manufacturer, category, true)
	if err != nil {
		return nil, fmt.Errorf("query parts for split scan: %w", err)
	}
	defer rows.Close()

	type member struct {
		id   uuid.UUID
		name string
	}
	groups := make(map[string][]member)
	var order []string
	for rows.Next() {
		var m member
		if err := rows.Scan(&m.id, &m.name); err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		key := normalize.ComparisonKey(m.name)
		if key == "" {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var splits []SplitIdentity
	for _, key := range order {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		split := SplitIdentity{
			Manufacturer:  manufacturer,
			Category:      category,
			ComparisonKey: key,
		}
		for _, m := range members {
			split.PartIDs = append(split.PartIDs, m.id)
			split.Names = append(split.Names, m.name)
		}
		splits = append(splits, split)
	}

	if len(splits) > 0 {
		g.logger.Warn().
			Str("manufacturer", manufacturer).
			Str("category", string(category)).
			Int("split_identities", len(splits)).
			Msg("Duplicate identities share a comparison key")
	}
	return splits, nil
}

type guardRow struct {
	id           uuid.UUID
	manufacturer string
	name         string
	category     storage.PartCategory
}

func (g *NormalizationGuard) fetchPage(ctx context.Context, page int) ([]guardRow, error) {
	query := `
		SELECT id, manufacturer, name, category FROM parts
		WHERE active = $1
		ORDER BY manufacturer ASC, name ASC, id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := g.db.QueryContext(ctx, query, true, g.config.PageSize, page*g.config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("query parts page %d: %w", page, err)
	}
	defer rows.Close()

	var batch []guardRow
	for rows.Next() {
		var r guardRow
		if err := rows.Scan(&r.id, &r.manufacturer, &r.name, &r.category); err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		batch = append(batch, r)
	}
	return batch, rows.Err()
}

func (g *NormalizationGuard) identityHolder(ctx context.Context, manufacturer, name string, category storage.PartCategory) (*uuid.UUID, error) {
	query := `SELECT id FROM parts WHERE manufacturer = $1 AND name = $2 AND category = $3`

	var id uuid.UUID
	err := g.db.QueryRowContext(ctx, query, manufacturer, name, category).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query identity holder: %w", err)
	}
	return &id, nil
}
