package storage

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrator checks and applies embedded schema migrations.
type Migrator struct {
	db     DB
	fsys   fs.FS
	driver string // "sqlite" or "postgres"
}

// NewMigrator creates a migrator over the embedded migration files.
func NewMigrator(db DB, driver string) *Migrator {
	return &Migrator{
		db:     db,
		fsys:   migrationFiles,
		driver: driver,
	}
}

// MigrationStatus represents the status of migrations.
type MigrationStatus struct {
	UpToDate bool
	Pending  []string
	Applied  int
	Total    int
}

// CheckMigrations checks which migrations still need to be applied.
func (m *Migrator) CheckMigrations(ctx context.Context) (*MigrationStatus, error) {
	status := &MigrationStatus{
		Pending: []string{},
	}

	if err := m.ensureSchemaMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	migrations, err := m.listMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("list migration files: %w", err)
	}

	status.Total = len(migrations)
	if len(migrations) == 0 {
		status.UpToDate = true
		return status, nil
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read applied versions: %w", err)
	}
	status.Applied = len(applied)

	for _, migration := range migrations {
		if !applied[migrationVersion(migration)] {
			status.Pending = append(status.Pending, migration)
		}
	}
	sort.Strings(status.Pending)

	status.UpToDate = len(status.Pending) == 0
	return status, nil
}

// RunMigrations applies all pending migrations in order.
func (m *Migrator) RunMigrations(ctx context.Context, status *MigrationStatus) error {
	if len(status.Pending) == 0 {
		return nil
	}

	sort.Strings(status.Pending)

	for _, migration := range status.Pending {
		if err := m.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("run migration %s: %w", migration, err)
		}
	}

	return nil
}

// Migrate brings the schema up to date in one call.
func Migrate(ctx context.Context, db DB, driver string) error {
	m := NewMigrator(db, driver)
	status, err := m.CheckMigrations(ctx)
	if err != nil {
		return err
	}
	return m.RunMigrations(ctx, status)
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist.
func (m *Migrator) ensureSchemaMigrationsTable(ctx context.Context) error {
	var query string
	switch m.driver {
	case "sqlite", "":
		query = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				version TEXT UNIQUE NOT NULL,
				applied_at TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`
	default:
		query = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				id SERIAL PRIMARY KEY,
				version TEXT UNIQUE NOT NULL,
				applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`
	}
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// listMigrationFiles lists embedded migration files, filtered by database driver.
// A version with a _sqlite.sql variant uses that variant on SQLite and the
// plain .sql file on PostgreSQL.
func (m *Migrator) listMigrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(m.fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	sqliteMigrations := make(map[string]string)
	regularMigrations := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, "_sqlite.sql") {
			baseName := strings.TrimSuffix(name, "_sqlite.sql")
			sqliteMigrations[baseName] = name
		} else {
			baseName := strings.TrimSuffix(name, ".sql")
			regularMigrations[baseName] = name
		}
	}

	allBaseNames := make(map[string]bool)
	for baseName := range sqliteMigrations {
		allBaseNames[baseName] = true
	}
	for baseName := range regularMigrations {
		allBaseNames[baseName] = true
	}

	var migrations []string
	for baseName := range allBaseNames {
		if m.driver == "sqlite" || m.driver == "" {
			if sqliteFile, exists := sqliteMigrations[baseName]; exists {
				migrations = append(migrations, sqliteFile)
			} else if regularFile, exists := regularMigrations[baseName]; exists {
				migrations = append(migrations, regularFile)
			}
		} else {
			if regularFile, exists := regularMigrations[baseName]; exists {
				migrations = append(migrations, regularFile)
			}
		}
	}

	sort.Strings(migrations)
	return migrations, nil
}

// appliedVersions reads the set of already applied migration versions.
func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return applied, nil
}

// runMigration executes a single migration file and records its version.
func (m *Migrator) runMigration(ctx context.Context, name string) error {
	data, err := fs.ReadFile(m.fsys, "migrations/"+name)
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, string(data)); err != nil {
		return err
	}

	_, err = m.db.ExecContext(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)", migrationVersion(name))
	return err
}

// migrationVersion maps a migration filename to its driver-independent version.
func migrationVersion(name string) string {
	name = strings.TrimSuffix(name, ".sql")
	return strings.TrimSuffix(name, "_sqlite")
}
