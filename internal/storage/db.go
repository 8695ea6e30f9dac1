package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/driveline-ai/driveline/libs/fitment-engine/internal/config"
)

// Open opens a database connection for the configured driver and verifies it
// with a ping. A ping failure reports ErrStoreUnavailable.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite", "":
		db, err = sql.Open("sqlite3", sqliteDSN(cfg.SQLite))
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		maxConns := cfg.SQLite.MaxOpenConns
		if maxConns <= 0 {
			maxConns = 1
		}
		db.SetMaxOpenConns(maxConns)

	case "postgres":
		db, err = sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
		if cfg.Postgres.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		}
		if cfg.Postgres.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		}
		if cfg.Postgres.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		}

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return db, nil
}

// sqliteDSN builds the SQLite DSN with journaling and busy-timeout options.
func sqliteDSN(cfg config.SQLiteConfig) string {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	journal := cfg.JournalMode
	if journal == "" {
		journal = "WAL"
	}
	params := fmt.Sprintf("_journal_mode=%s&_busy_timeout=5000&_foreign_keys=on", journal)
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

// isUniqueViolation reports whether err is a unique constraint violation from
// either supported driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
