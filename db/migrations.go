package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var postgresMigrations embed.FS

// Migrate runs all table creation statements of the embedded backends
// (SQLite, DuckDB). Safe to call multiple times due to IF NOT EXISTS
// clauses.
func Migrate(db *sql.DB) error {
	slog.Info("running database migrations")

	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w\nstatement: %s", err, stmt)
		}
	}

	slog.Info("database migrations complete")
	return nil
}

// The statements stay within the SQL dialect shared by SQLite and DuckDB:
// no foreign key actions, deletes cascade in code.
var migrations = []string{
	// Contracts: tenant scopes
	`CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT,
		client TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	// Dynamic fields: one row per field, scoped to a contract id or 'global'
	`CREATE TABLE IF NOT EXISTS dynamic_fields (
		scope TEXT NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		label TEXT NOT NULL,
		type TEXT NOT NULL CHECK(type IN ('text', 'number', 'currency', 'date', 'dropdown', 'multidropdown')),
		required BOOLEAN NOT NULL DEFAULT FALSE,
		placeholder TEXT,
		description TEXT,
		options TEXT,
		min_value DOUBLE,
		max_value DOUBLE,
		step_value DOUBLE,
		min_length INTEGER,
		max_length INTEGER,
		position INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (scope, id)
	)`,

	// Activities: work entries with their custom field values as JSON
	`CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		activity_date TEXT,
		status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'approved', 'rejected')),
		custom_fields TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	// Indexes for common queries
	`CREATE INDEX IF NOT EXISTS idx_dynamic_fields_scope ON dynamic_fields(scope)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_contract ON activities(contract_id)`,
}

// migratePostgres applies the versioned goose migrations embedded in the
// binary.
func migratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	fsys, err := fs.Sub(postgresMigrations, "migrations")
	if err != nil {
		return err
	}
	// The *sql.DB shares the pool's connections; the pool owns their lifetime.
	sqlDB := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	for _, r := range results {
		slog.Info("migration applied", "version", r.Source.Version, "file", r.Source.Path, "duration", r.Duration)
	}
	slog.Info("database migrations complete", "applied", len(results))
	return nil
}
