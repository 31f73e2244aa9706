package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverDuckDB   = "duckdb"
	DriverMemory   = "memory"
)

// Open connects to the storage backend named by driver. dsn is a Postgres
// connection string or a file path for the embedded databases; it is
// ignored for memory.
func Open(ctx context.Context, driver, dsn string) (Repository, error) {
	switch driver {
	case DriverPostgres:
		pool, err := openPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return NewPostgres(pool), nil
	case DriverSQLite, DriverDuckDB:
		database, err := openFile(driver, dsn)
		if err != nil {
			return nil, err
		}
		return NewSQL(database, driver), nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func openPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres requires storage.dsn")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	slog.Info("database connected", "driver", DriverPostgres, "host", cfg.ConnConfig.Host)
	return pool, nil
}

// openFile opens an embedded database. The file defaults to
// ./data/cdaplus.<driver>.
func openFile(driver, dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = "./data/cdaplus." + driver
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	source := dbPath
	if driver == DriverSQLite {
		source += "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	}
	if driver == DriverDuckDB && dbPath == ":memory:" {
		source = ""
	}
	database, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent requests.
		database.SetMaxOpenConns(1)
	}

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	slog.Info("database connected", "driver", driver, "path", dbPath)
	return database, nil
}
