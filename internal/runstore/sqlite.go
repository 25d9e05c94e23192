// Package runstore persists the local history of `loom test` invocations —
// one row per run plus one row per iteration — to a SQLite database. This is
// the "loom history" ledger described in SPEC_FULL.md §3; it is intentionally
// outside the concurrency core (C1-C11) and never touches scheduling
// decisions, only the CLI's bookkeeping of past results.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	sqlite_migrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roasbeef/loom/internal/log"
)

var logger = log.Logger(log.SubsystemRunstore)

// DefaultDBPath returns the default path for loom's run-history database.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".loom", "runs.db"), nil
}

// Open opens (creating if necessary) the SQLite-backed run-history database
// at dbPath, applying any pending migrations, and returns a ready-to-use
// Store.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create runstore directory: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open runstore: %w", err)
	}

	// loom's CLI is single-process; there's no concurrent-writer workload
	// here, so a single connection avoids SQLITE_BUSY entirely instead of
	// needing a transaction-retry executor.
	db.SetMaxOpenConns(1)

	if err := configurePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure runstore: %w", err)
	}

	if err := migrateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate runstore: %w", err)
	}

	return NewStore(db), nil
}

func configurePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -8192",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// migrationLogger adapts loom's btclog.Logger to the migrate.Logger
// interface expected by golang-migrate.
type migrationLogger struct{}

func (migrationLogger) Printf(format string, v ...any) {
	logger.InfoS(context.Background(), fmt.Sprintf(format, v...))
}

func (migrationLogger) Verbose() bool { return false }

func migrateSchema(db *sql.DB) error {
	driver, err := sqlite_migrate.WithInstance(db, &sqlite_migrate.Config{})
	if err != nil {
		return fmt.Errorf("error creating sqlite migration driver: %w", err)
	}

	return applyMigrations(driver, "migrations", "runstore")
}

func applyMigrations(driver database.Driver, path, dbName string) error {
	source, err := httpfs.New(http.FS(sqlSchemas), path)
	if err != nil {
		return err
	}

	mig, err := migrate.NewWithInstance("migrations", source, dbName, driver)
	if err != nil {
		return err
	}
	mig.Log = migrationLogger{}

	before, _, _ := driver.Version()

	if err := mig.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	after, _, _ := driver.Version()
	logger.InfoS(context.Background(), "runstore schema migrated",
		"from_version", before, "to_version", after)

	return nil
}

// connMaxLifetime bounds how long a pooled connection may be reused for.
// Unused when MaxOpenConns is 1, kept as a documented constant for anyone
// widening the pool later.
const connMaxLifetime = 10 * time.Minute
