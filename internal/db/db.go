// internal/db/db.go
package db

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/codr1/dashprefs/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sql.DB
	Queries *Queries
}

// New opens a SQLite database for the given data source name, applies the
// embedded migrations, and returns a DB with queries bound to the connection.
func New(dataSourceName string) (*DB, error) {
	database, err := Open(dataSourceName)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := database.MigrateUp(); err != nil {
		database.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}
	return database, nil
}

// Open opens the database without touching its schema.
func Open(dataSourceName string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", ensureBusyTimeoutDSN(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	return &DB{
		DB:      sqlDB,
		Queries: NewQueries(sqlDB),
	}, nil
}

// NewFromConfig creates the database directory if needed and opens the
// configured database with migrations applied.
func NewFromConfig(cfg *config.Config) (*DB, error) {
	database, err := OpenFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateUp(); err != nil {
		database.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}
	return database, nil
}

// OpenFromConfig is NewFromConfig without migrations. Only the "sqlite"
// driver is supported.
func OpenFromConfig(cfg *config.Config) (*DB, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Filename), 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
		return Open(cfg.Database.Filename)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

// ensureBusyTimeoutDSN adds `_busy_timeout` so the CLI and the server can share
// the file without immediate SQLITE_BUSY failures.
func ensureBusyTimeoutDSN(dataSourceName string) string {
	if strings.Contains(dataSourceName, "_busy_timeout=") {
		return dataSourceName
	}
	if strings.Contains(dataSourceName, "?") {
		return dataSourceName + "&_busy_timeout=5000"
	}
	return dataSourceName + "?_busy_timeout=5000"
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("could not create migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("could not create source: %w", err)
	}

	m, err := migrate.NewWithInstance(
		"iofs", source,
		"sqlite3", driver,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}
	return m, nil
}

// MigrateUp applies the embedded migrations. A "no change" result is not an error.
func (db *DB) MigrateUp() error {
	m, err := newMigrate(db.DB)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// MigrateDown rolls back every embedded migration.
func (db *DB) MigrateDown() error {
	m, err := newMigrate(db.DB)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not roll back migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied schema version and whether it is dirty.
func (db *DB) MigrationVersion() (uint, bool, error) {
	m, err := newMigrate(db.DB)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return 0, false, fmt.Errorf("could not read migration version: %w", err)
	}
	return version, dirty, nil
}
