// Package migrate applies the embedded schema migrations.
package migrate

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migrate brings the schema of dbname up to the latest version and returns
// the version it ended on.
func Migrate(db *sqlx.DB, dbname string) (uint, error) {
	m, err := newInstance(db, dbname)
	if err != nil {
		return 0, err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migration up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("version: %w", err)
	}

	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}

	return version, nil
}

// Steps moves the schema n migrations forward, or backward when n is negative.
func Steps(db *sqlx.DB, dbname string, n int) error {
	m, err := newInstance(db, dbname)
	if err != nil {
		return err
	}

	if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration steps %d: %w", n, err)
	}

	return nil
}

func newInstance(db *sqlx.DB, dbname string) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("creating driver: %w", err)
	}

	source, err := iofs.New(migrationFiles, "sql") // "sql" is the prefix from the path "sql/000001_create_users.up.sql"
	if err != nil {
		return nil, fmt.Errorf("creating source from fs: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbname, driver)
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}

	return m, nil
}
