// Package db holds the versioned schema migrations for every supported driver.
package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Up applies all pending migrations for driver against dsn.
// It opens and closes its own connection; running it twice is a no-op.
func Up(driver, dsn string, logger *logrus.Logger) error {
	sqlDriver, dir, err := resolve(driver)
	if err != nil {
		return err
	}
	sqlDB, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", driver, err)
	}

	var dbDriver database.Driver
	switch driver {
	case DriverPostgres:
		dbDriver, err = pgmigrate.WithInstance(sqlDB, &pgmigrate.Config{})
	case DriverSQLite:
		dbDriver, err = sqlitemigrate.WithInstance(sqlDB, &sqlitemigrate.Config{})
	}
	if err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		_ = dbDriver.Close()
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driver, dbDriver)
	if err != nil {
		_ = dbDriver.Close()
		return fmt.Errorf("migrate init: %w", err)
	}
	// closes sqlDB through the database driver
	defer func() { _, _ = m.Close() }()

	if logger != nil {
		logger.WithField("driver", driver).Info("running migrations...")
	}
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		if logger != nil {
			logger.Info("no migrations to run")
		}
		return nil
	}
	return err
}

func resolve(driver string) (sqlDriver, dir string, err error) {
	switch driver {
	case DriverPostgres:
		return "pgx", "migrations/postgres", nil
	case DriverSQLite:
		return "sqlite", "migrations/sqlite", nil
	default:
		return "", "", fmt.Errorf("unsupported db driver %q", driver)
	}
}
