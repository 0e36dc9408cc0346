package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

type MigrateDirection string

const (
	MigrateUp   MigrateDirection = "up"
	MigrateDown MigrateDirection = "down"
)

// Migrate applies (or reverts) the schema in source against database.
// A database that is already current is not an error.
func Migrate(database *sql.DB, source fs.FS, direction MigrateDirection, logger *zap.Logger) error {
	src, err := iofs.New(source, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(database, &postgres.Config{
		MultiStatementEnabled: false,
		SchemaName:            "public",
	})
	if err != nil {
		return fmt.Errorf("create postgres driver instance: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	switch direction {
	case MigrateUp:
		err = m.Up()
	case MigrateDown:
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err == nil {
		version, dirty, _ := m.Version()
		logger.Info("migrations applied", zap.String("direction", string(direction)), zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no new migrations found")
		return nil
	}
	var dirtyErr migrate.ErrDirty
	if errors.As(err, &dirtyErr) {
		return fmt.Errorf("migration failed: dirty database version %d", dirtyErr.Version)
	}
	return fmt.Errorf("migration failed: %w", err)
}
