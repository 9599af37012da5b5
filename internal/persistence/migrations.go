package persistence

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies the embedded SQL migrations against the Postgres DSN.
func RunMigrations(dsn string, logger *zap.Logger) error {
	if dsn == "" {
		logger.Warn("no postgres DSN available; skipping migrations")
		return nil
	}

	databaseURL, err := migrateURL(dsn)
	if err != nil {
		return err
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	instance, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer instance.Close()

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := instance.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	logger.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// migrateURL rewrites a postgres URL into the scheme registered by the pgx/v5 driver.
func migrateURL(dsn string) (string, error) {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix), nil
		}
	}
	if strings.HasPrefix(dsn, "pgx5://") {
		return dsn, nil
	}
	return "", errors.New("migrations require a postgres:// URL DSN")
}
