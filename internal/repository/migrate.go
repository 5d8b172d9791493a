package repository

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq" // драйвер database/sql для golang-migrate
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "schema_migrations"

// Migrator применяет встроенные миграции схемы.
type Migrator struct {
	dsn    string
	logger *zap.Logger
}

func NewMigrator(dsn string, logger *zap.Logger) *Migrator {
	return &Migrator{dsn: dsn, logger: logger.Named("Migrator")}
}

// Up применяет все доступные миграции
func (m *Migrator) Up() error {
	migrator, closeFn, err := m.createMigrator()
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer closeFn()

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, dirty, vErr := migrator.Version()
		if vErr == nil {
			m.logger.Error("Migration failed", zap.Uint("version", version), zap.Bool("dirty", dirty), zap.Error(err))
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	m.logger.Info("Database migrations applied", zap.Uint("version", version))
	return nil
}

// Down откатывает все миграции
func (m *Migrator) Down() error {
	migrator, closeFn, err := m.createMigrator()
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer closeFn()

	if err := migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	m.logger.Info("Database migrations rolled back")
	return nil
}

func (m *Migrator) createMigrator() (*migrate.Migrate, func(), error) {
	db, err := sql.Open("postgres", m.dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	migrator.LockTimeout = 30 * time.Second

	closeFn := func() {
		srcErr, dbErr := migrator.Close()
		if srcErr != nil || dbErr != nil {
			m.logger.Warn("Error closing migrator", zap.NamedError("sourceErr", srcErr), zap.NamedError("dbErr", dbErr))
		}
	}
	return migrator, closeFn, nil
}
