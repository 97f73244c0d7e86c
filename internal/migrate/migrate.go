// Package migrate applies the Postgres schema for the billing ledger and
// the deployment record store.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// DefaultMigrationsDir is where the schema files live in a source
// checkout and in the release tarball.
const DefaultMigrationsDir = "db/migrations"

const commandTimeout = time.Minute

// Runner wraps goose with the connection and directory handling the
// migrate command needs.
type Runner struct {
	dsn           string
	migrationsDir string
}

// New validates the inputs and returns a runner. It does not touch the
// database; every command opens and closes its own connection.
func New(dsn, migrationsDir string) (Runner, error) {
	if dsn == "" {
		return Runner{}, errors.New("no postgres DSN configured")
	}
	if migrationsDir == "" {
		migrationsDir = DefaultMigrationsDir
	}
	if _, err := os.Stat(migrationsDir); err != nil {
		return Runner{}, fmt.Errorf("cannot locate migrations directory: %w", err)
	}
	return Runner{dsn: dsn, migrationsDir: migrationsDir}, nil
}

// Up applies all pending migrations.
func (r Runner) Up(ctx context.Context) error {
	return r.withDB(func(db *sql.DB) error {
		runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()

		logging.Info("Migrate", "Applying migrations from %s", r.migrationsDir)
		if err := goose.UpContext(runCtx, db, r.migrationsDir); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		logging.Info("Migrate", "Migrations applied")
		return nil
	})
}

// Status prints applied and pending migrations.
func (r Runner) Status(ctx context.Context) error {
	return r.withDB(func(db *sql.DB) error {
		if err := goose.Status(db, r.migrationsDir); err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		return nil
	})
}

// Down rolls back to targetVersion, or one step when targetVersion is
// zero.
func (r Runner) Down(ctx context.Context, targetVersion int64) error {
	return r.withDB(func(db *sql.DB) error {
		runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()

		if targetVersion > 0 {
			logging.Info("Migrate", "Rolling back to version %d", targetVersion)
			if err := goose.DownToContext(runCtx, db, r.migrationsDir, targetVersion); err != nil {
				return fmt.Errorf("failed to roll back to version %d: %w", targetVersion, err)
			}
		} else {
			logging.Info("Migrate", "Rolling back latest migration")
			if err := goose.DownContext(runCtx, db, r.migrationsDir); err != nil {
				return fmt.Errorf("failed to roll back latest migration: %w", err)
			}
		}
		return nil
	})
}

func (r Runner) withDB(fn func(*sql.DB) error) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to configure goose: %w", err)
	}

	db, err := sql.Open("pgx", r.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return fn(db)
}
