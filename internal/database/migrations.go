package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var migrationsFS embed.FS

type migration struct {
	version int
	name    string
	content string
}

// Migrate applies every pending migration for the connected dialect.
// Applied versions are tracked in schema_migrations.
func (db *DB) Migrate(ctx context.Context) error {
	dir := "migrations/" + string(db.dialect.Name())

	migrations, err := db.loadMigrations(dir)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	db.logger.Infow("running database migrations",
		"dialect", db.dialect.Name(),
		"count", len(migrations),
	)

	for _, m := range migrations {
		if err := db.executeMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
	}

	return nil
}

func (db *DB) loadMigrations(dir string) ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		// "1_initial_schema.sql" -> 1
		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) < 2 {
			db.logger.Warnw("skipping migration file with invalid name", "file", entry.Name())
			continue
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			db.logger.Warnw("skipping migration file with invalid version", "file", entry.Name(), "error", err)
			continue
		}

		content, err := fs.ReadFile(migrationsFS, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, migration{
			version: version,
			name:    entry.Name(),
			content: string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].version < migrations[j].version
	})
	return migrations, nil
}

func (db *DB) executeMigration(ctx context.Context, m migration) error {
	var applied int
	if err := db.GetContext(ctx, &applied,
		db.Rebind(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`), m.version); err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if applied > 0 {
		db.logger.Debugw("migration already applied, skipping", "version", m.version, "name", m.name)
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is safe to call after commit

	db.logger.Infow("applying migration", "version", m.version, "name", m.name)

	if _, err := tx.ExecContext(ctx, m.content); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`), m.version, m.name); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// PendingMigrations lists the migrations Migrate would apply, in order
func (db *DB) PendingMigrations(ctx context.Context) ([]string, error) {
	migrations, err := db.loadMigrations("migrations/" + string(db.dialect.Name()))
	if err != nil {
		return nil, err
	}

	var applied []int
	if err := db.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		// nothing has been applied before the tracking table exists
		applied = nil
	}

	pending := make([]string, 0, len(migrations))
	for _, m := range migrations {
		if !slices.Contains(applied, m.version) {
			pending = append(pending, m.name)
		}
	}
	return pending, nil
}
