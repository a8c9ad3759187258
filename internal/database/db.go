// Package database provides database setup, models, and the settings Store.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/youarebest/tgbot/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// Column describes one column of a table that must exist after startup.
type Column struct {
	Name       string
	Definition string
}

// chatSettingsColumns is the canonical column list of chat_settings beyond the key.
// Defaults must be constants: SQLite rejects expressions in ALTER TABLE ADD COLUMN.
var chatSettingsColumns = []Column{
	{Name: "interval_seconds", Definition: "INTEGER NOT NULL DEFAULT 3600"},
	{Name: "is_active", Definition: "INTEGER NOT NULL DEFAULT 0"},
	{Name: "chat_enabled", Definition: "INTEGER NOT NULL DEFAULT 1"},
	{Name: "external_thread_id", Definition: "TEXT NULL"},
	{Name: "created_at", Definition: "DATETIME NOT NULL DEFAULT '1970-01-01 00:00:00'"},
	{Name: "updated_at", Definition: "DATETIME NOT NULL DEFAULT '1970-01-01 00:00:00'"},
}

// NewDB opens the SQLite file, applies migrations, reconciles columns, and returns the pool.
// dbPath should be a path to the SQLite database file.
func NewDB(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite doesn't support concurrent writes, so max open conns = 1
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// A table left by an older schema must have its columns before the migrations index them.
	if err := reconcileColumns(ctx, db); err != nil {
		CloseDB(db)
		return nil, err
	}

	dbName := ExtractDBNameFromPath(dbPath)
	if err := ApplyMigrations(db.DB, dbName); err != nil {
		CloseDB(db)
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	if err := reconcileColumns(ctx, db); err != nil {
		CloseDB(db)
		return nil, err
	}

	slog.Info("Database connected and migrations applied successfully", "path", dbPath)
	return db, nil
}

func reconcileColumns(ctx context.Context, db *sqlx.DB) error {
	added, err := EnsureColumns(ctx, db, "chat_settings", chatSettingsColumns)
	if err != nil {
		return fmt.Errorf("failed to reconcile chat_settings columns: %w", err)
	}
	if len(added) > 0 {
		slog.Info("Added missing columns", "table", "chat_settings", "columns", added)
	}
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing database connection", "error", err)
	} else {
		slog.Info("Database connection closed successfully.")
	}
}

// ApplyMigrations runs database migrations using embedded files.
func ApplyMigrations(db *sql.DB, dbName string) error {
	if db == nil {
		return errors.New("database connection is nil, cannot apply migrations")
	}

	slog.Info("Applying database migrations...", "database_name", dbName)

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create embed source driver instance: %w", err)
	}

	dbDriver, err := sqlite.WithInstance(db, &sqlite.Config{DatabaseName: dbName})
	if err != nil {
		return fmt.Errorf("failed to create sqlite database driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No database migrations to apply.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database migrations applied successfully.")
	return nil
}

type tableColumn struct {
	CID          int            `db:"cid"`
	Name         string         `db:"name"`
	Type         string         `db:"type"`
	NotNull      int            `db:"notnull"`
	DefaultValue sql.NullString `db:"dflt_value"`
	PK           int            `db:"pk"`
}

// EnsureColumns adds every column in want that table lacks, in order, and returns the added names.
// Existing columns are never dropped, renamed, or altered. A missing table is left alone.
func EnsureColumns(ctx context.Context, db *sqlx.DB, table string, want []Column) ([]string, error) {
	var existing []tableColumn
	if err := db.SelectContext(ctx, &existing, fmt.Sprintf("PRAGMA table_info(%q)", table)); err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	if len(existing) == 0 {
		return nil, nil
	}

	have := make(map[string]bool, len(existing))
	for _, c := range existing {
		have[strings.ToLower(c.Name)] = true
	}

	var added []string
	for _, c := range want {
		if have[strings.ToLower(c.Name)] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %q ADD COLUMN %q %s", table, c.Name, c.Definition)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return added, fmt.Errorf("failed to add column %s.%s: %w", table, c.Name, err)
		}
		added = append(added, c.Name)
	}
	return added, nil
}

// ExtractDBNameFromPath extracts the database file path from a possibly URL-formatted path.
func ExtractDBNameFromPath(path string) string {
	path = strings.TrimPrefix(path, "file:")

	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}

	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}

	return path
}
