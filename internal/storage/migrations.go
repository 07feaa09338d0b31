package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Import sessions, versioned plans and execution results",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS import_sessions (
					id TEXT PRIMARY KEY,
					parser_name TEXT NOT NULL,
					raw_data BLOB,
					status TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_import_sessions_created ON import_sessions(created_at)`,

				`CREATE TABLE IF NOT EXISTS import_plans (
					session_id TEXT PRIMARY KEY,
					version INTEGER NOT NULL,
					plan_json TEXT NOT NULL,
					updated_at DATETIME NOT NULL,
					FOREIGN KEY (session_id) REFERENCES import_sessions(id) ON DELETE CASCADE
				)`,

				`CREATE TABLE IF NOT EXISTS import_results (
					session_id TEXT PRIMARY KEY,
					status TEXT NOT NULL,
					result_json TEXT NOT NULL,
					finished_at DATETIME NOT NULL,
					FOREIGN KEY (session_id) REFERENCES import_sessions(id) ON DELETE CASCADE
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Durable containers, facts, events and field values",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS containers (
					id TEXT PRIMARY KEY,
					type TEXT NOT NULL CHECK (type IN ('project', 'process', 'subprocess')),
					title TEXT NOT NULL,
					parent_id TEXT REFERENCES containers(id),
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_containers_parent ON containers(parent_id)`,

				`CREATE TABLE IF NOT EXISTS facts (
					id TEXT PRIMARY KEY,
					fact_kind TEXT NOT NULL,
					payload TEXT NOT NULL,
					container_id TEXT REFERENCES containers(id),
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_facts_container ON facts(container_id)`,
				`CREATE INDEX idx_facts_kind ON facts(fact_kind)`,

				`CREATE TABLE IF NOT EXISTS events (
					id TEXT PRIMARY KEY,
					event_type TEXT NOT NULL,
					payload TEXT NOT NULL,
					container_id TEXT REFERENCES containers(id),
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_events_container ON events(container_id)`,

				`CREATE TABLE IF NOT EXISTS field_values (
					entity_id TEXT NOT NULL,
					field TEXT NOT NULL,
					value TEXT NOT NULL,
					updated_at DATETIME NOT NULL,
					PRIMARY KEY (entity_id, field)
				)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Inference learnings and checkpoint metadata",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS inference_learnings (
					signature TEXT PRIMARY KEY,
					fact_kind TEXT NOT NULL,
					use_count INTEGER NOT NULL DEFAULT 0,
					last_updated DATETIME NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS checkpoint_metadata (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					description TEXT,
					file_size INTEGER,
					row_counts TEXT,
					schema_version INTEGER,
					is_auto BOOLEAN DEFAULT 0
				)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate brings the schema up to ExpectedSchemaVersion.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion returns the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
