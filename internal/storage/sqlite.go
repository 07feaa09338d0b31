// Package storage provides the SQLite persistence layer for import sessions and durable records.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/service"
)

const learningCacheSize = 1024

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db        *sql.DB
	learnings *lru.Cache[string, model.InferenceLearning]
	dbPath    string
}

var _ service.Storage = (*SQLiteStorage)(nil)

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections, and :memory: needs exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	cache, err := lru.New[string, model.InferenceLearning](learningCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create learning cache: %w", err)
	}

	return &SQLiteStorage{
		db:        db,
		dbPath:    dbPath,
		learnings: cache,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// NewCheckpointManager creates a new checkpoint manager for this storage instance.
func (s *SQLiteStorage) NewCheckpointManager() (*CheckpointManager, error) {
	return NewCheckpointManager(s.db, s.dbPath)
}

// BeginRecordTx starts a transaction for one item's record writes.
func (s *SQLiteStorage) BeginRecordTx(ctx context.Context) (service.RecordTx, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteRecordTx{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteRecordTx wraps sql.Tx to implement service.RecordTx.
type sqliteRecordTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteRecordTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteRecordTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteRecordTx) CreateContainer(ctx context.Context, containerType model.ContainerType, title, parentID string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateContainer(containerType); err != nil {
		return "", err
	}
	return t.storage.createContainerTx(ctx, t.tx, containerType, title, parentID)
}

func (t *sqliteRecordTx) CreateFact(ctx context.Context, factKind string, payload model.Payload, parentID string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(factKind, "factKind"); err != nil {
		return "", err
	}
	return t.storage.createFactTx(ctx, t.tx, factKind, payload, parentID)
}

func (t *sqliteRecordTx) RecordEvent(ctx context.Context, eventType string, payload model.Payload, parentID string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(eventType, "eventType"); err != nil {
		return "", err
	}
	return t.storage.recordEventTx(ctx, t.tx, eventType, payload, parentID)
}

func (t *sqliteRecordTx) SetFieldValue(ctx context.Context, entityID, field, value string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(entityID, "entityID"); err != nil {
		return err
	}
	if err := validateString(field, "field"); err != nil {
		return err
	}
	return t.storage.setFieldValueTx(ctx, t.tx, entityID, field, value)
}

// isUniqueViolation reports whether err is a SQLite unique or primary key violation.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
