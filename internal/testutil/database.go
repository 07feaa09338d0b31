// Package testutil provides test helpers for tests that need a real database.
package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/service"
	"github.com/Veraticus/sift/internal/storage"
)

// TestDB is a migrated in-memory database with seeding helpers.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	Sessions       []model.ImportSession
	Learnings      []model.InferenceLearning
	SkipMigrations bool
}

// SetupTestDB creates a migrated in-memory database that is closed when the test ends.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
//
// Example:
//
//	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
//		Learnings: []model.InferenceLearning{{Signature: "acme invoice", FactKind: "Invoice"}},
//	})
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	for i := range opts.Sessions {
		if err := store.CreateSession(ctx, &opts.Sessions[i]); err != nil {
			t.Fatalf("failed to seed session %q: %v", opts.Sessions[i].ID, err)
		}
	}
	for i := range opts.Learnings {
		if err := store.SaveLearning(ctx, &opts.Learnings[i]); err != nil {
			t.Fatalf("failed to seed learning %q: %v", opts.Learnings[i].Signature, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustCreateSession stores a pending session for the given parser and raw data.
func (db *TestDB) MustCreateSession(parserName, rawData string) *model.ImportSession {
	db.t.Helper()

	session := &model.ImportSession{
		ID:         uuid.NewString(),
		ParserName: parserName,
		RawData:    rawData,
		Status:     model.SessionPending,
	}
	if err := db.Storage.CreateSession(context.Background(), session); err != nil {
		db.t.Fatalf("failed to create session: %v", err)
	}
	return session
}

// MustCountRecords returns the durable record counts.
func (db *TestDB) MustCountRecords() model.RecordCounts {
	db.t.Helper()

	counts, err := db.Storage.CountRecords(context.Background())
	if err != nil {
		db.t.Fatalf("failed to count records: %v", err)
	}
	return counts
}
