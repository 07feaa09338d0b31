// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/sift/internal/model"
)

// RecordStore is the durable write surface the Commit Executor materializes plans into.
// Every call returns the storage error verbatim on failure.
type RecordStore interface {
	CreateContainer(ctx context.Context, containerType model.ContainerType, title, parentDurableID string) (string, error)
	CreateFact(ctx context.Context, factKind string, payload model.Payload, parentDurableID string) (string, error)
	RecordEvent(ctx context.Context, eventType string, payload model.Payload, parentDurableID string) (string, error)
	SetFieldValue(ctx context.Context, entityDurableID, field, value string) error
}

// RecordTx groups one item's writes so they land all-or-nothing.
type RecordTx interface {
	RecordStore
	Commit() error
	Rollback() error
}

// RecordStorage is a RecordStore that can open per-item transactions.
type RecordStorage interface {
	RecordStore
	BeginRecordTx(ctx context.Context) (RecordTx, error)
}

// SessionStore persists import sessions, their versioned plans, and execution results.
type SessionStore interface {
	CreateSession(ctx context.Context, session *model.ImportSession) error
	GetSession(ctx context.Context, sessionID string) (*model.ImportSession, error)
	ListSessions(ctx context.Context) ([]model.ImportSession, error)
	UpdateSessionStatus(ctx context.Context, sessionID string, status model.SessionStatus) error

	// SavePlan stores the plan only if the stored version equals expectedVersion
	// (0 when no plan exists yet) and bumps plan.Version on success.
	SavePlan(ctx context.Context, plan *model.ImportPlan, expectedVersion int) error
	GetPlan(ctx context.Context, sessionID string) (*model.ImportPlan, error)

	SaveExecutionResult(ctx context.Context, result *model.ImportExecutionResult) error
	GetExecutionResult(ctx context.Context, sessionID string) (*model.ImportExecutionResult, error)
}

// LearningStore persists fact kinds chosen by users for title signatures.
type LearningStore interface {
	GetLearning(ctx context.Context, signature string) (*model.InferenceLearning, error)
	GetAllLearnings(ctx context.Context) ([]model.InferenceLearning, error)
	SaveLearning(ctx context.Context, learning *model.InferenceLearning) error
}

// FactVocabulary provides the fact kinds the target system understands.
type FactVocabulary interface {
	KnownFactKinds() []model.FactKind
}

// Storage is the full persistence layer.
type Storage interface {
	RecordStorage
	SessionStore
	LearningStore
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
