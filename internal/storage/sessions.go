package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

// CreateSession stores a new import session.
func (s *SQLiteStorage) CreateSession(ctx context.Context, session *model.ImportSession) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSession(session); err != nil {
		return err
	}

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_sessions (id, parser_name, raw_data, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, session.ID, session.ParserName, []byte(session.RawData), string(session.Status), session.CreatedAt, session.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("session %s: %w", session.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id.
func (s *SQLiteStorage) GetSession(ctx context.Context, sessionID string) (*model.ImportSession, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return nil, err
	}
	return s.getSessionTx(ctx, s.db, sessionID)
}

func (s *SQLiteStorage) getSessionTx(ctx context.Context, q queryable, sessionID string) (*model.ImportSession, error) {
	var session model.ImportSession
	var status string
	var raw []byte

	err := q.QueryRowContext(ctx, `
		SELECT id, parser_name, raw_data, status, created_at, updated_at
		FROM import_sessions
		WHERE id = ?
	`, sessionID).Scan(
		&session.ID,
		&session.ParserName,
		&raw,
		&status,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.RawData = string(raw)
	session.Status = model.SessionStatus(status)
	return &session, nil
}

// ListSessions returns every session, newest first. Raw data is not loaded.
func (s *SQLiteStorage) ListSessions(ctx context.Context) ([]model.ImportSession, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parser_name, status, created_at, updated_at
		FROM import_sessions
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []model.ImportSession
	for rows.Next() {
		var session model.ImportSession
		var status string
		if err := rows.Scan(&session.ID, &session.ParserName, &status, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session.Status = model.SessionStatus(status)
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// UpdateSessionStatus moves a session forward in its lifecycle.
func (s *SQLiteStorage) UpdateSessionStatus(ctx context.Context, sessionID string, status model.SessionStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSession, status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	session, err := s.getSessionTx(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	if !session.Status.CanTransition(status) {
		return fmt.Errorf("session %s: %s -> %s: %w", sessionID, session.Status, status, common.ErrInvalidTransition)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE import_sessions SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), time.Now().UTC(), sessionID); err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}

	return tx.Commit()
}

// SavePlan stores a plan if the stored version still equals expectedVersion, then bumps
// plan.Version. Use expectedVersion 0 for a session without a plan.
func (s *SQLiteStorage) SavePlan(ctx context.Context, plan *model.ImportPlan, expectedVersion int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePlan(plan); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int
	err = tx.QueryRowContext(ctx, `SELECT version FROM import_plans WHERE session_id = ?`, plan.SessionID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read plan version: %w", err)
	}
	if current != expectedVersion {
		return fmt.Errorf("session %s: expected plan version %d, found %d: %w",
			plan.SessionID, expectedVersion, current, common.ErrVersionConflict)
	}

	next := *plan
	next.Version = expectedVersion + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO import_plans (session_id, version, plan_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			version = excluded.version,
			plan_json = excluded.plan_json,
			updated_at = excluded.updated_at
	`, plan.SessionID, next.Version, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan: %w", err)
	}

	plan.Version = next.Version
	return nil
}

// GetPlan retrieves the latest plan of a session.
func (s *SQLiteStorage) GetPlan(ctx context.Context, sessionID string) (*model.ImportPlan, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return nil, err
	}

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT plan_json FROM import_plans WHERE session_id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan for session %s: %w", sessionID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	var plan model.ImportPlan
	if err := json.Unmarshal([]byte(data), &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &plan, nil
}

// SaveExecutionResult stores the result of executing a session's plan.
func (s *SQLiteStorage) SaveExecutionResult(ctx context.Context, result *model.ImportExecutionResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateResult(result); err != nil {
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode execution result: %w", err)
	}

	finished := result.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO import_results (session_id, status, result_json, finished_at)
		VALUES (?, ?, ?, ?)
	`, result.SessionID, string(result.Status), string(data), finished)
	if err != nil {
		return fmt.Errorf("failed to save execution result: %w", err)
	}
	return nil
}

// GetExecutionResult retrieves the execution result of a session.
func (s *SQLiteStorage) GetExecutionResult(ctx context.Context, sessionID string) (*model.ImportExecutionResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return nil, err
	}

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT result_json FROM import_results WHERE session_id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("execution result for session %s: %w", sessionID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get execution result: %w", err)
	}

	var result model.ImportExecutionResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to decode execution result: %w", err)
	}
	return &result, nil
}
