package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

// GetLearning retrieves the fact kind learned for a title signature.
func (s *SQLiteStorage) GetLearning(ctx context.Context, signature string) (*model.InferenceLearning, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(signature, "signature"); err != nil {
		return nil, err
	}

	if cached, ok := s.learnings.Get(signature); ok {
		return &cached, nil
	}

	var learning model.InferenceLearning
	err := s.db.QueryRowContext(ctx, `
		SELECT signature, fact_kind, use_count, last_updated
		FROM inference_learnings
		WHERE signature = ?
	`, signature).Scan(&learning.Signature, &learning.FactKind, &learning.UseCount, &learning.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("learning %q: %w", signature, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learning: %w", err)
	}

	s.learnings.Add(signature, learning)
	return &learning, nil
}

// GetAllLearnings returns every learning, most used first.
func (s *SQLiteStorage) GetAllLearnings(ctx context.Context) ([]model.InferenceLearning, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT signature, fact_kind, use_count, last_updated
		FROM inference_learnings
		ORDER BY use_count DESC, signature
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query learnings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var learnings []model.InferenceLearning
	for rows.Next() {
		var learning model.InferenceLearning
		if err := rows.Scan(&learning.Signature, &learning.FactKind, &learning.UseCount, &learning.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan learning: %w", err)
		}
		learnings = append(learnings, learning)
	}
	return learnings, rows.Err()
}

// SaveLearning records a fact kind for a signature. Saving the same signature again
// overwrites the kind and increments its use count.
func (s *SQLiteStorage) SaveLearning(ctx context.Context, learning *model.InferenceLearning) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateLearning(learning); err != nil {
		return err
	}

	if learning.LastUpdated.IsZero() {
		learning.LastUpdated = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inference_learnings (signature, fact_kind, use_count, last_updated)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(signature) DO UPDATE SET
			fact_kind = excluded.fact_kind,
			use_count = inference_learnings.use_count + 1,
			last_updated = excluded.last_updated
	`, learning.Signature, learning.FactKind, learning.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to save learning: %w", err)
	}

	s.learnings.Remove(learning.Signature)
	return nil
}
