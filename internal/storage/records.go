package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

// CreateContainer creates a durable container and returns its id.
func (s *SQLiteStorage) CreateContainer(ctx context.Context, containerType model.ContainerType, title, parentID string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateContainer(containerType); err != nil {
		return "", err
	}
	return s.createContainerTx(ctx, s.db, containerType, title, parentID)
}

func (s *SQLiteStorage) createContainerTx(ctx context.Context, q queryable, containerType model.ContainerType, title, parentID string) (string, error) {
	id := uuid.NewString()
	_, err := q.ExecContext(ctx, `
		INSERT INTO containers (id, type, title, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, string(containerType), title, nullString(parentID), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	return id, nil
}

// CreateFact creates a durable fact and returns its id.
func (s *SQLiteStorage) CreateFact(ctx context.Context, factKind string, payload model.Payload, parentID string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(factKind, "factKind"); err != nil {
		return "", err
	}
	return s.createFactTx(ctx, s.db, factKind, payload, parentID)
}

func (s *SQLiteStorage) createFactTx(ctx context.Context, q queryable, factKind string, payload model.Payload, parentID string) (string, error) {
	data, err := marshalPayload(payload)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = q.ExecContext(ctx, `
		INSERT INTO facts (id, fact_kind, payload, container_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, factKind, data, nullString(parentID), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to create fact: %w", err)
	}
	return id, nil
}

// RecordEvent records a work event and returns its id.
func (s *SQLiteStorage) RecordEvent(ctx context.Context, eventType string, payload model.Payload, parentID string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(eventType, "eventType"); err != nil {
		return "", err
	}
	return s.recordEventTx(ctx, s.db, eventType, payload, parentID)
}

func (s *SQLiteStorage) recordEventTx(ctx context.Context, q queryable, eventType string, payload model.Payload, parentID string) (string, error) {
	data, err := marshalPayload(payload)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = q.ExecContext(ctx, `
		INSERT INTO events (id, event_type, payload, container_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, eventType, data, nullString(parentID), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to record event: %w", err)
	}
	return id, nil
}

// SetFieldValue writes an attribute on any durable entity, replacing an earlier value.
func (s *SQLiteStorage) SetFieldValue(ctx context.Context, entityID, field, value string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(entityID, "entityID"); err != nil {
		return err
	}
	if err := validateString(field, "field"); err != nil {
		return err
	}
	return s.setFieldValueTx(ctx, s.db, entityID, field, value)
}

func (s *SQLiteStorage) setFieldValueTx(ctx context.Context, q queryable, entityID, field, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO field_values (entity_id, field, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_id, field) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, entityID, field, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set field value: %w", err)
	}
	return nil
}

// GetContainer retrieves a container by id.
func (s *SQLiteStorage) GetContainer(ctx context.Context, id string) (*model.Container, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var c model.Container
	var typ string
	var parentID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, title, parent_id, created_at
		FROM containers
		WHERE id = ?
	`, id).Scan(&c.ID, &typ, &c.Title, &parentID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("container %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get container: %w", err)
	}

	c.Type = model.ContainerType(typ)
	c.ParentID = parentID.String
	return &c, nil
}

// GetFact retrieves a fact by id.
func (s *SQLiteStorage) GetFact(ctx context.Context, id string) (*model.Fact, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var f model.Fact
	var payload string
	var containerID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, fact_kind, payload, container_id, created_at
		FROM facts
		WHERE id = ?
	`, id).Scan(&f.ID, &f.FactKind, &payload, &containerID, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fact %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fact: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &f.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode fact payload: %w", err)
	}
	f.ContainerID = containerID.String
	return &f, nil
}

// GetEvent retrieves an event by id.
func (s *SQLiteStorage) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var e model.Event
	var payload string
	var containerID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, event_type, payload, container_id, created_at
		FROM events
		WHERE id = ?
	`, id).Scan(&e.ID, &e.EventType, &payload, &containerID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode event payload: %w", err)
	}
	e.ContainerID = containerID.String
	return &e, nil
}

// GetFieldValues returns every attribute written on an entity.
func (s *SQLiteStorage) GetFieldValues(ctx context.Context, entityID string) (map[string]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT field, value FROM field_values WHERE entity_id = ? ORDER BY field
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query field values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	values := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("failed to scan field value: %w", err)
		}
		values[field] = value
	}
	return values, rows.Err()
}

// CountRecords tallies durable records.
func (s *SQLiteStorage) CountRecords(ctx context.Context) (model.RecordCounts, error) {
	var counts model.RecordCounts
	if err := validateContext(ctx); err != nil {
		return counts, err
	}

	// Fixed queries per table; table names are never interpolated.
	queries := []struct {
		dest  *int
		query string
	}{
		{&counts.Containers, "SELECT COUNT(*) FROM containers"},
		{&counts.Facts, "SELECT COUNT(*) FROM facts"},
		{&counts.Events, "SELECT COUNT(*) FROM events"},
		{&counts.FieldValues, "SELECT COUNT(*) FROM field_values"},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return counts, fmt.Errorf("failed to count records: %w", err)
		}
	}
	return counts, nil
}

func marshalPayload(payload model.Payload) (string, error) {
	if payload == nil {
		payload = model.Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(data), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
