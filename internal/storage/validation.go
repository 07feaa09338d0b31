package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/sift/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidSession   = errors.New("invalid import session")
	ErrInvalidPlan      = errors.New("invalid import plan")
	ErrInvalidResult    = errors.New("invalid execution result")
	ErrInvalidLearning  = errors.New("invalid inference learning")
	ErrInvalidContainer = errors.New("invalid container")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSession validates a new import session.
func validateSession(session *model.ImportSession) error {
	if session == nil {
		return fmt.Errorf("%w: session", ErrNilParameter)
	}
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidSession)
	}
	if strings.TrimSpace(session.ParserName) == "" {
		return fmt.Errorf("%w: missing parser name", ErrInvalidSession)
	}
	if !session.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSession, session.Status)
	}
	return nil
}

// validatePlan validates a plan before it is stored.
func validatePlan(plan *model.ImportPlan) error {
	if plan == nil {
		return fmt.Errorf("%w: plan", ErrNilParameter)
	}
	if strings.TrimSpace(plan.SessionID) == "" {
		return fmt.Errorf("%w: missing session ID", ErrInvalidPlan)
	}
	for id, c := range plan.Classifications {
		if c == nil {
			return fmt.Errorf("%w: nil classification for item %s", ErrInvalidPlan, id)
		}
		if c.ItemTempID != id {
			return fmt.Errorf("%w: classification keyed %s belongs to item %s", ErrInvalidPlan, id, c.ItemTempID)
		}
	}
	return nil
}

// validateResult validates an execution result.
func validateResult(result *model.ImportExecutionResult) error {
	if result == nil {
		return fmt.Errorf("%w: result", ErrNilParameter)
	}
	if strings.TrimSpace(result.SessionID) == "" {
		return fmt.Errorf("%w: missing session ID", ErrInvalidResult)
	}
	if !result.Status.IsTerminal() {
		return fmt.Errorf("%w: status %q is not terminal", ErrInvalidResult, result.Status)
	}
	return nil
}

// validateLearning validates an inference learning.
func validateLearning(learning *model.InferenceLearning) error {
	if learning == nil {
		return fmt.Errorf("%w: learning", ErrNilParameter)
	}
	if strings.TrimSpace(learning.Signature) == "" {
		return fmt.Errorf("%w: missing signature", ErrInvalidLearning)
	}
	if strings.TrimSpace(learning.FactKind) == "" {
		return fmt.Errorf("%w: missing fact kind", ErrInvalidLearning)
	}
	return nil
}

// validateContainer validates a container type before it is created. Untitled containers are allowed.
func validateContainer(containerType model.ContainerType) error {
	if !containerType.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidContainer, containerType)
	}
	return nil
}
