// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrVersionConflict   = errors.New("plan version conflict")
	ErrInvalidTransition = errors.New("invalid session status transition")

	// Pipeline errors.
	ErrValidation        = errors.New("plan validation failed")
	ErrInvalidResolution = errors.New("invalid resolution")
	ErrUnknownFactKind   = errors.New("unknown fact kind")
	ErrCommitBlocked     = errors.New("commit blocked")
	ErrItemCommit        = errors.New("item commit failed")
	ErrContainerCommit   = errors.New("container commit failed")
	ErrGraphCycle        = errors.New("container graph has a cycle")
	ErrNotExecutable     = errors.New("session is not executable")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// ValidationError lists the problems that made a plan invalid.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Issues, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// InvalidResolutionError rejects a resolution that targets a missing or already clear item.
type InvalidResolutionError struct {
	ItemTempID string
	Reason     string
}

func (e *InvalidResolutionError) Error() string {
	return fmt.Sprintf("%s for item %s: %s", ErrInvalidResolution, e.ItemTempID, e.Reason)
}

func (e *InvalidResolutionError) Unwrap() error {
	return ErrInvalidResolution
}

// UnknownFactKindError rejects a resolution naming a fact kind outside the allowed set.
type UnknownFactKindError struct {
	ItemTempID string
	FactKind   string
	Allowed    []string
}

func (e *UnknownFactKindError) Error() string {
	if e.FactKind == "" {
		return fmt.Sprintf("%s for item %s: a fact kind is required (allowed: %s)",
			ErrUnknownFactKind, e.ItemTempID, strings.Join(e.Allowed, ", "))
	}
	return fmt.Sprintf("%s %q for item %s (allowed: %s)",
		ErrUnknownFactKind, e.FactKind, e.ItemTempID, strings.Join(e.Allowed, ", "))
}

func (e *UnknownFactKindError) Unwrap() error {
	return ErrUnknownFactKind
}

// CommitBlockedError is returned when execution is attempted on a plan the gate rejects.
type CommitBlockedError struct {
	PendingFacts int
	Unclassified int
}

func (e *CommitBlockedError) Error() string {
	return fmt.Sprintf("%s: %d pending fact candidates, %d unresolved items",
		ErrCommitBlocked, e.PendingFacts, e.Unclassified)
}

func (e *CommitBlockedError) Unwrap() error {
	return ErrCommitBlocked
}

// ItemCommitError wraps the storage failure of one item's writes.
type ItemCommitError struct {
	Err        error
	ItemTempID string
}

func (e *ItemCommitError) Error() string {
	return fmt.Sprintf("%s: item %s: %v", ErrItemCommit, e.ItemTempID, e.Err)
}

// Unwrap exposes both the sentinel and the storage error.
func (e *ItemCommitError) Unwrap() []error {
	return []error{ErrItemCommit, e.Err}
}

// ContainerCommitError wraps the failure of a container write, or of its ancestor.
type ContainerCommitError struct {
	Err             error
	ContainerTempID string
	// Dependency is set when the container was never attempted because an ancestor failed.
	Dependency string
}

func (e *ContainerCommitError) Error() string {
	if e.Dependency != "" {
		return fmt.Sprintf("%s: container %s: parent %s failed", ErrContainerCommit, e.ContainerTempID, e.Dependency)
	}
	return fmt.Sprintf("%s: container %s: %v", ErrContainerCommit, e.ContainerTempID, e.Err)
}

// Unwrap exposes both the sentinel and the storage error.
func (e *ContainerCommitError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrContainerCommit}
	}
	return []error{ErrContainerCommit, e.Err}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
