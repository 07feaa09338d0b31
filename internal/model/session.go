// Package model defines the core domain models used throughout the import pipeline.
package model

import "time"

// SessionStatus tracks where an import session is in its lifecycle.
type SessionStatus string

// Session status constants.
const (
	SessionPending     SessionStatus = "pending"
	SessionPlanned     SessionStatus = "planned"
	SessionNeedsReview SessionStatus = "needs_review"
	SessionExecuting   SessionStatus = "executing"
	SessionCompleted   SessionStatus = "completed"
	SessionFailed      SessionStatus = "failed"
)

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionPending:     {SessionPlanned, SessionNeedsReview, SessionFailed},
	SessionPlanned:     {SessionNeedsReview, SessionExecuting, SessionFailed},
	SessionNeedsReview: {SessionExecuting, SessionFailed},
	SessionExecuting:   {SessionCompleted, SessionFailed},
}

// IsValid reports whether s is a known status.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionPending, SessionPlanned, SessionNeedsReview,
		SessionExecuting, SessionCompleted, SessionFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// CanTransition reports whether moving from s to next keeps the lifecycle moving forward.
// Re-asserting the current non-terminal status is allowed.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if s == next {
		return !s.IsTerminal()
	}
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsExecutable reports whether a session in this status may be committed.
func (s SessionStatus) IsExecutable() bool {
	return s == SessionPlanned || s == SessionNeedsReview
}

// ImportSession is one parsing attempt over a raw source.
type ImportSession struct {
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	ID         string        `json:"id"`
	ParserName string        `json:"parser_name"`
	RawData    string        `json:"raw_data"`
	Status     SessionStatus `json:"status"`
}
