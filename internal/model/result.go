package model

import "time"

// CommitStats tallies what a plan would write, per classification.
type CommitStats struct {
	FactCandidatesApproved int `json:"fact_candidates_approved"`
	FactCandidatesPending  int `json:"fact_candidates_pending"`
	WorkEvents             int `json:"work_events"`
	FieldValues            int `json:"field_values"`
	ActionHints            int `json:"action_hints"`
	Unclassified           int `json:"unclassified"`
	Skipped                int `json:"skipped"`
}

// CommitDecision is the Commit Gate verdict for a plan.
type CommitDecision struct {
	Stats   CommitStats `json:"stats"`
	Allowed bool        `json:"allowed"`
}

// ItemError records why one temp id failed to materialize.
type ItemError struct {
	TempID       string `json:"temp_id"`
	Message      string `json:"message"`
	IsContainer  bool   `json:"is_container,omitempty"`
	ByDependency bool   `json:"by_dependency,omitempty"`
}

// ImportExecutionResult is what the Commit Executor reports for one session.
type ImportExecutionResult struct {
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	CreatedIDs map[string]string    `json:"created_ids"`
	Errors     map[string]ItemError `json:"errors"`
	SessionID  string               `json:"session_id"`
	Status     SessionStatus        `json:"status"`
	Skipped    []string             `json:"skipped,omitempty"`
	Stats      CommitStats          `json:"stats"`
}

// NewExecutionResult returns an empty result for a session.
func NewExecutionResult(sessionID string) *ImportExecutionResult {
	return &ImportExecutionResult{
		SessionID:  sessionID,
		CreatedIDs: make(map[string]string),
		Errors:     make(map[string]ItemError),
	}
}

// Succeeded reports whether every write succeeded.
func (r *ImportExecutionResult) Succeeded() bool {
	return len(r.Errors) == 0
}
