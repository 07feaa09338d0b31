package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

func newSession(id string) *model.ImportSession {
	return &model.ImportSession{
		ID:         id,
		ParserName: "csv",
		RawData:    "Title,Status\nShip,Done\n",
		Status:     model.SessionPending,
	}
}

func testPlan(sessionID string) *model.ImportPlan {
	return &model.ImportPlan{
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
		Containers: []model.ImportPlanContainer{
			{TempID: "c1", Type: model.ContainerProject, Title: "Ops"},
		},
		Items: []model.ImportPlanItem{
			{TempID: "i1", Title: "Ship", ParentTempID: "c1"},
		},
		Classifications: map[string]*model.ItemClassification{
			"i1": {
				ItemTempID: "i1",
				Outcome:    model.OutcomeFactEmitted,
				Confidence: model.ConfidenceHigh,
				InterpretationPlan: model.InterpretationPlan{
					Outputs: model.Outputs{
						model.FactCandidate{FactKind: "Invoice", Payload: model.Payload{"amount": "5"}},
						model.FieldValue{Field: "owner", Value: "Ann"},
					},
				},
			},
		},
		ValidationIssues: []model.ValidationIssue{},
	}
}

func TestCreateSession(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	session := newSession("s1")
	require.NoError(t, store.CreateSession(ctx, session))
	assert.False(t, session.CreatedAt.IsZero())

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "csv", got.ParserName)
	assert.Equal(t, session.RawData, got.RawData)
	assert.Equal(t, model.SessionPending, got.Status)

	err = store.CreateSession(ctx, newSession("s1"))
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	_, err = store.GetSession(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateSession_Invalid(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		session *model.ImportSession
		wantErr error
		name    string
	}{
		{name: "nil", session: nil, wantErr: ErrNilParameter},
		{name: "missing id", session: &model.ImportSession{ParserName: "csv", Status: model.SessionPending}, wantErr: ErrInvalidSession},
		{name: "missing parser", session: &model.ImportSession{ID: "x", Status: model.SessionPending}, wantErr: ErrInvalidSession},
		{name: "unknown status", session: &model.ImportSession{ID: "x", ParserName: "csv", Status: "weird"}, wantErr: ErrInvalidSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, store.CreateSession(ctx, tt.session), tt.wantErr)
		})
	}
}

func TestListSessions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	older := newSession("older")
	older.CreatedAt = time.Now().Add(-time.Hour).UTC()
	require.NoError(t, store.CreateSession(ctx, older))
	require.NoError(t, store.CreateSession(ctx, newSession("newer")))

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "newer", sessions[0].ID)
	assert.Equal(t, "older", sessions[1].ID)
	assert.Empty(t, sessions[0].RawData)
}

func TestUpdateSessionStatus(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, newSession("s1")))

	steps := []model.SessionStatus{model.SessionNeedsReview, model.SessionExecuting, model.SessionCompleted}
	for _, status := range steps {
		require.NoError(t, store.UpdateSessionStatus(ctx, "s1", status))
	}

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, got.Status)

	err = store.UpdateSessionStatus(ctx, "s1", model.SessionExecuting)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	err = store.UpdateSessionStatus(ctx, "missing", model.SessionPlanned)
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.UpdateSessionStatus(ctx, "s1", "bogus")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSavePlan_VersionCheck(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, newSession("s1")))

	plan := testPlan("s1")
	require.NoError(t, store.SavePlan(ctx, plan, 0))
	assert.Equal(t, 1, plan.Version)

	stale := testPlan("s1")
	err := store.SavePlan(ctx, stale, 0)
	require.ErrorIs(t, err, common.ErrVersionConflict)
	assert.True(t, common.IsRetryable(err))
	assert.Equal(t, 0, stale.Version)

	require.NoError(t, store.SavePlan(ctx, plan, 1))
	assert.Equal(t, 2, plan.Version)

	got, err := store.GetPlan(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
}

func TestSavePlan_RoundTripsOutputs(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, newSession("s1")))

	plan := testPlan("s1")
	require.NoError(t, store.SavePlan(ctx, plan, 0))

	got, err := store.GetPlan(ctx, "s1")
	require.NoError(t, err)

	c, ok := got.Classification("i1")
	require.True(t, ok)
	require.Len(t, c.InterpretationPlan.Outputs, 2)
	assert.Equal(t, model.FactCandidate{FactKind: "Invoice", Payload: model.Payload{"amount": "5"}}, c.InterpretationPlan.Outputs[0])
	assert.Equal(t, model.FieldValue{Field: "owner", Value: "Ann"}, c.InterpretationPlan.Outputs[1])
	assert.Equal(t, plan.Containers, got.Containers)
	assert.Equal(t, plan.Items, got.Items)
}

func TestSavePlan_Invalid(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.SavePlan(ctx, nil, 0), ErrNilParameter)
	assert.ErrorIs(t, store.SavePlan(ctx, &model.ImportPlan{}, 0), ErrInvalidPlan)

	plan := testPlan("s1")
	plan.Classifications["other"] = plan.Classifications["i1"]
	assert.ErrorIs(t, store.SavePlan(ctx, plan, 0), ErrInvalidPlan)

	_, err := store.GetPlan(ctx, "s1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestExecutionResult(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, newSession("s1")))

	result := model.NewExecutionResult("s1")
	result.Status = model.SessionFailed
	result.CreatedIDs["c1"] = "durable-1"
	result.Errors["i1"] = model.ItemError{TempID: "i1", Message: "boom"}
	result.FinishedAt = time.Now().UTC()

	require.NoError(t, store.SaveExecutionResult(ctx, result))

	got, err := store.GetExecutionResult(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionFailed, got.Status)
	assert.Equal(t, "durable-1", got.CreatedIDs["c1"])
	assert.Equal(t, "boom", got.Errors["i1"].Message)

	pending := model.NewExecutionResult("s1")
	pending.Status = model.SessionExecuting
	assert.ErrorIs(t, store.SaveExecutionResult(ctx, pending), ErrInvalidResult)

	_, err = store.GetExecutionResult(ctx, "other")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
