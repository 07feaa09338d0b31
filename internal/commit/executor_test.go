package commit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Veraticus/sift/internal/classification"
	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/plan"
	"github.com/Veraticus/sift/internal/vocabulary"
)

func rec(name, value string) model.FieldRecording {
	return model.FieldRecording{FieldName: name, Value: value}
}

func buildPlan(containers []model.ImportPlanContainer, items []model.ImportPlanItem) *model.ImportPlan {
	engine := classification.NewEngine(vocabulary.Default(), classification.DefaultOptions())
	classifications := make([]*model.ItemClassification, 0, len(items))
	for _, it := range items {
		classifications = append(classifications, engine.Classify(it, classification.Hints{}))
	}
	return plan.Assemble("s1", containers, items, classifications)
}

// executablePlan has four containers and five items, with every uncertain item resolved.
func executablePlan(t *testing.T) *model.ImportPlan {
	t.Helper()
	containers := []model.ImportPlanContainer{
		{TempID: "c1", Type: model.ContainerProject, Title: "Finance"},
		{TempID: "c2", Type: model.ContainerProcess, Title: "Invoices", ParentTempID: "c1"},
		{TempID: "c3", Type: model.ContainerSubprocess, Title: "Q1", ParentTempID: "c2"},
		{TempID: "c4", Type: model.ContainerProject, Title: "Ops"},
	}
	items := []model.ImportPlanItem{
		{TempID: "i1", ParentTempID: "c4", Title: "Draft onboarding doc", FieldRecordings: []model.FieldRecording{rec("Status", "Done"), rec("Owner", "Dana")}},
		{TempID: "i2", ParentTempID: "c2", Title: "ACME invoice payment", FieldRecordings: []model.FieldRecording{rec("Amount", "1200"), rec("Reference", "R-77"), rec("Invoice Number", "1043")}},
		{TempID: "i3", ParentTempID: "c3", Title: "ACME invoice", FieldRecordings: []model.FieldRecording{rec("Invoice Number", "1044"), rec("Amount", "900"), rec("Customer", "ACME")}},
		{TempID: "i4", ParentTempID: "c1", Title: "Mystery row", FieldRecordings: []model.FieldRecording{rec("Color", "Blue")}},
		{TempID: "i5", ParentTempID: "c4", Title: "Follow up", FieldRecordings: []model.FieldRecording{rec("Notes", "ping the team")}},
	}

	p, err := plan.ApplyResolutions(buildPlan(containers, items), []model.Resolution{
		{ItemTempID: "i2", ResolvedOutcome: model.OutcomeFactEmitted, ResolvedFactKind: "Invoice"},
		{ItemTempID: "i4", ResolvedOutcome: model.OutcomeSkip},
	}, vocabulary.Default())
	require.NoError(t, err)
	require.True(t, plan.CanCommit(p).Allowed)
	return p
}

func TestExecutor_Execute(t *testing.T) {
	store := newFakeStore()
	observer := newRecordingObserver()
	p := executablePlan(t)

	result, err := NewExecutor(store, Options{Workers: 2, Observer: observer}).Execute(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, model.SessionCompleted, result.Status)
	assert.Empty(t, result.Errors)
	assert.Equal(t, plan.CanCommit(p).Stats, result.Stats)
	assert.ElementsMatch(t, []string{"c1", "c2", "c3", "c4", "i1", "i2", "i3"}, keys(result.CreatedIDs))
	assert.Equal(t, []string{"i4", "i5"}, result.Skipped)
	assert.False(t, result.FinishedAt.Before(result.StartedAt))

	containers := store.byOp("container")
	require.Len(t, containers, 4)
	byTitle := map[string]write{}
	for _, w := range containers {
		byTitle[w.title] = w
	}
	assert.Empty(t, byTitle["Finance"].parentID)
	assert.Equal(t, result.CreatedIDs["c1"], byTitle["Invoices"].parentID)
	assert.Equal(t, result.CreatedIDs["c2"], byTitle["Q1"].parentID)

	facts := store.byOp("fact")
	require.Len(t, facts, 2)
	for _, f := range facts {
		assert.Equal(t, "Invoice", f.kind)
		switch f.title {
		case "ACME invoice payment":
			assert.Equal(t, result.CreatedIDs["c2"], f.parentID)
			assert.Equal(t, result.CreatedIDs["i2"], f.id)
		case "ACME invoice":
			assert.Equal(t, result.CreatedIDs["c3"], f.parentID)
		default:
			t.Fatalf("unexpected fact %q", f.title)
		}
	}

	events := store.byOp("event")
	require.Len(t, events, 1)
	assert.Equal(t, classification.StatusChangedEvent, events[0].kind)
	assert.Equal(t, result.CreatedIDs["c4"], events[0].parentID)
	assert.Equal(t, result.CreatedIDs["i1"], events[0].id)

	fields := store.byOp("field")
	require.Len(t, fields, 1)
	assert.Equal(t, "owner", fields[0].kind)
	assert.Equal(t, result.CreatedIDs["i1"], fields[0].parentID)

	assert.Len(t, observer.containers, 4)
	assert.Len(t, observer.items, 5)
	assert.Empty(t, observer.failures)
}

func TestExecutor_ItemFailureIsIsolated(t *testing.T) {
	store := newFakeStore()
	store.failFacts["ACME invoice"] = true
	p := executablePlan(t)

	result, err := NewExecutor(store, Options{}).Execute(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, model.SessionFailed, result.Status)
	require.Contains(t, result.Errors, "i3")
	assert.Contains(t, result.Errors["i3"].Message, errStorage.Error())
	assert.Contains(t, result.Errors["i3"].Message, "i3")
	assert.False(t, result.Errors["i3"].ByDependency)
	assert.Len(t, result.Errors, 1)

	assert.ElementsMatch(t, []string{"c1", "c2", "c3", "c4", "i1", "i2"}, keys(result.CreatedIDs))
}

func TestExecutor_ItemWritesAreAllOrNothing(t *testing.T) {
	store := newFakeStore()
	store.failFields["owner"] = true
	p := executablePlan(t)

	result, err := NewExecutor(store, Options{}).Execute(context.Background(), p)
	require.NoError(t, err)

	require.Contains(t, result.Errors, "i1")
	assert.NotContains(t, result.CreatedIDs, "i1")
	assert.Empty(t, store.byOp("event"), "the status event is rolled back with the failed field write")
	assert.Equal(t, 1, store.rollbacks)
}

func TestExecutor_FailedCommitIsNotRolledBack(t *testing.T) {
	store := newFakeStore()
	store.failCommits["Draft onboarding doc"] = true
	p := executablePlan(t)

	result, err := NewExecutor(store, Options{}).Execute(context.Background(), p)
	require.NoError(t, err)

	require.Contains(t, result.Errors, "i1")
	assert.Contains(t, result.Errors["i1"].Message, "failed to commit item")
	assert.NotContains(t, result.CreatedIDs, "i1")
	assert.Zero(t, store.rollbacks, "a transaction whose commit failed is already finished")
}

func TestExecutor_ContainerFailureFailsSubtree(t *testing.T) {
	store := newFakeStore()
	store.failContainers["Invoices"] = true
	observer := newRecordingObserver()
	p := executablePlan(t)

	result, err := NewExecutor(store, Options{Observer: observer}).Execute(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, model.SessionFailed, result.Status)
	assert.ElementsMatch(t, []string{"c1", "c4", "i1"}, keys(result.CreatedIDs))

	require.Contains(t, result.Errors, "c2")
	assert.True(t, result.Errors["c2"].IsContainer)
	assert.False(t, result.Errors["c2"].ByDependency)
	assert.Contains(t, result.Errors["c2"].Message, errStorage.Error())

	for _, id := range []string{"c3", "i2", "i3"} {
		require.Contains(t, result.Errors, id)
		assert.True(t, result.Errors[id].ByDependency, id)
	}
	assert.True(t, result.Errors["c3"].IsContainer)
	assert.Contains(t, result.Errors["c3"].Message, "parent c2 failed")

	assert.Empty(t, store.byOp("fact"), "no writes are attempted under a failed container")
	assert.ErrorIs(t, observer.failures["i3"], common.ErrItemCommit)
	assert.ErrorIs(t, observer.failures["i3"], common.ErrContainerCommit)
}

func TestExecutor_BlockedPlanWritesNothing(t *testing.T) {
	store := newFakeStore()
	containers := []model.ImportPlanContainer{{TempID: "c1", Type: model.ContainerProject, Title: "Finance"}}
	items := []model.ImportPlanItem{
		{TempID: "i1", ParentTempID: "c1", Title: "ACME invoice payment", FieldRecordings: []model.FieldRecording{rec("Amount", "1"), rec("Reference", "R"), rec("Invoice Number", "2")}},
		{TempID: "i2", ParentTempID: "c1", Title: "Draft", FieldRecordings: []model.FieldRecording{rec("Status", "Done")}},
	}

	result, err := NewExecutor(store, Options{}).Execute(context.Background(), buildPlan(containers, items))

	assert.Nil(t, result)
	var blocked *common.CommitBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.ErrorIs(t, err, common.ErrCommitBlocked)
	assert.Equal(t, 1, blocked.Unclassified)
	assert.Empty(t, store.Writes())
	assert.Zero(t, store.begun)
}

func TestExecutor_CycleIsFatal(t *testing.T) {
	store := newFakeStore()
	p := &model.ImportPlan{
		SessionID: "s1",
		Containers: []model.ImportPlanContainer{
			{TempID: "c1", Type: model.ContainerProject, Title: "A", ParentTempID: "c2"},
			{TempID: "c2", Type: model.ContainerProject, Title: "B", ParentTempID: "c1"},
		},
		Classifications: map[string]*model.ItemClassification{},
	}

	result, err := NewExecutor(store, Options{}).Execute(context.Background(), p)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, common.ErrGraphCycle)
	assert.Empty(t, store.Writes())
}

func TestProperty_ExecutorCreatesParentsFirst(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 25).Draw(rt, "containers")
		containers := make([]model.ImportPlanContainer, 0, n)
		items := make([]model.ImportPlanItem, 0, n)
		for i := 0; i < n; i++ {
			c := model.ImportPlanContainer{TempID: fmt.Sprintf("c%d", i), Type: model.ContainerProject, Title: fmt.Sprintf("C%d", i)}
			if i > 0 && rapid.Bool().Draw(rt, "has_parent") {
				c.Type = model.ContainerSubprocess
				c.ParentTempID = fmt.Sprintf("c%d", rapid.IntRange(0, i-1).Draw(rt, "parent"))
			}
			containers = append(containers, c)
			items = append(items, model.ImportPlanItem{
				TempID:          fmt.Sprintf("i%d", i),
				ParentTempID:    c.TempID,
				Title:           fmt.Sprintf("Task %d", i),
				FieldRecordings: []model.FieldRecording{rec("Status", "Done")},
			})
		}
		containers = rapid.Permutation(containers).Draw(rt, "order")

		store := newFakeStore()
		workers := rapid.IntRange(1, 8).Draw(rt, "workers")
		result, err := NewExecutor(store, Options{Workers: workers}).Execute(context.Background(), buildPlan(containers, items))
		if err != nil {
			rt.Fatalf("Execute: %v", err)
		}
		if len(result.Errors) != 0 {
			rt.Fatalf("unexpected errors: %v", result.Errors)
		}

		created := map[string]bool{}
		for _, w := range store.Writes() {
			if w.op != "container" {
				continue
			}
			if w.parentID != "" && !created[w.parentID] {
				rt.Fatalf("container %s created before its parent %s", w.title, w.parentID)
			}
			created[w.id] = true
		}
		if len(created) != n {
			rt.Fatalf("created %d containers, want %d", len(created), n)
		}
	})
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
