package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/sift/internal/classification"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/vocabulary"
)

func item(id, parent, title string, fields ...model.FieldRecording) model.ImportPlanItem {
	return model.ImportPlanItem{TempID: id, ParentTempID: parent, Title: title, FieldRecordings: fields}
}

func rec(name, value string) model.FieldRecording {
	return model.FieldRecording{FieldName: name, Value: value}
}

func classifyAll(items []model.ImportPlanItem) []*model.ItemClassification {
	engine := classification.NewEngine(vocabulary.Default(), classification.DefaultOptions())
	out := make([]*model.ItemClassification, 0, len(items))
	for _, it := range items {
		out = append(out, engine.Classify(it, classification.Hints{}))
	}
	return out
}

// sampleItems covers a derived state, an ambiguous item, a clear fact and an unclassified row.
func sampleItems() []model.ImportPlanItem {
	return []model.ImportPlanItem{
		item("i1", "c2", "Draft onboarding doc", rec("Status", "Done")),
		item("i2", "c2", "ACME invoice payment", rec("Amount", "1200"), rec("Reference", "R-77"), rec("Invoice Number", "1043")),
		item("i3", "c1", "ACME invoice", rec("Invoice Number", "1044"), rec("Amount", "900"), rec("Customer", "ACME")),
		item("i4", "c1", "Mystery row", rec("Color", "Blue")),
	}
}

func sampleContainers() []model.ImportPlanContainer {
	return []model.ImportPlanContainer{container("c1", ""), container("c2", "c1")}
}

func samplePlan() *model.ImportPlan {
	items := sampleItems()
	return Assemble("s1", sampleContainers(), items, classifyAll(items))
}

func issuesFor(p *model.ImportPlan, id string) []model.ValidationIssue {
	var out []model.ValidationIssue
	for _, issue := range p.ValidationIssues {
		if issue.ItemTempID == id || issue.RecordTempID == id {
			out = append(out, issue)
		}
	}
	return out
}

func TestAssemble(t *testing.T) {
	p := samplePlan()

	assert.Equal(t, "s1", p.SessionID)
	assert.Len(t, p.Containers, 2)
	assert.Len(t, p.Items, 4)
	assert.Len(t, p.Classifications, 4)
	assert.Empty(t, p.ValidationIssues)
	assert.False(t, p.HasErrors())
	assert.False(t, p.CreatedAt.IsZero())

	c, ok := p.Classification("i2")
	require.True(t, ok)
	assert.Equal(t, model.OutcomeAmbiguous, c.Outcome)
}

func TestAssemble_ContainerProblems(t *testing.T) {
	containers := []model.ImportPlanContainer{
		container("c1", ""),
		container("c2", "c9"),
		container("c3", "c4"),
		container("c4", "c3"),
		container("c5", "c3"),
		container("c1", ""),
		{TempID: "c6", Type: "folder", Title: "Bad type"},
	}
	items := []model.ImportPlanItem{
		item("i1", "c1", "Kept"),
		item("i2", "c2", "Under dangling"),
		item("i3", "c5", "Under cycle"),
		item("i4", "c8", "Under missing"),
		item("i5", "", "Orphan"),
	}

	p := Assemble("s1", containers, items, classifyAll(items))

	require.Len(t, p.Containers, 1)
	assert.Equal(t, "c1", p.Containers[0].TempID)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "i1", p.Items[0].TempID)
	assert.Len(t, p.Classifications, 1)
	assert.True(t, p.HasErrors())

	for _, id := range []string{"c2", "c3", "c4", "c5", "c6", "i2", "i3", "i4", "i5"} {
		issues := issuesFor(p, id)
		require.NotEmpty(t, issues, id)
		assert.Equal(t, model.SeverityError, issues[0].Severity, id)
	}
	assert.Contains(t, issuesFor(p, "c2")[0].Message, "c9 does not exist")
	assert.Contains(t, issuesFor(p, "c3")[0].Message, "cycle")
	assert.Contains(t, issuesFor(p, "c1")[0].Message, "duplicate container temp id")
	assert.Contains(t, issuesFor(p, "c6")[0].Message, `unknown container type "folder"`)
	assert.Contains(t, issuesFor(p, "i5")[0].Message, "no parent container")
}

func TestAssemble_Warnings(t *testing.T) {
	items := []model.ImportPlanItem{
		item("i1", "c1", "Weekly sync", rec("Status", "Done")),
		item("i2", "c1", " weekly SYNC ", rec("Status", "Stuck")),
		item("i3", "c2", "Weekly sync", rec("Status", "Done")),
		item("i4", "c1", "ACME invoice", rec("Customer", "ACME"), rec("Due Date", "2024-03-01"), rec("Billed To", "Ops")),
		item("i5", "c1", "Not classified"),
		item("i5", "c1", "Duplicate id"),
	}
	classifications := classifyAll(items[:4])

	p := Assemble("s1", sampleContainers(), items, classifications)

	assert.Empty(t, issuesFor(p, "i1"))
	assert.Empty(t, issuesFor(p, "i3"))

	dup := issuesFor(p, "i2")
	require.Len(t, dup, 1)
	assert.Equal(t, model.SeverityWarning, dup[0].Severity)
	assert.Contains(t, dup[0].Message, "first seen on item i1")

	missing := issuesFor(p, "i4")
	require.Len(t, missing, 1)
	assert.Equal(t, model.SeverityWarning, missing[0].Severity)
	assert.Equal(t, "Invoice is missing required fields: invoice_number, amount", missing[0].Message)

	i5 := issuesFor(p, "i5")
	require.Len(t, i5, 2)
	assert.Equal(t, model.SeverityError, i5[0].Severity)
	assert.Equal(t, "duplicate item temp id", i5[0].Message)
	assert.Equal(t, model.SeverityWarning, i5[1].Severity)
	assert.Equal(t, "item was not classified", i5[1].Message)

	c, ok := p.Classification("i5")
	require.True(t, ok)
	assert.Equal(t, model.OutcomeUnclassified, c.Outcome)
	assert.NotNil(t, c.InterpretationPlan.Outputs)
}

func TestAssemble_DropsClassificationsForUnknownItems(t *testing.T) {
	items := sampleItems()
	extra := classifyAll([]model.ImportPlanItem{item("i9", "c1", "Ghost")})

	p := Assemble("s1", sampleContainers(), items, append(classifyAll(items), extra...))

	_, ok := p.Classification("i9")
	assert.False(t, ok)
	assert.Len(t, p.Classifications, len(items))
}
