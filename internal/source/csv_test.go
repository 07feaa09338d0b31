package source

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/sift/internal/model"
)

func TestCSV_Parse(t *testing.T) {
	input := "\xEF\xBB\xBFTask,Status,Owner,Group\n" +
		"Draft onboarding doc,Done,Dana,Ops\n" +
		"ACME invoice,,,Billing\n" +
		",,,\n" +
		"Loose row,In Progress,,\n" +
		"Second ops task,Blocked,Lee,Ops\n"

	raw, err := NewCSV(Options{ImportName: "Q1 board"}).Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assertUniqueTempIDs(t, raw)

	require.Len(t, raw.Containers, 3)
	assert.Equal(t, model.RawImportContainer{TempID: "c1", Type: model.ContainerProject, Title: "Q1 board"}, raw.Containers[0])
	assert.Equal(t, model.RawImportContainer{TempID: "c2", Type: model.ContainerSubprocess, Title: "Ops", ParentTempID: "c1"}, raw.Containers[1])
	assert.Equal(t, "Billing", raw.Containers[2].Title)

	require.Len(t, raw.Items, 4)
	first := raw.Items[0]
	assert.Equal(t, "i1", first.TempID)
	assert.Equal(t, "Draft onboarding doc", first.Title)
	assert.Equal(t, "c2", first.ParentTempID)
	assert.Equal(t, []model.FieldRecording{
		{FieldName: "Status", Value: "Done"},
		{FieldName: "Owner", Value: "Dana"},
	}, first.FieldRecordings)
	assert.Equal(t, "2", first.Metadata["line"])

	assert.Empty(t, raw.Items[1].FieldRecordings, "empty cells are not recorded")
	assert.Equal(t, "c1", raw.Items[2].ParentTempID, "rows without a group sit under the root")
	assert.Equal(t, "c2", raw.Items[3].ParentTempID, "groups are reused")
}

func TestCSV_ExplicitColumns(t *testing.T) {
	input := "Amount,Label,Bucket\n900,ACME invoice,Billing\n"

	raw, err := NewCSV(Options{TitleColumn: "label", GroupColumn: "Bucket"}).Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, raw.Items, 1)
	assert.Equal(t, "ACME invoice", raw.Items[0].Title)
	assert.Equal(t, "900", field(raw.Items[0], "Amount"))
	assert.Equal(t, "CSV import", raw.Containers[0].Title)
	assert.Equal(t, "Billing", raw.Containers[1].Title)
}

func TestCSV_FallsBackToFirstColumn(t *testing.T) {
	raw, err := NewCSV(Options{}).Parse(context.Background(), strings.NewReader("Subject,Notes\nHello,world\n"))
	require.NoError(t, err)
	require.Len(t, raw.Items, 1)
	assert.Equal(t, "Hello", raw.Items[0].Title)
	assert.Equal(t, "world", field(raw.Items[0], "Notes"))
}

func TestCSV_FallbackSkipsStatusAndNoteColumns(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTitle string
		wantField map[string]string
	}{
		{
			name:      "status only",
			input:     "Status\nDone\n",
			wantTitle: "",
			wantField: map[string]string{"Status": "Done"},
		},
		{
			name:      "status before owner",
			input:     "Status,Owner\nDone,Ann\n",
			wantTitle: "Ann",
			wantField: map[string]string{"Status": "Done"},
		},
		{
			name:      "notes and status",
			input:     "Notes,Status\ncall back,Blocked\n",
			wantTitle: "",
			wantField: map[string]string{"Notes": "call back", "Status": "Blocked"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := NewCSV(Options{}).Parse(context.Background(), strings.NewReader(tt.input))
			require.NoError(t, err)
			require.Len(t, raw.Items, 1)
			assert.Equal(t, tt.wantTitle, raw.Items[0].Title)
			assert.Len(t, raw.Items[0].FieldRecordings, len(tt.wantField))
			for name, value := range tt.wantField {
				assert.Equal(t, value, field(raw.Items[0], name))
			}
		})
	}
}

func TestCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    Options
		wantErr string
	}{
		{name: "empty input", input: "", wantErr: "missing header"},
		{name: "unknown title column", input: "a,b\n1,2\n", opts: Options{TitleColumn: "title"}, wantErr: `column "title" not found`},
		{name: "bad quoting", input: "title\n\"unterminated\n", wantErr: "line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSV(tt.opts).Parse(context.Background(), strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCSV(Options{}).Parse(ctx, strings.NewReader("title\nrow\n"))
	assert.ErrorIs(t, err, context.Canceled)
}
