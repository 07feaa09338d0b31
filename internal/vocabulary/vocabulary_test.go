package vocabulary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/sift/internal/model"
)

func TestDefault(t *testing.T) {
	v := Default()

	assert.Equal(t, []string{"Approval", "Contract", "Invoice", "Milestone", "PaymentRecord"}, v.Names())

	invoice, ok := v.Lookup("Invoice")
	require.True(t, ok)
	assert.Equal(t, []string{"invoice_number", "amount"}, invoice.RequiredFields)

	_, ok = v.Lookup("Receipt")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		kinds   []model.FactKind
		wantErr bool
	}{
		{
			name:  "valid kinds",
			kinds: []model.FactKind{{Kind: "Timesheet", Keywords: []string{"timesheet"}}},
		},
		{
			name:    "duplicate kind",
			kinds:   []model.FactKind{{Kind: "A", Keywords: []string{"a"}}, {Kind: "A", Keywords: []string{"b"}}},
			wantErr: true,
			errMsg:  `duplicate fact kind "A"`,
		},
		{
			name:    "kind without signature",
			kinds:   []model.FactKind{{Kind: "Empty"}},
			wantErr: true,
			errMsg:  "needs signature fields or keywords",
		},
		{
			name:    "invalid keyword regex",
			kinds:   []model.FactKind{{Kind: "Bad", Keywords: []string{"[oops"}}},
			wantErr: true,
			errMsg:  "failed to compile keyword",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.kinds)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCompiledKind_MatchesKeyword(t *testing.T) {
	v := Default()

	var invoice CompiledKind
	for _, k := range v.Compiled() {
		if k.Kind == "Invoice" {
			invoice = k
		}
	}

	assert.True(t, invoice.MatchesKeyword("ACME Invoice #1043"))
	assert.True(t, invoice.MatchesKeyword("billing run"))
	assert.False(t, invoice.MatchesKeyword("invoiceless"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocabulary.yaml")
	content := `include_defaults: true
fact_kinds:
  - kind: Timesheet
    required_fields: [hours]
    signature_fields: [hours, worker, week]
    keywords: [timesheet, hours]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	v, err := LoadFile(path)
	require.NoError(t, err)

	assert.Contains(t, v.Names(), "Timesheet")
	assert.Contains(t, v.Names(), "Invoice")

	ts, ok := v.Lookup("Timesheet")
	require.True(t, ok)
	assert.Equal(t, []string{"hours"}, ts.RequiredFields)
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse([]byte("fact_kinds: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fact kinds")
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, IsStatusField("Status"))
	assert.True(t, IsStatusField(" Stage "))
	assert.False(t, IsStatusField("Owner"))

	state, ok := NormalizeStatus("Done")
	assert.True(t, ok)
	assert.Equal(t, StateDone, state)

	state, ok = NormalizeStatus("Working on it")
	assert.True(t, ok)
	assert.Equal(t, StateInProgress, state)

	_, ok = NormalizeStatus("purple")
	assert.False(t, ok)

	assert.True(t, IsNoteField("Notes"))
	assert.True(t, MentionsExternalWork("Waiting on vendor quote"))
	assert.False(t, MentionsExternalWork("Update onboarding doc"))
}
