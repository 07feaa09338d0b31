package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/storage"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_ImportExecuteResult(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sift.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	csvPath := filepath.Join(dir, "standup.csv")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: error\n"), 0o600))
	require.NoError(t, os.WriteFile(csvPath, []byte("Title,Status,Owner\nDraft onboarding doc,Done,Dana\n"), 0o600))

	global := []string{"--config", cfgPath, "--database", dbPath}

	out, err := runCLI(t, append([]string{"import", csvPath}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "DERIVED_STATE")
	assert.Contains(t, out, "Ready to commit")

	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	sessions, err := store.ListSessions(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.Len(t, sessions, 1)
	id := sessions[0].ID
	assert.Equal(t, model.SessionPlanned, sessions[0].Status)

	out, err = runCLI(t, append([]string{"plan", id, "--json"}, global...)...)
	require.NoError(t, err)
	var p model.ImportPlan
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, id, p.SessionID)
	assert.Equal(t, "standup", p.Containers[0].Title)

	out, err = runCLI(t, append([]string{"execute", id, "--quiet"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "completed")

	out, err = runCLI(t, append([]string{"sessions"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, id)

	out, err = runCLI(t, append([]string{"checkpoint", "list"}, global...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "auto-execute")

	_, err = runCLI(t, append([]string{"execute", id, "--quiet"}, global...)...)
	assert.Error(t, err)
}

func TestCLI_Vocabulary(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: error\n"), 0o600))

	out, err := runCLI(t, "vocabulary", "--config", cfgPath, "--database", filepath.Join(dir, "sift.db"))
	require.NoError(t, err)
	for _, kind := range []string{"Approval", "Contract", "Invoice", "Milestone", "PaymentRecord"} {
		assert.Contains(t, out, kind)
	}
}

func TestParseAssignments(t *testing.T) {
	payload, err := parseAssignments([]string{"Paid On=2024-03-01", " amount = 12 "})
	require.NoError(t, err)
	assert.Equal(t, model.Payload{"paid_on": "2024-03-01", "amount": "12"}, payload)

	payload, err = parseAssignments(nil)
	require.NoError(t, err)
	assert.Nil(t, payload)

	_, err = parseAssignments([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseAssignments([]string{"=x"})
	assert.Error(t, err)
}

func TestFormatFromExtension(t *testing.T) {
	tests := map[string]string{
		"board.csv":     "csv",
		"statement.QFX": "ofx",
		"statement.ofx": "ofx",
		"export.json":   "monday",
		"notes.txt":     "text",
		"no-extension":  "text",
	}
	for path, want := range tests {
		assert.Equal(t, want, formatFromExtension(path), path)
	}
}
