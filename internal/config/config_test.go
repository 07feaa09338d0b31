package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/sift/internal/common"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("SIFT_TEST_DIR", "/tmp/sift")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"tilde only", "~", home},
		{"tilde prefix", "~/data/sift.db", filepath.Join(home, "data", "sift.db")},
		{"env var", "$SIFT_TEST_DIR/sift.db", "/tmp/sift/sift.db"},
		{"plain", "/var/lib/sift.db", "/var/lib/sift.db"},
		{"tilde in middle", "/a/~/b", "/a/~/b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "sift", "sift.db"), cfg.DatabasePath)
	assert.Equal(t, 4, cfg.ClassifyWorkers)
	assert.Equal(t, 4, cfg.CommitWorkers)
	assert.Equal(t, 3, cfg.CandidateLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Empty(t, cfg.VocabularyPath)
}

func TestLoadFrom_Overrides(t *testing.T) {
	dir := t.TempDir()
	v := viper.New()
	v.Set(KeyDatabasePath, filepath.Join(dir, "sift.db"))
	v.Set(KeyVocabularyPath, filepath.Join(dir, "vocab.yaml"))
	v.Set(KeyCommitWorkers, 8)
	v.Set(KeyLogFormat, "json")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sift.db"), cfg.DatabasePath)
	assert.Equal(t, filepath.Join(dir, "vocab.yaml"), cfg.VocabularyPath)
	assert.Equal(t, 8, cfg.CommitWorkers)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"zero classify workers", KeyClassifyWorkers, 0},
		{"too many commit workers", KeyCommitWorkers, 100},
		{"zero candidate limit", KeyCandidateLimit, 0},
		{"bad log level", KeyLogLevel, "loud"},
		{"bad log format", KeyLogFormat, "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)
			_, err := LoadFrom(v)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestLoadFrom_MissingDatabasePath(t *testing.T) {
	v := viper.New()
	v.Set(KeyDatabasePath, "")

	_, err := LoadFrom(v)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
