package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/Veraticus/sift/internal/common"
)

// Viper keys.
const (
	KeyDatabasePath    = "database.path"
	KeyClassifyWorkers = "import.classify_workers"
	KeyCommitWorkers   = "import.commit_workers"
	KeyCandidateLimit  = "import.candidate_limit"
	KeyVocabularyPath  = "vocabulary.path"
	KeyLogLevel        = "logging.level"
	KeyLogFormat       = "logging.format"
)

// DefaultDatabasePath is used when database.path is not configured.
const DefaultDatabasePath = "~/.config/sift/sift.db"

// Config is the validated runtime configuration.
type Config struct {
	DatabasePath    string
	VocabularyPath  string
	LogLevel        string
	LogFormat       string
	ClassifyWorkers int
	CommitWorkers   int
	CandidateLimit  int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyClassifyWorkers, 4)
	v.SetDefault(KeyCommitWorkers, 4)
	v.SetDefault(KeyCandidateLimit, 3)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		DatabasePath:    ExpandPath(v.GetString(KeyDatabasePath)),
		VocabularyPath:  ExpandPath(v.GetString(KeyVocabularyPath)),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		ClassifyWorkers: v.GetInt(KeyClassifyWorkers),
		CommitWorkers:   v.GetInt(KeyCommitWorkers),
		CandidateLimit:  v.GetInt(KeyCandidateLimit),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: %s is required", common.ErrMissingConfig, KeyDatabasePath)
	}
	if c.DatabasePath != ":memory:" && !filepath.IsAbs(c.DatabasePath) {
		abs, err := filepath.Abs(c.DatabasePath)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, KeyDatabasePath, err)
		}
		c.DatabasePath = abs
	}
	if c.ClassifyWorkers < 1 || c.ClassifyWorkers > 64 {
		return fmt.Errorf("%w: %s must be between 1 and 64, got %d", common.ErrInvalidConfig, KeyClassifyWorkers, c.ClassifyWorkers)
	}
	if c.CommitWorkers < 1 || c.CommitWorkers > 64 {
		return fmt.Errorf("%w: %s must be between 1 and 64, got %d", common.ErrInvalidConfig, KeyCommitWorkers, c.CommitWorkers)
	}
	if c.CandidateLimit < 1 {
		return fmt.Errorf("%w: %s must be at least 1, got %d", common.ErrInvalidConfig, KeyCandidateLimit, c.CandidateLimit)
	}
	if _, err := common.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: invalid log format: %s", common.ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
