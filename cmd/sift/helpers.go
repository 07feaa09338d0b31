package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/sift/internal/classification"
	"github.com/Veraticus/sift/internal/config"
	"github.com/Veraticus/sift/internal/importer"
	"github.com/Veraticus/sift/internal/storage"
	"github.com/Veraticus/sift/internal/vocabulary"
)

// app bundles what most commands need.
type app struct {
	cfg      *config.Config
	store    *storage.SQLiteStorage
	importer *importer.Importer
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadVocabulary returns the configured vocabulary file, or the built-in fact kinds.
func loadVocabulary(cfg *config.Config) (*vocabulary.Vocabulary, error) {
	if cfg.VocabularyPath == "" {
		return vocabulary.Default(), nil
	}
	vocab, err := vocabulary.LoadFile(cfg.VocabularyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary %s: %w", cfg.VocabularyPath, err)
	}
	slog.Debug("Loaded vocabulary", "path", cfg.VocabularyPath, "kinds", len(vocab.Names()))
	return vocab, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	vocab, err := loadVocabulary(cfg)
	if err != nil {
		return nil, err
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := importer.Options{
		CommitWorkers: cfg.CommitWorkers,
		Classification: classification.Options{
			Workers:        cfg.ClassifyWorkers,
			CandidateLimit: cfg.CandidateLimit,
		},
	}
	if cfg.DatabasePath != ":memory:" {
		manager, err := store.NewCheckpointManager()
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to create checkpoint manager: %w", err)
		}
		opts.Checkpointer = manager
	}

	return &app{
		cfg:      cfg,
		store:    store,
		importer: importer.New(store, vocab, opts),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}
