// Package importer exposes the import pipeline to the CLI: sessions, plans, resolutions and execution.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/sift/internal/classification"
	"github.com/Veraticus/sift/internal/commit"
	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/plan"
	"github.com/Veraticus/sift/internal/service"
	"github.com/Veraticus/sift/internal/source"
	"github.com/Veraticus/sift/internal/storage"
	"github.com/Veraticus/sift/internal/vocabulary"
)

// Store is the persistence the importer needs.
type Store interface {
	service.RecordStorage
	service.SessionStore
	service.LearningStore
}

// Checkpointer snapshots the database before a session is executed.
type Checkpointer interface {
	AutoCheckpoint(ctx context.Context, operation string) (*storage.CheckpointInfo, error)
}

// Options configures an Importer.
type Options struct {
	Checkpointer   Checkpointer
	Classification classification.Options
	Retry          service.RetryOptions
	CommitWorkers  int
}

// Importer runs sessions through parse, classify, resolve and commit.
type Importer struct {
	store  Store
	vocab  *vocabulary.Vocabulary
	engine *classification.Engine
	opts   Options

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an importer. A nil vocabulary uses the built-in fact kinds.
func New(store Store, vocab *vocabulary.Vocabulary, opts Options) *Importer {
	if vocab == nil {
		vocab = vocabulary.Default()
	}
	return &Importer{
		store:  store,
		vocab:  vocab,
		engine: classification.NewEngine(vocab, opts.Classification),
		opts:   opts,
		locks:  make(map[string]*sync.Mutex),
	}
}

// CreateSession stores raw data for later parsing by the named source format.
func (im *Importer) CreateSession(ctx context.Context, format, rawData string) (*model.ImportSession, error) {
	if _, err := source.ForFormat(format, source.Options{}); err != nil {
		return nil, err
	}

	session := &model.ImportSession{
		ID:         uuid.NewString(),
		ParserName: strings.ToLower(strings.TrimSpace(format)),
		RawData:    rawData,
		Status:     model.SessionPending,
	}
	if err := im.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	common.LogInfo("Created import session", common.Fields{
		"session_id": session.ID,
		"format":     session.ParserName,
		"bytes":      len(rawData),
	})
	return session, nil
}

// GetSession returns a session.
func (im *Importer) GetSession(ctx context.Context, sessionID string) (*model.ImportSession, error) {
	return im.store.GetSession(ctx, sessionID)
}

// ListSessions returns every session, newest first.
func (im *Importer) ListSessions(ctx context.Context) ([]model.ImportSession, error) {
	return im.store.ListSessions(ctx)
}

// GeneratePlan parses a pending session, classifies its items and stores the first plan version.
// The session moves to planned when the plan can be committed as is, else to needs_review.
// A parse failure marks the session failed.
func (im *Importer) GeneratePlan(ctx context.Context, sessionID string, opts source.Options) (*model.ImportPlan, error) {
	lock := im.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := im.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionPending {
		return nil, fmt.Errorf("session %s is %s, plans are generated once: %w",
			sessionID, session.Status, common.ErrInvalidTransition)
	}

	src, err := source.ForFormat(session.ParserName, opts)
	if err != nil {
		return nil, err
	}

	raw, err := src.Parse(ctx, strings.NewReader(session.RawData))
	if err != nil {
		im.markFailed(ctx, sessionID)
		return nil, common.NewUserError(fmt.Sprintf("could not parse %s input", src.Name()), err)
	}

	containers := make([]model.ImportPlanContainer, 0, len(raw.Containers))
	for _, c := range raw.Containers {
		containers = append(containers, model.ContainerFromRaw(c))
	}
	items := make([]model.ImportPlanItem, 0, len(raw.Items))
	for _, it := range raw.Items {
		items = append(items, model.ItemFromRaw(it))
	}

	hints, err := im.hints(ctx)
	if err != nil {
		return nil, err
	}

	classifications, summary, err := im.engine.ClassifyAll(ctx, items, hints)
	if err != nil {
		return nil, fmt.Errorf("failed to classify items: %w", err)
	}

	p := plan.Assemble(sessionID, containers, items, classifications)
	if err := im.store.SavePlan(ctx, p, 0); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}

	status := model.SessionNeedsReview
	decision := plan.CanCommit(p)
	if decision.Allowed {
		status = model.SessionPlanned
	}
	if err := im.store.UpdateSessionStatus(ctx, sessionID, status); err != nil {
		return nil, err
	}

	common.LogInfo("Generated import plan", common.Fields{
		"session_id":   sessionID,
		"containers":   len(p.Containers),
		"items":        len(p.Items),
		"needs_review": summary.NeedsReview,
		"issues":       len(p.ValidationIssues),
		"status":       status,
	})
	return p, nil
}

// GetPlan returns the latest plan version of a session.
func (im *Importer) GetPlan(ctx context.Context, sessionID string) (*model.ImportPlan, error) {
	return im.store.GetPlan(ctx, sessionID)
}

// SubmitResolutions applies resolutions to the session's plan and stores the next version.
// Submissions for one session are serialized; a concurrent writer in another process is
// detected by the plan version and retried against the fresh plan. Invalid resolutions are
// rejected without changing the stored plan.
func (im *Importer) SubmitResolutions(ctx context.Context, sessionID string, resolutions []model.Resolution) (*model.ImportPlan, model.CommitDecision, error) {
	lock := im.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := im.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, model.CommitDecision{}, err
	}
	if !session.Status.IsExecutable() {
		return nil, model.CommitDecision{}, fmt.Errorf("session %s is %s: %w", sessionID, session.Status, common.ErrNotExecutable)
	}

	var next *model.ImportPlan
	err = common.WithRetry(ctx, func() error {
		current, err := im.store.GetPlan(ctx, sessionID)
		if err != nil {
			return err
		}
		resolved, err := plan.ApplyResolutions(current, resolutions, im.vocab)
		if err != nil {
			return err
		}
		if err := im.store.SavePlan(ctx, resolved, current.Version); err != nil {
			return err
		}
		next = resolved
		return nil
	}, im.opts.Retry)
	if err != nil {
		return nil, model.CommitDecision{}, err
	}

	im.learn(ctx, next, resolutions)

	decision := plan.CanCommit(next)
	common.LogInfo("Applied resolutions", common.Fields{
		"session_id":  sessionID,
		"resolutions": len(resolutions),
		"version":     next.Version,
		"allowed":     decision.Allowed,
	})
	return next, decision, nil
}

// Execute commits the session's plan. A plan the gate rejects fails with a
// *common.CommitBlockedError and leaves the session untouched. When the result cannot be
// stored after records were written, the session is marked failed and the result is
// returned alongside the error.
func (im *Importer) Execute(ctx context.Context, sessionID string, observer commit.Observer) (*model.ImportExecutionResult, error) {
	lock := im.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := im.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Status.IsExecutable() {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, session.Status, common.ErrNotExecutable)
	}

	p, err := im.store.GetPlan(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if decision := plan.CanCommit(p); !decision.Allowed {
		return nil, &common.CommitBlockedError{
			PendingFacts: decision.Stats.FactCandidatesPending,
			Unclassified: decision.Stats.Unclassified,
		}
	}

	if im.opts.Checkpointer != nil {
		if _, err := im.opts.Checkpointer.AutoCheckpoint(ctx, "execute"); err != nil {
			return nil, fmt.Errorf("failed to checkpoint before execute: %w", err)
		}
	}

	if err := im.store.UpdateSessionStatus(ctx, sessionID, model.SessionExecuting); err != nil {
		return nil, err
	}

	executor := commit.NewExecutor(im.store, commit.Options{
		Workers:  im.opts.CommitWorkers,
		Observer: observer,
	})
	result, err := executor.Execute(ctx, p)
	if err != nil {
		im.markFailed(ctx, sessionID)
		return nil, err
	}

	// Records are already written, so the session must leave executing whatever happens next.
	if err := im.store.SaveExecutionResult(ctx, result); err != nil {
		im.markFailed(ctx, sessionID)
		return result, fmt.Errorf("failed to save execution result: %w", err)
	}
	if err := im.store.UpdateSessionStatus(ctx, sessionID, result.Status); err != nil {
		im.markFailed(ctx, sessionID)
		return result, fmt.Errorf("failed to finish session: %w", err)
	}
	return result, nil
}

// GetResult returns the stored execution result of a session.
func (im *Importer) GetResult(ctx context.Context, sessionID string) (*model.ImportExecutionResult, error) {
	return im.store.GetExecutionResult(ctx, sessionID)
}

// Vocabulary returns the fact vocabulary used for classification and resolution.
func (im *Importer) Vocabulary() *vocabulary.Vocabulary {
	return im.vocab
}

func (im *Importer) sessionLock(sessionID string) *sync.Mutex {
	im.mu.Lock()
	defer im.mu.Unlock()

	lock, ok := im.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		im.locks[sessionID] = lock
	}
	return lock
}

func (im *Importer) hints(ctx context.Context) (classification.Hints, error) {
	learnings, err := im.store.GetAllLearnings(ctx)
	if err != nil {
		return classification.Hints{}, fmt.Errorf("failed to load learnings: %w", err)
	}

	hints := classification.Hints{Learnings: make(map[string]string, len(learnings))}
	for _, l := range learnings {
		hints.Learnings[l.Signature] = l.FactKind
	}
	return hints, nil
}

// learn remembers the fact kind chosen for each resolved item's title. Failures are logged only.
func (im *Importer) learn(ctx context.Context, p *model.ImportPlan, resolutions []model.Resolution) {
	for _, r := range resolutions {
		if r.ResolvedOutcome != model.OutcomeFactEmitted {
			continue
		}
		item, ok := p.Item(r.ItemTempID)
		if !ok {
			continue
		}
		signature := model.TitleSignature(item.Title)
		if signature == "" {
			continue
		}

		learning := &model.InferenceLearning{
			Signature:   signature,
			FactKind:    r.ResolvedFactKind,
			LastUpdated: time.Now().UTC(),
		}
		if err := im.store.SaveLearning(ctx, learning); err != nil {
			slog.Warn("failed to save learning", "signature", signature, "error", err)
		}
	}
}

func (im *Importer) markFailed(ctx context.Context, sessionID string) {
	if err := im.store.UpdateSessionStatus(ctx, sessionID, model.SessionFailed); err != nil && !errors.Is(err, common.ErrInvalidTransition) {
		common.LogError(err, "Failed to mark session failed", common.Fields{"session_id": sessionID})
	}
}
