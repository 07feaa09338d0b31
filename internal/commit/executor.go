// Package commit materializes gated import plans into durable records.
package commit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/plan"
	"github.com/Veraticus/sift/internal/service"
)

const defaultWorkers = 4

// Options configures the executor.
type Options struct {
	Observer Observer
	Workers  int // Concurrent container and item writes
}

// Executor walks a plan and writes its containers and items through a RecordStorage.
type Executor struct {
	store    service.RecordStorage
	observer Observer
	workers  int
}

// NewExecutor creates an executor.
func NewExecutor(store service.RecordStorage, opts Options) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	return &Executor{
		store:    store,
		observer: opts.Observer,
		workers:  opts.Workers,
	}
}

// itemResult is the outcome of one item's writes. Each item owns one slot.
type itemResult struct {
	err        error
	durableID  string
	dependency bool
	wroteAny   bool
}

// Execute materializes the plan. It refuses to run when the commit gate rejects the plan
// or the container graph cannot be ordered, and performs no writes in either case.
//
// Containers are created level by level so a parent always exists before its children.
// A failed container fails its whole subtree; other subtrees and items carry on.
// Each item's writes run in their own transaction.
func (e *Executor) Execute(ctx context.Context, p *model.ImportPlan) (*model.ImportExecutionResult, error) {
	decision := plan.CanCommit(p)
	if !decision.Allowed {
		return nil, &common.CommitBlockedError{
			PendingFacts: decision.Stats.FactCandidatesPending,
			Unclassified: decision.Stats.Unclassified,
		}
	}

	graph := plan.NewGraph(p.Containers)
	levels, err := graph.Levels()
	if err != nil {
		return nil, fmt.Errorf("failed to order containers: %w", err)
	}

	result := model.NewExecutionResult(p.SessionID)
	result.StartedAt = time.Now().UTC()
	result.Stats = decision.Stats

	durableIDs, failed := e.createContainers(ctx, p, graph, levels, result)
	e.commitItems(ctx, p, durableIDs, failed, result)

	result.FinishedAt = time.Now().UTC()
	result.Status = model.SessionCompleted
	if !result.Succeeded() {
		result.Status = model.SessionFailed
	}

	slog.Info("Executed import plan",
		"session_id", p.SessionID,
		"created", len(result.CreatedIDs),
		"errors", len(result.Errors),
		"skipped", len(result.Skipped),
		"status", result.Status,
		"duration", result.FinishedAt.Sub(result.StartedAt))

	return result, nil
}

// createContainers writes containers one level at a time and returns the temp-id to
// durable-id map along with the set of containers that failed directly or by dependency.
func (e *Executor) createContainers(
	ctx context.Context,
	p *model.ImportPlan,
	graph *plan.Graph,
	levels [][]string,
	result *model.ImportExecutionResult,
) (map[string]string, map[string]error) {
	byID := make(map[string]model.ImportPlanContainer, len(p.Containers))
	for _, c := range p.Containers {
		if _, seen := byID[c.TempID]; !seen {
			byID[c.TempID] = c
		}
	}

	durableIDs := make(map[string]string, len(p.Containers))
	failed := make(map[string]error)
	var mu sync.Mutex

	for _, level := range levels {
		var g errgroup.Group
		g.SetLimit(e.workers)

		for _, tempID := range level {
			c := byID[tempID]
			mu.Lock()
			_, skip := failed[tempID]
			parentID := durableIDs[c.ParentTempID]
			mu.Unlock()
			if skip {
				continue
			}

			g.Go(func() error {
				durableID, err := e.store.CreateContainer(ctx, c.Type, c.Title, parentID)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					cerr := &common.ContainerCommitError{ContainerTempID: c.TempID, Err: err}
					failed[c.TempID] = cerr
					result.Errors[c.TempID] = model.ItemError{TempID: c.TempID, Message: cerr.Error(), IsContainer: true}
					e.observer.ItemFailed(c.TempID, cerr)
					slog.Warn("Container commit failed", "container_temp_id", c.TempID, "error", err)

					for _, child := range graph.Descendants(c.TempID) {
						derr := &common.ContainerCommitError{ContainerTempID: child, Dependency: c.TempID}
						failed[child] = derr
						result.Errors[child] = model.ItemError{TempID: child, Message: derr.Error(), IsContainer: true, ByDependency: true}
						e.observer.ItemFailed(child, derr)
					}
					return nil
				}

				durableIDs[c.TempID] = durableID
				result.CreatedIDs[c.TempID] = durableID
				e.observer.ContainerCreated(c.TempID, durableID)
				return nil
			})
		}

		// Workers never return errors; failures are recorded on the result.
		_ = g.Wait()
	}

	return durableIDs, failed
}

func (e *Executor) commitItems(
	ctx context.Context,
	p *model.ImportPlan,
	durableIDs map[string]string,
	failed map[string]error,
	result *model.ImportExecutionResult,
) {
	results := make([]itemResult, len(p.Items))

	var g errgroup.Group
	g.SetLimit(e.workers)

	for i, item := range p.Items {
		if cerr, bad := failed[item.ParentTempID]; bad {
			results[i] = itemResult{
				err: &common.ItemCommitError{
					ItemTempID: item.TempID,
					Err:        fmt.Errorf("parent container %s failed: %w", item.ParentTempID, cerr),
				},
				dependency: true,
			}
			continue
		}

		c, ok := p.Classification(item.TempID)
		if !ok {
			continue
		}
		parentID := durableIDs[item.ParentTempID]

		i, item := i, item
		g.Go(func() error {
			durableID, wrote, err := e.commitItem(ctx, item, c, parentID)
			if err != nil {
				err = &common.ItemCommitError{ItemTempID: item.TempID, Err: err}
			}
			results[i] = itemResult{durableID: durableID, wroteAny: wrote, err: err}

			if err != nil {
				e.observer.ItemFailed(item.TempID, err)
			} else {
				e.observer.ItemCommitted(item.TempID, durableID)
			}
			return nil
		})
	}

	// Workers never return errors; failures are recorded in their slots.
	_ = g.Wait()

	for i, item := range p.Items {
		r := results[i]
		switch {
		case r.dependency:
			result.Errors[item.TempID] = model.ItemError{TempID: item.TempID, Message: r.err.Error(), ByDependency: true}
			e.observer.ItemFailed(item.TempID, r.err)
		case r.err != nil:
			result.Errors[item.TempID] = model.ItemError{TempID: item.TempID, Message: r.err.Error()}
			slog.Warn("Item commit failed", "item_temp_id", item.TempID, "error", r.err)
		case r.durableID != "":
			result.CreatedIDs[item.TempID] = r.durableID
		case !r.wroteAny:
			result.Skipped = append(result.Skipped, item.TempID)
		}
	}
}

// commitItem applies one item's outputs inside a transaction. Fact candidates are written only
// when the effective outcome is FACT_EMITTED; events and field values always are; action hints
// never are. The item's durable id is its fact, else its first event.
func (e *Executor) commitItem(
	ctx context.Context,
	item model.ImportPlanItem,
	c *model.ItemClassification,
	parentID string,
) (durableID string, wroteAny bool, err error) {
	tx, err := e.store.BeginRecordTx(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committing := false
	defer func() {
		// A failed Commit has already finished the transaction.
		if err != nil && !committing {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Warn("Failed to roll back item transaction", "item_temp_id", item.TempID, "error", rbErr)
			}
		}
	}()

	out := c.InterpretationPlan
	isFact := c.EffectiveOutcome() == model.OutcomeFactEmitted

	var factID, eventID string
	var events []model.WorkEvent
	var fields []model.FieldValue

	if out.StatusEvent != nil {
		events = append(events, *out.StatusEvent)
	}

	for _, o := range out.Outputs {
		switch v := o.(type) {
		case model.FactCandidate:
			if !isFact {
				continue
			}
			id, ferr := tx.CreateFact(ctx, v.FactKind, v.Payload, parentID)
			if ferr != nil {
				return "", false, fmt.Errorf("failed to create %s fact: %w", v.FactKind, ferr)
			}
			if factID == "" {
				factID = id
			}
		case model.WorkEvent:
			events = append(events, v)
		case model.FieldValue:
			fields = append(fields, v)
		case model.ActionHint:
			// Display only.
		default:
			return "", false, fmt.Errorf("unknown output kind %q", o.Kind())
		}
	}

	for _, ev := range events {
		id, everr := tx.RecordEvent(ctx, ev.EventType, ev.Payload, parentID)
		if everr != nil {
			return "", false, fmt.Errorf("failed to record %s event: %w", ev.EventType, everr)
		}
		if eventID == "" {
			eventID = id
		}
	}

	entityID := firstNonEmpty(factID, eventID, parentID)
	for _, f := range fields {
		if ferr := tx.SetFieldValue(ctx, entityID, f.Field, f.Value); ferr != nil {
			return "", false, fmt.Errorf("failed to set field %s: %w", f.Field, ferr)
		}
	}

	committing = true
	if err = tx.Commit(); err != nil {
		return "", false, fmt.Errorf("failed to commit item: %w", err)
	}

	wroteAny = factID != "" || eventID != "" || len(fields) > 0
	return firstNonEmpty(factID, eventID), wroteAny, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
