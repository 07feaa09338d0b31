package classification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

// BatchSummary contains statistics about a classification run.
type BatchSummary struct {
	ByOutcome      map[model.Outcome]int
	TotalItems     int
	NeedsReview    int
	ProcessingTime time.Duration
}

// ClassifyAll classifies every item with a bounded pool of workers. Results are returned in
// item order; each worker writes only its own slots.
func (e *Engine) ClassifyAll(ctx context.Context, items []model.ImportPlanItem, hints Hints) ([]*model.ItemClassification, *BatchSummary, error) {
	startTime := time.Now()
	results := make([]*model.ItemClassification, len(items))

	workers := e.opts.Workers
	if workers > len(items) {
		workers = len(items)
	}

	workChan := make(chan int, len(items))
	for i := range items {
		workChan <- i
	}
	close(workChan)

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func(workerID int) {
			defer wg.Done()
			e.classifyWorker(ctx, workerID, workChan, items, hints, results)
		}(w)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	summary := &BatchSummary{
		ByOutcome:      make(map[model.Outcome]int),
		TotalItems:     len(items),
		ProcessingTime: time.Since(startTime),
	}
	for _, c := range results {
		summary.ByOutcome[c.Outcome]++
		if c.NeedsResolution() {
			summary.NeedsReview++
		}
	}

	slog.Info("Classified import items",
		"total_items", summary.TotalItems,
		"needs_review", summary.NeedsReview,
		"workers", workers,
		"duration", summary.ProcessingTime)

	return results, summary, nil
}

// classifyWorker classifies items whose indices arrive on the work channel.
func (e *Engine) classifyWorker(
	ctx context.Context,
	workerID int,
	workChan <-chan int,
	items []model.ImportPlanItem,
	hints Hints,
	results []*model.ItemClassification,
) {
	for idx := range workChan {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results[idx] = e.Classify(items[idx], hints)

		common.LogDebug("Worker classified item", common.Fields{
			"worker_id":    workerID,
			"item_temp_id": items[idx].TempID,
			"outcome":      results[idx].Outcome,
			"confidence":   results[idx].Confidence,
		})
	}
}
