package export

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/notekiln/notekiln/internal/logging"
	"github.com/notekiln/notekiln/internal/notebook"
	"github.com/notekiln/notekiln/internal/validation"
)

// Mode selects how a batch is executed.
type Mode int

const (
	// ModeSequential runs exports one at a time in discovery order.
	ModeSequential Mode = iota
	// ModeParallel dispatches exports to a fixed-size worker pool; outcomes
	// arrive in completion order.
	ModeParallel
)

// ProgressFunc is invoked after every individual outcome with the number of
// completed items, the total, and the item's filename. In parallel mode it
// may be invoked concurrently from multiple workers; callers needing
// ordering or synchronization must provide it themselves.
type ProgressFunc func(completed, total int, name string)

// Exporter converts one notebook. Satisfied by *Executor.
type Exporter interface {
	Export(ctx context.Context, nb notebook.Notebook, outputRoot string) Outcome
}

// Orchestrator drives a batch of exports and collects one outcome per item.
// A batch with zero succeeding items is reported, not treated as an error.
type Orchestrator struct {
	exporter   Exporter
	mode       Mode
	maxWorkers int
	log        logging.Logger
}

// NewOrchestrator creates an Orchestrator. maxWorkers is clamped into the
// safe range regardless of caller input; it is ignored in sequential mode.
func NewOrchestrator(exporter Exporter, mode Mode, maxWorkers int, log logging.Logger) *Orchestrator {
	return &Orchestrator{
		exporter:   exporter,
		mode:       mode,
		maxWorkers: validation.ValidateMaxWorkers(maxWorkers),
		log:        log.WithComponent("orchestrator"),
	}
}

// RunBatch exports every item and returns once all have reported. Per-item
// failures are recovered into outcomes and never abort the batch.
func (o *Orchestrator) RunBatch(ctx context.Context, items []notebook.Notebook, outputRoot string, onProgress ProgressFunc) *BatchResult {
	batch := NewBatchResult()
	if len(items) == 0 {
		return batch
	}

	if o.mode == ModeSequential {
		o.runSequential(ctx, items, outputRoot, onProgress, batch)
	} else {
		o.runParallel(ctx, items, outputRoot, onProgress, batch)
	}

	if failed := batch.FailedCount(); failed > 0 {
		o.log.Warn(ctx, nil, "batch completed with failures",
			"total", batch.Total(),
			"succeeded", batch.SucceededCount(),
			"failed", failed,
		)
		for _, f := range batch.Failures() {
			o.log.Debug(ctx, "export failed",
				"notebook", filepath.Base(f.SourcePath()),
				"detail", f.FailureDetail(),
			)
		}
	}

	return batch
}

func (o *Orchestrator) runSequential(ctx context.Context, items []notebook.Notebook, outputRoot string, onProgress ProgressFunc, batch *BatchResult) {
	total := len(items)
	for i, nb := range items {
		outcome := o.exporter.Export(ctx, nb, outputRoot)
		batch.Add(outcome)
		if onProgress != nil {
			onProgress(i+1, total, filepath.Base(nb.Path()))
		}
	}
}

func (o *Orchestrator) runParallel(ctx context.Context, items []notebook.Notebook, outputRoot string, onProgress ProgressFunc, batch *BatchResult) {
	total := len(items)
	jobs := make(chan notebook.Notebook)
	results := make(chan Outcome)

	var completed int64
	var wg sync.WaitGroup
	for i := 0; i < o.maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for nb := range jobs {
				outcome := o.exporter.Export(ctx, nb, outputRoot)
				if onProgress != nil {
					done := atomic.AddInt64(&completed, 1)
					onProgress(int(done), total, filepath.Base(nb.Path()))
				}
				results <- outcome
			}
		}()
	}

	go func() {
		for _, nb := range items {
			jobs <- nb
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	// Single collector; outcomes arrive in completion order, exactly one
	// per item.
	for outcome := range results {
		batch.Add(outcome)
	}
}
