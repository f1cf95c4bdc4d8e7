package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/patentcrawl/internal/model"
)

// DefaultBatchSize is the number of patents processed at once.
const DefaultBatchSize = 10

// BatchProcessor runs one pipeline per patent over a bounded number of
// goroutines.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each patent.
	pipelineFactory func() *Pipeline

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of patents processed at once.
// Non-positive values keep DefaultBatchSize.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultBatchSize,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatchWithCallback processes patents concurrently and calls callback
// with each finished Job and the patent's index in patents. callback is
// called from the worker goroutine; each index is reported exactly once,
// including patents skipped because ctx ended.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	patents []*model.Patent,
	callback func(job *Job, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_patents", len(patents),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, p := range patents {
		g.Go(func() error {
			job := NewJob(p)
			if err := gctx.Err(); err != nil {
				job.Cancelled = true
				callback(job, i)
				return err
			}

			// Per-patent failures stay in the job so the other patents
			// keep running.
			_ = bp.pipelineFactory().Execute(gctx, job) //nolint:errcheck // stored in job
			callback(job, i)

			return gctx.Err()
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_patents", len(patents),
		"elapsed", time.Since(startTime),
	)

	return err
}
