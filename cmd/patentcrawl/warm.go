package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/patentcrawl/internal/config"
	"github.com/nao1215/patentcrawl/internal/model"
	"github.com/nao1215/patentcrawl/internal/pipeline"
)

// defaultWarmSince is the first filing year warmed by the cache command.
const defaultWarmSince = 2020

// NewCacheCmd creates the cache command.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache <assignee>...",
		Short: "Download listing, detail and citation pages into the page cache",
		Long: `Cache walks the listing of each assignee and, for every patent filed in
or after --filed-since, downloads its detail page and the detail pages of
all patents it cites. Later list and citations runs over the same patents
are then served from the cache.

Patents are processed --batch at a time.

Examples:
  patentcrawl cache meta openai
  patentcrawl cache --filed-since 2022 --batch 4 amazon-technologies-inc`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCacheCmd,
	}

	cmd.Flags().Int("filed-since", defaultWarmSince,
		"Warm only patents filed in or after this year (0 warms all)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of patents processed at once")
	addCrawlFlags(cmd)

	return cmd
}

// runCacheCmd executes the cache command.
func runCacheCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.FiledSince, err = cmd.Flags().GetInt("filed-since"); err != nil {
		return err
	}
	if err := intFlag(cmd, "batch", &cfg.BatchSize); err != nil {
		return err
	}

	s, err := openSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext(cmd.Context(), s.logger)
	defer cancel()

	for _, name := range args {
		if err := s.warm(ctx, cmd.OutOrStdout(), cfg.ResolveAssignee(name)); err != nil {
			return err
		}
	}
	return nil
}

// warm caches every page reachable from the filtered listing of assignee.
func (s *session) warm(ctx context.Context, out io.Writer, assignee string) error {
	patents := make([]*model.Patent, 0)
	for p, err := range s.listPatents(ctx, assignee) {
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", assignee, err)
		}
		patents = append(patents, p)
	}

	fmt.Fprintf(out, "Caching %d patents of %s (batch: %d)...\n", len(patents), assignee, s.cfg.BatchSize)
	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			p := pipeline.New(pipeline.WithLogger(s.logger))
			p.AddSteps(
				pipeline.NewDetailStep(pipeline.WithDetailLogger(s.logger)),
				pipeline.NewCitationStep(),
			)
			return p
		},
		pipeline.WithConcurrency(s.cfg.BatchSize),
		pipeline.WithBatchLogger(s.logger),
	)

	// A failure other than a missing detail page stops the batch.
	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu     sync.Mutex
		done   int
		failed int
		fatal  error
	)
	err := bp.ProcessBatchWithCallback(batchCtx, patents, func(job *pipeline.Job, _ int) {
		mu.Lock()
		defer mu.Unlock()

		done++
		if job.Failed() {
			failed++
			if job.Err != nil {
				fmt.Fprintf(out, "[%d/%d] %s: failed: %v\n", done, len(patents), job.Patent.ID, job.Err)
				if fatal == nil && !errors.Is(job.Err, model.ErrDetailUnavailable) && !errors.Is(job.Err, context.Canceled) {
					fatal = fmt.Errorf("failed to cache %s: %w", job.Patent.ID, job.Err)
					cancel()
				}
			}
			return
		}
		fmt.Fprintf(out, "[%d/%d] %s: %d citations\n", done, len(patents), job.Patent.ID, len(job.Citations))
	})

	fmt.Fprintf(out, "Cached %s: %d patents, %d failed, in %s\n",
		assignee, len(patents)-failed, failed, time.Since(startTime).Round(time.Millisecond))
	if fatal != nil {
		return fatal
	}
	return err
}
