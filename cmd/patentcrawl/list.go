package main

import (
	"context"
	"fmt"
	"iter"

	"github.com/spf13/cobra"

	"github.com/nao1215/patentcrawl/internal/crawler"
	"github.com/nao1215/patentcrawl/internal/model"
	"github.com/nao1215/patentcrawl/internal/report"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <assignee>...",
		Short: "List the patents of one or more assignees",
		Long: `List walks the paginated listing of each assignee and prints its patents
in listing order.

The assignee is the key used by the listing service in its URLs, e.g.
"meta-platforms-inc" for https://patents.justia.com/assignee/meta-platforms-inc,
or an alias defined in the configuration file.

Examples:
  # List all patents of an assignee
  patentcrawl list meta-platforms-inc

  # Patents filed in 2020 or later, with the ids of the patents they cite
  patentcrawl list --filed-since 2020 --citations meta

  # First 20 patents as JSON
  patentcrawl list --limit 20 --json -o meta.json meta`,
		Args: cobra.MinimumNArgs(1),
		RunE: runListCmd,
	}

	cmd.Flags().Int("filed-since", 0,
		"Keep only patents filed in or after this year (0 keeps all)")
	cmd.Flags().IntP("limit", "l", 0,
		"Stop after this many patents per assignee (0 means no limit)")
	cmd.Flags().Bool("citations", false,
		"Resolve and print the patents cited by each patent")
	addReportFlags(cmd)
	addCrawlFlags(cmd)

	return cmd
}

// runListCmd executes the list command.
func runListCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}
	if cfg.FiledSince, err = cmd.Flags().GetInt("filed-since"); err != nil {
		return err
	}
	if cfg.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if cfg.Citations, err = cmd.Flags().GetBool("citations"); err != nil {
		return err
	}

	s, err := openSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext(cmd.Context(), s.logger)
	defer cancel()

	output, closeOutput, err := openOutput(cfg.ReportFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput()

	writer := newReportWriter(cfg, output)
	for _, name := range args {
		listing, err := s.collectListing(ctx, cfg.ResolveAssignee(name), cfg.Citations)
		if err != nil {
			return err
		}
		if _, err := writer.Write(listing); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}

// listPatents returns the listing of assignee, filtered by the configured
// filing year.
func (s *session) listPatents(ctx context.Context, assignee string) iter.Seq2[*model.Patent, error] {
	seq := s.crawler.ListPatents(ctx, assignee)
	if since := s.cfg.FiledSinceTime(); !since.IsZero() {
		seq = crawler.FiledSince(seq, since)
	}
	return seq
}

// collectListing gathers the patents of assignee into a report listing,
// honoring the configured limit.
func (s *session) collectListing(ctx context.Context, assignee string, withCitations bool) (*report.Listing, error) {
	listing := report.NewListing(assignee, s.cfg.BaseURL, withCitations)

	for p, err := range s.listPatents(ctx, assignee) {
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", assignee, err)
		}

		var cited []*model.Patent
		if withCitations {
			cited, err = p.Citations(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve citations of %s: %w", p.ID, err)
			}
		}
		listing.Add(p, cited)

		if s.cfg.Limit > 0 && listing.Len() >= s.cfg.Limit {
			break
		}
	}

	s.logger.Info("listing collected", "assignee", assignee, "patents", listing.Len())
	return listing, nil
}
