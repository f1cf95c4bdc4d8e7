package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/patentcrawl/internal/report"
)

// NewCitationsCmd creates the citations command.
func NewCitationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "citations <patent-id>",
		Short: "List the patents cited by one patent",
		Long: `Citations reads the detail page of a patent and lists every patent it
cites, in the order the detail page names them. Cited patents whose own
detail page is unavailable are left out.

Examples:
  patentcrawl citations 12039383
  patentcrawl citations --json 12039383`,
		Args: cobra.ExactArgs(1),
		RunE: runCitationsCmd,
	}

	addReportFlags(cmd)
	addCrawlFlags(cmd)

	return cmd
}

// runCitationsCmd executes the citations command.
func runCitationsCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return err
	}

	s, err := openSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext(cmd.Context(), s.logger)
	defer cancel()

	p, err := s.crawler.Patent(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to read patent %s: %w", args[0], err)
	}
	cited, err := p.Citations(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve citations of %s: %w", p.ID, err)
	}

	listing := report.NewListing("citations of "+p.ID, cfg.BaseURL, false)
	for _, c := range cited {
		listing.Add(c, nil)
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput()

	if _, err := newReportWriter(cfg, output).Write(listing); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
