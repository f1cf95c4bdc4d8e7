package main

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <assignee>...",
		Short: "Summarize how the patents of an assignee cite prior patents",
		Long: `Analyze resolves the citations of every patent of an assignee filed in or
after --filed-since and prints how often each cited patent is cited.

The first cite rate is the share of cited patents that only one patent of
the assignee cites.

Examples:
  patentcrawl analyze meta openai amazon
  patentcrawl analyze --top 20 meta-platforms-inc`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().Int("filed-since", defaultWarmSince,
		"Analyze only patents filed in or after this year (0 analyzes all)")
	cmd.Flags().Int("top", 10,
		"Number of most cited patents to print")
	addCrawlFlags(cmd)

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.FiledSince, err = cmd.Flags().GetInt("filed-since"); err != nil {
		return err
	}
	top, err := cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}

	s, err := openSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext(cmd.Context(), s.logger)
	defer cancel()

	out := cmd.OutOrStdout()
	for _, name := range args {
		assignee := cfg.ResolveAssignee(name)
		listing, err := s.collectListing(ctx, assignee, true)
		if err != nil {
			return err
		}

		counts := listing.CitedTimes()
		fmt.Fprintf(out, "%s: %d patents cite %d distinct patents\n", assignee, listing.Len(), len(counts))
		fmt.Fprintf(out, "First cite rate for %s: %.4f\n", assignee, listing.FirstCiteRate())

		for _, c := range mostCited(counts, top) {
			fmt.Fprintf(out, "  %-12s cited %d times\n", c.id, c.n)
		}
	}
	return nil
}

type citedCount struct {
	id string
	n  int
}

// mostCited returns the n most cited ids, most cited first and ties by id.
func mostCited(counts map[string]int, n int) []citedCount {
	out := make([]citedCount, 0, len(counts))
	for id, c := range counts {
		out = append(out, citedCount{id: id, n: c})
	}
	slices.SortFunc(out, func(a, b citedCount) int {
		if c := cmp.Compare(b.n, a.n); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
