package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for patentcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patentcrawl",
		Short: "Crawl patent listings and citations with a local page cache",
		Long: `patentcrawl walks the paginated patent listing of an assignee, reads the
detail page of each patent and resolves the patents it cites.

Every page is stored in a local cache (a directory of files or a SQLite
database) before it is parsed, so a repeated crawl issues no requests for
pages it has already seen.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewCitationsCmd())
	cmd.AddCommand(NewCacheCmd())
	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
