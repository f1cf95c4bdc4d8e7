package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/patentcrawl/internal/cache"
	"github.com/nao1215/patentcrawl/internal/config"
	"github.com/nao1215/patentcrawl/internal/crawler"
	applog "github.com/nao1215/patentcrawl/internal/log"
	"github.com/nao1215/patentcrawl/internal/report"
	"github.com/nao1215/patentcrawl/internal/transport"
)

// addCrawlFlags registers the flags shared by every command that crawls.
func addCrawlFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("config", "c", "",
		"Configuration file path (default: .patentcrawl in current or home directory)")
	f.String("base-url", config.DefaultBaseURL,
		"Root URL of the patent listing service")
	f.String("cache-dir", "",
		"Page cache directory (default: XDG cache directory)")
	f.String("cache-backend", string(cache.BackendFile),
		"Page cache backend: file or sqlite")
	f.Int("concurrency", config.DefaultConcurrency,
		"Number of citations resolved at once")
	f.Bool("no-dedup", false,
		"Build a separate entity for every record, even with equal patent ids")
	f.DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP attempt")
	f.Int("retries", config.DefaultRetryMax,
		"Retries after a transient failure")
	f.String("proxy", "",
		"SOCKS5 proxy address (host:port)")
}

// addReportFlags registers the output format flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

func getLogJSONFlag(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool("log-json")
		if err != nil {
			return false
		}
	}
	return v
}

// buildConfig creates a Config from defaults, the configuration file and the
// shared crawl flags, in that order of precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicitly named file must exist; the implicit search may find
	// nothing.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if err := applyCrawlFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyCrawlFlags copies the shared crawl flags the user set onto cfg.
// Flags left at their defaults do not override the configuration file.
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if err := stringFlag(cmd, "base-url", &cfg.BaseURL); err != nil {
		return err
	}
	if err := stringFlag(cmd, "cache-dir", &cfg.CacheDir); err != nil {
		return err
	}
	if err := stringFlag(cmd, "proxy", &cfg.ProxyAddress); err != nil {
		return err
	}
	if flags.Changed("cache-backend") {
		backend, err := flags.GetString("cache-backend")
		if err != nil {
			return err
		}
		cfg.CacheBackend = cache.Backend(backend)
	}
	if err := intFlag(cmd, "concurrency", &cfg.Concurrency); err != nil {
		return err
	}
	if err := intFlag(cmd, "retries", &cfg.RetryMax); err != nil {
		return err
	}
	if flags.Changed("timeout") {
		timeout, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = timeout
	}
	if flags.Changed("no-dedup") {
		noDedup, err := flags.GetBool("no-dedup")
		if err != nil {
			return err
		}
		cfg.Dedup = !noDedup
	}
	return nil
}

// applyReportFlags copies the output format flags onto cfg.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	return nil
}

func stringFlag(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func intFlag(cmd *cobra.Command, name string, dst *int) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// setupLogger creates the redacting structured logger.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	return applog.NewLogger(cmd.ErrOrStderr(), verbose, getLogJSONFlag(cmd))
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// session bundles what a command needs to crawl.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	crawler *crawler.Crawler
	store   cache.Store
	started time.Time
}

// openSession validates cfg and opens the page cache, the transport
// session and the crawler.
func openSession(cmd *cobra.Command, cfg *config.Config) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	store, err := cache.Open(cfg.CacheBackend, cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open page cache: %w", err)
	}

	httpSession, err := transport.NewSession(
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithHeaders(cfg.Headers),
		transport.WithRetry(cfg.RetryMax, cfg.RetryWaitMin, cfg.RetryWaitMax),
		transport.WithTimeout(cfg.Timeout),
		transport.WithMaxBodySize(cfg.MaxBodySize),
		transport.WithProxy(cfg.ProxyAddress),
		transport.WithLogger(logger),
	)
	if err != nil {
		_ = store.Close() //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("failed to create HTTP session: %w", err)
	}

	logger.Debug("crawl session configured",
		"base_url", cfg.BaseURL,
		"cache_backend", cfg.CacheBackend,
		"cache_dir", cfg.CacheDir,
		"headers", cfg.Headers,
		"proxy", cfg.ProxyAddress,
	)

	c := crawler.New(httpSession, store,
		crawler.WithBaseURL(cfg.BaseURL),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithDedup(cfg.Dedup),
		crawler.WithLogger(logger),
	)

	return &session{
		cfg:     cfg,
		logger:  logger,
		crawler: c,
		store:   store,
		started: time.Now(),
	}, nil
}

// Close logs the fetch statistics and closes the page cache.
func (s *session) Close() error {
	stats := s.crawler.Stats()
	s.logger.Info("crawl finished",
		"cache_hits", stats.CacheHits,
		"downloads", stats.Downloads,
		"elapsed", time.Since(s.started).Round(time.Millisecond),
	)
	return s.store.Close()
}

// openOutput returns the report destination: the named file, or stdout when
// path is empty. The returned close function must be called.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-chosen path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter returns the writer for the requested format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		opts := []report.SimpleWriterOption{report.WithVerbose(cfg.Verbose)}
		if cfg.ReportFile != "" {
			opts = append(opts, report.WithColor(false))
		}
		return report.NewSimpleWriter(output, opts...)
	}
}
