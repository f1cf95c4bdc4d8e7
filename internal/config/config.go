package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/patentcrawl/internal/cache"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "patentcrawl"

	// DefaultBaseURL is the root of the public patent listing service.
	DefaultBaseURL = "https://patents.justia.com"

	// DefaultUserAgent is a desktop Firefox User-Agent. The listing service
	// serves an error page to clients it does not recognize as browsers.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:134.0) Gecko/20100101 Firefox/134.0"

	// DefaultTimeout bounds each HTTP attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultRetryMax is the number of retries after a transient failure.
	DefaultRetryMax = 5

	// DefaultRetryWaitMin is the first backoff delay.
	DefaultRetryWaitMin = 500 * time.Millisecond

	// DefaultRetryWaitMax caps the backoff delay.
	DefaultRetryWaitMax = 10 * time.Second

	// DefaultConcurrency is the number of citations resolved at once for one
	// patent.
	DefaultConcurrency = 10

	// DefaultBatchSize is the number of patents processed at once when
	// warming the cache.
	DefaultBatchSize = 10

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

// Config holds all configuration options for patentcrawl.
// It is populated from defaults, the config file and CLI flags, and passed
// through the application rather than kept in global state.
type Config struct {
	// BaseURL is the root of the listing service, without trailing slash.
	BaseURL string

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// Headers are extra HTTP headers sent with every request, e.g. a Cookie.
	Headers map[string]string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	// Empty means a direct connection.
	ProxyAddress string

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration

	// RetryMax is the number of retries after a transient failure.
	RetryMax int

	// RetryWaitMin and RetryWaitMax bound the exponential backoff.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Concurrency is the number of citations resolved at once.
	Concurrency int

	// BatchSize is the number of patents processed at once by the cache
	// command.
	BatchSize int

	// Dedup makes equal patent ids share one entity within a run.
	Dedup bool

	// CacheBackend selects the page cache implementation.
	CacheBackend cache.Backend

	// CacheDir is the directory holding the page cache.
	CacheDir string

	// MaxBodySize is the maximum response body size in bytes.
	// 0 means DefaultMaxBodySize.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .patentcrawl is searched in the current and home directories.
	ConfigFilePath string

	// File is the loaded configuration file, or an empty File.
	File *File

	// FiledSince keeps only patents filed in or after this year.
	// 0 disables the filter.
	FiledSince int

	// Limit stops a listing after this many patents. 0 means no limit.
	Limit int

	// Citations makes reports include resolved citations.
	Citations bool

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output path; empty means stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		UserAgent:    DefaultUserAgent,
		Headers:      make(map[string]string),
		Timeout:      DefaultTimeout,
		RetryMax:     DefaultRetryMax,
		RetryWaitMin: DefaultRetryWaitMin,
		RetryWaitMax: DefaultRetryWaitMax,
		Concurrency:  DefaultConcurrency,
		BatchSize:    DefaultBatchSize,
		Dedup:        true,
		CacheBackend: cache.BackendFile,
		CacheDir:     XDGCacheDir(),
		MaxBodySize:  DefaultMaxBodySize,
		File:         &File{},
	}
}

// XDGConfigDir returns the XDG config directory for patentcrawl.
// On Linux: ~/.config/patentcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for patentcrawl, the default
// home of the page cache.
// On Linux: ~/.cache/patentcrawl
// On macOS: ~/Library/Caches/patentcrawl
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// FiledSinceTime returns the start of the FiledSince year, or the zero time
// when the filter is disabled.
func (c *Config) FiledSinceTime() time.Time {
	if c.FiledSince == 0 {
		return time.Time{}
	}
	return time.Date(c.FiledSince, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// ResolveAssignee maps a configured alias to its assignee key. Names that are
// not aliases are returned unchanged.
func (c *Config) ResolveAssignee(name string) string {
	if c.File == nil {
		return name
	}
	return c.File.ResolveAssignee(name)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RetryMax < 0 {
		return ErrInvalidRetryMax
	}

	if c.RetryWaitMin <= 0 || c.RetryWaitMax <= 0 || c.RetryWaitMax < c.RetryWaitMin {
		return ErrInvalidRetryWait
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	switch c.CacheBackend {
	case cache.BackendFile, cache.BackendSQLite:
	default:
		return ErrUnknownCacheBackend
	}

	if c.CacheDir == "" {
		return ErrEmptyCacheDir
	}

	if c.FiledSince < 0 {
		return ErrInvalidFiledSince
	}

	if c.Limit < 0 {
		return ErrInvalidLimit
	}

	return nil
}
