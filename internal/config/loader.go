package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/patentcrawl/internal/cache"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".patentcrawl"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Defaults holds the crawl settings of the configuration file. Zero values
// leave the built-in defaults in place.
type Defaults struct {
	// BaseURL overrides the listing service root.
	BaseURL string `yaml:"baseURL,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Cookie is sent as the Cookie header.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Proxy is a SOCKS5 proxy address ("host:port").
	Proxy string `yaml:"proxy,omitempty"`

	// Timeout bounds each HTTP attempt, e.g. "45s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Retries is the number of retries after a transient failure.
	Retries *int `yaml:"retries,omitempty"`

	// Concurrency is the number of citations resolved at once.
	Concurrency int `yaml:"concurrency,omitempty"`

	// BatchSize is the number of patents processed at once by the cache
	// command.
	BatchSize int `yaml:"batchSize,omitempty"`

	// Dedup toggles identity deduplication of patents.
	Dedup *bool `yaml:"dedup,omitempty"`

	// CacheDir is the page cache directory. A leading "~/" is expanded.
	CacheDir string `yaml:"cacheDir,omitempty"`

	// CacheBackend is "file" or "sqlite".
	CacheBackend string `yaml:"cacheBackend,omitempty"`
}

// File represents the structure of the .patentcrawl configuration file.
type File struct {
	// Defaults contains settings applied to every run.
	Defaults Defaults `yaml:"defaults,omitempty"`

	// Aliases maps friendly names to assignee keys, e.g.
	// "meta: meta-platforms-inc".
	Aliases map[string]string `yaml:"aliases,omitempty"`
}

// ResolveAssignee returns the assignee key aliased by name, or name itself.
func (f *File) ResolveAssignee(name string) string {
	if key, ok := f.Aliases[name]; ok && key != "" {
		return key
	}
	return name
}

// Apply copies the non-zero settings of the file onto cfg.
func (f *File) Apply(cfg *Config) {
	d := f.Defaults

	if d.BaseURL != "" {
		cfg.BaseURL = d.BaseURL
	}
	if d.UserAgent != "" {
		cfg.UserAgent = d.UserAgent
	}
	if len(d.Headers) > 0 || d.Cookie != "" {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		maps.Copy(cfg.Headers, d.Headers)
		if d.Cookie != "" {
			cfg.Headers["Cookie"] = d.Cookie
		}
	}
	if d.Proxy != "" {
		cfg.ProxyAddress = d.Proxy
	}
	if d.Timeout != 0 {
		cfg.Timeout = d.Timeout
	}
	if d.Retries != nil {
		cfg.RetryMax = *d.Retries
	}
	if d.Concurrency != 0 {
		cfg.Concurrency = d.Concurrency
	}
	if d.BatchSize != 0 {
		cfg.BatchSize = d.BatchSize
	}
	if d.Dedup != nil {
		cfg.Dedup = *d.Dedup
	}
	if d.CacheDir != "" {
		cfg.CacheDir = expandHome(d.CacheDir)
	}
	if d.CacheBackend != "" {
		cfg.CacheBackend = cache.Backend(d.CacheBackend)
	}

	cfg.File = f
}

// LoadConfigFile loads the configuration file at path.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if cf.Aliases == nil {
		cf.Aliases = make(map[string]string)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .patentcrawl in the current directory
// 3. Look for .patentcrawl in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
