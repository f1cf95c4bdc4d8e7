package crawler

import (
	"context"
	"log/slog"

	"github.com/nao1215/patentcrawl/internal/cache"
	"github.com/nao1215/patentcrawl/internal/model"
)

// Crawler defaults.
const (
	// DefaultBaseURL is the root of the listing service.
	DefaultBaseURL = "https://patents.justia.com"

	// DefaultConcurrency is the number of citations resolved at once.
	DefaultConcurrency = 10
)

// Crawler is one crawl session. It owns the identity pool and shares one
// transport session and one cache across all of its operations.
//
// Crawler implements model.Source; every patent it yields refers back to it.
type Crawler struct {
	fetcher *Fetcher
	parser  *Parser
	pool    Pool

	baseURL     string
	concurrency int
	logger      *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithBaseURL sets the root of the listing service.
func WithBaseURL(baseURL string) Option {
	return func(c *Crawler) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithConcurrency sets how many citations are resolved at once.
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithDedup selects a SharedPool (true) or a PassThroughPool (false).
func WithDedup(dedup bool) Option {
	return func(c *Crawler) {
		if dedup {
			c.pool = NewSharedPool()
		} else {
			c.pool = PassThroughPool{}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler that downloads through getter and caches in store.
// Identity deduplication is on unless disabled with WithDedup(false).
func New(getter Getter, store cache.Store, opts ...Option) *Crawler {
	c := &Crawler{
		baseURL:     DefaultBaseURL,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.pool == nil {
		c.pool = NewSharedPool()
	}

	c.fetcher = NewFetcher(getter, store, c.baseURL, c.logger)
	c.parser = NewParser(c.baseURL, c)
	return c
}

// FetchDetail implements model.Source.
func (c *Crawler) FetchDetail(ctx context.Context, id string) ([]byte, error) {
	return c.fetcher.Detail(ctx, id)
}

// Patent returns the patent with the given id, built from its detail page
// unless the pool already holds it.
func (c *Crawler) Patent(ctx context.Context, id string) (*model.Patent, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	return c.pool.GetOrCreate(id, func() (*model.Patent, error) {
		content, err := c.fetcher.Detail(ctx, id)
		if err != nil {
			return nil, err
		}
		return c.parser.ParseDetail(id, content)
	})
}

// Stats returns the fetch counters of this session.
func (c *Crawler) Stats() FetchStats {
	return c.fetcher.Stats()
}
