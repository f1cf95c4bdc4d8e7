package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/nao1215/patentcrawl/internal/cache"
	"github.com/nao1215/patentcrawl/internal/model"
	"github.com/nao1215/patentcrawl/internal/transport"
)

// Getter performs HTTP GETs. *transport.Session implements it.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*transport.Response, error)
}

// Fetcher retrieves listing and detail pages, cache first.
//
// Every downloaded page is written to the cache before it is returned, so a
// page is downloaded at most once per cache. Concurrent misses of the same key
// share one download.
type Fetcher struct {
	getter  Getter
	store   cache.Store
	baseURL string
	logger  *slog.Logger

	group singleflight.Group

	cacheHits atomic.Int64
	downloads atomic.Int64
}

// FetchStats contains fetch counters.
type FetchStats struct {
	// CacheHits is the number of pages served from the cache.
	CacheHits int64

	// Downloads is the number of pages retrieved over the network.
	Downloads int64
}

// NewFetcher creates a Fetcher for the service rooted at baseURL.
func NewFetcher(getter Getter, store cache.Store, baseURL string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		getter:  getter,
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// ListingURL returns the URL of a listing page.
func (f *Fetcher) ListingURL(assignee string, page int) string {
	return f.baseURL + "/assignee/" + url.PathEscape(assignee) + "?page=" + strconv.Itoa(page)
}

// DetailURL returns the URL of a detail page.
func (f *Fetcher) DetailURL(id string) string {
	return f.baseURL + patentPathPrefix + url.PathEscape(id)
}

// Listing returns listing page number page of assignee.
// Any failure to obtain a 2xx response is a *FetchError.
func (f *Fetcher) Listing(ctx context.Context, assignee string, page int) ([]byte, error) {
	if assignee == "" {
		return nil, ErrEmptyAssignee
	}

	rawURL := f.ListingURL(assignee, page)
	return f.fetch(ctx, cache.ListingKey(assignee, page), func(ctx context.Context) ([]byte, error) {
		resp, err := f.getter.Get(ctx, rawURL)
		if err != nil {
			return nil, &FetchError{Kind: cache.KindListing, URL: rawURL, Err: err}
		}
		if !resp.OK() {
			return nil, &FetchError{Kind: cache.KindListing, URL: rawURL, StatusCode: resp.StatusCode}
		}
		return resp.Body, nil
	})
}

// Detail returns the detail page of the patent with the given id.
// A non-2xx response or a transport failure is reported as an error wrapping
// model.ErrDetailUnavailable. Context cancellation is returned as is.
func (f *Fetcher) Detail(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	rawURL := f.DetailURL(id)
	return f.fetch(ctx, cache.DetailKey(id), func(ctx context.Context) ([]byte, error) {
		resp, err := f.getter.Get(ctx, rawURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: %s: %w", model.ErrDetailUnavailable, rawURL, err)
		}
		if !resp.OK() {
			return nil, fmt.Errorf("%w: %s returned status %d", model.ErrDetailUnavailable, rawURL, resp.StatusCode)
		}
		return resp.Body, nil
	})
}

// Stats returns the fetch counters.
func (f *Fetcher) Stats() FetchStats {
	return FetchStats{
		CacheHits: f.cacheHits.Load(),
		Downloads: f.downloads.Load(),
	}
}

// fetch returns the cached content of key, or downloads and caches it.
//
// A shared download runs under the context of the caller that started it.
// When that caller is cancelled, callers that joined the flight with a live
// context start over instead of inheriting the cancellation.
func (f *Fetcher) fetch(ctx context.Context, key cache.Key, download func(context.Context) ([]byte, error)) ([]byte, error) {
	for {
		if content, ok, err := f.lookup(ctx, key); err != nil {
			return nil, err
		} else if ok {
			return content, nil
		}

		v, err, _ := f.group.Do(key.String(), func() (any, error) {
			// A flight that finished between the lookup and Do has filled the cache.
			if content, ok, err := f.lookup(ctx, key); err != nil {
				return nil, err
			} else if ok {
				return content, nil
			}

			content, err := download(ctx)
			if err != nil {
				return nil, err
			}
			f.downloads.Add(1)

			if err := f.store.Put(ctx, key, content); err != nil {
				return nil, fmt.Errorf("failed to cache %s: %w", key, err)
			}
			f.logger.Debug("page cached", "key", key.String(), "bytes", len(content))
			return content, nil
		})
		if err != nil {
			if isContextError(err) && ctx.Err() == nil {
				f.logger.Debug("shared download cancelled, fetching again", "key", key.String())
				continue
			}
			return nil, err
		}
		return v.([]byte), nil //nolint:forcetypeassert // the flight only returns []byte
	}
}

// isContextError reports whether err comes from a cancelled or expired context.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// lookup reads key from the cache. A corrupt entry counts as a miss so that
// the page is downloaded again and the entry replaced.
func (f *Fetcher) lookup(ctx context.Context, key cache.Key) ([]byte, bool, error) {
	content, ok, err := f.store.Get(ctx, key)
	if errors.Is(err, cache.ErrCorruptEntry) {
		f.logger.Warn("discarding corrupt cache entry", "key", key.String())
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	if ok {
		f.cacheHits.Add(1)
	}
	return content, ok, nil
}
