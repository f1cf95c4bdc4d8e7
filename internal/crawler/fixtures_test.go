package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/patentcrawl/internal/cache"
	"github.com/nao1215/patentcrawl/internal/model"
	"github.com/nao1215/patentcrawl/internal/transport"
)

// record describes one listing record of a fixture page.
// Empty fields are left out of the markup.
type record struct {
	id       string
	title    string
	abstract string
	filed    string
	issued   string
	assignee string
}

// listingHTML renders a listing page with the given records.
func listingHTML(records []record, hasNext bool) string {
	var sb strings.Builder
	sb.WriteString(`<html><head><title>Patents</title></head><body><ul class="list-no-style">`)
	for _, r := range records {
		sb.WriteString(`<li class="has-padding-content-block-30 -zb">`)
		fmt.Fprintf(&sb, `<div class="head"><a href="/patent/%s">%s</a></div>`, r.id, r.title)
		sb.WriteString(`<div class="meta">`)
		if r.abstract != "" {
			fmt.Fprintf(&sb, `<div class="abstract"><strong>Abstract:</strong> %s</div>`, r.abstract)
		}
		if r.filed != "" {
			fmt.Fprintf(&sb, `<div class="date-filed"><strong>Filed:</strong> %s</div>`, r.filed)
		}
		if r.issued != "" {
			fmt.Fprintf(&sb, `<div class="date-issued"><strong>Date of Patent:</strong> %s</div>`, r.issued)
		}
		if r.assignee != "" {
			fmt.Fprintf(&sb, `<div class="assignees"><strong>Assignee:</strong> %s</div>`, r.assignee)
		}
		sb.WriteString(`</div></li>`)
	}
	sb.WriteString(`</ul><nav>`)
	sb.WriteString(`<span class="pagination page"><a href="?page=1">previous</a></span>`)
	if hasNext {
		sb.WriteString(`<span class="pagination page"><a href="?page=2">next</a></span>`)
	}
	sb.WriteString(`</nav></body></html>`)
	return sb.String()
}

// detail describes a fixture detail page. Empty fields are left out.
type detail struct {
	title       string
	abstract    string
	filed       string
	issued      string
	published   string
	assignee    string
	citations   []string
	noCitations bool
}

// detailHTML renders a detail page.
func detailHTML(d detail) string {
	var sb strings.Builder
	sb.WriteString(`<html><body>`)
	if d.title != "" {
		fmt.Fprintf(&sb, `<h1 class="heading-1">%s</h1>`, d.title)
	}
	if d.abstract != "" {
		fmt.Fprintf(&sb, `<div id="abstract"><p>%s</p></div>`, d.abstract)
	}
	sb.WriteString(`<table class="table-history">`)
	if d.filed != "" {
		fmt.Fprintf(&sb, `<tr><td>Filed:</td><td>%s</td></tr>`, d.filed)
	}
	if d.issued != "" {
		fmt.Fprintf(&sb, `<tr><td>Date of Patent:</td><td>%s</td></tr>`, d.issued)
	}
	if d.published != "" {
		fmt.Fprintf(&sb, `<tr><td>Publication Date:</td><td>%s</td></tr>`, d.published)
	}
	if d.assignee != "" {
		fmt.Fprintf(&sb, `<tr><td>Assignee:</td><td>%s</td></tr>`, d.assignee)
	}
	sb.WriteString(`</table>`)
	if !d.noCitations {
		sb.WriteString(`<div id="citations"><h2>Patent History</h2><ul>`)
		for _, id := range d.citations {
			fmt.Fprintf(&sb, `<li><a href="/patent/%s">Patent %s</a></li>`, id, id)
		}
		sb.WriteString(`</ul></div>`)
	}
	sb.WriteString(`</body></html>`)
	return sb.String()
}

// fakeSite serves fixture pages keyed by path plus query and counts requests.
type fakeSite struct {
	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	hits   map[string]int

	delay    time.Duration
	total    atomic.Int64
	inFlight atomic.Int64
	maxIn    atomic.Int64
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		pages:  make(map[string]string),
		status: make(map[string]int),
		hits:   make(map[string]int),
	}
}

// page registers body under target, e.g. "/assignee/acme?page=1".
func (s *fakeSite) page(target, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[target] = body
}

// fail makes target answer with status.
func (s *fakeSite) fail(target string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[target] = status
}

// hitsFor returns how often target was requested.
func (s *fakeSite) hitsFor(target string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[target]
}

func (s *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.total.Add(1)
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		cur := s.maxIn.Load()
		if n <= cur || s.maxIn.CompareAndSwap(cur, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	target := r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	s.mu.Lock()
	s.hits[target]++
	body, ok := s.pages[target]
	status, failed := s.status[target]
	s.mu.Unlock()

	switch {
	case failed:
		w.WriteHeader(status)
	case !ok:
		http.NotFound(w, r)
	default:
		_, _ = io.WriteString(w, body)
	}
}

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSession returns a session without retry.
func newTestSession(t *testing.T) *transport.Session {
	t.Helper()

	session, err := transport.NewSession(
		transport.WithRetry(0, 0, 0),
		transport.WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session
}

// newTestServer starts site and returns its base URL.
func newTestServer(t *testing.T, site *fakeSite) string {
	t.Helper()

	server := httptest.NewServer(site)
	t.Cleanup(server.Close)
	return server.URL
}

// newTestCrawler starts site and returns a crawler against it with a fresh
// file cache.
func newTestCrawler(t *testing.T, site *fakeSite, opts ...Option) (*Crawler, cache.Store) {
	t.Helper()

	store := cache.NewFileStore(t.TempDir())
	return newCrawlerWithStore(t, newTestServer(t, site), store, opts...), store
}

// newCrawlerWithStore returns a crawler against baseURL using store.
func newCrawlerWithStore(t *testing.T, baseURL string, store cache.Store, opts ...Option) *Crawler {
	t.Helper()

	base := []Option{
		WithBaseURL(baseURL),
		WithLogger(discardLogger()),
	}
	return New(newTestSession(t), store, append(base, opts...)...)
}

// collect drains seq, failing the test on an error.
func collect(t *testing.T, seq iter.Seq2[*model.Patent, error]) []*model.Patent {
	t.Helper()

	var out []*model.Patent
	for v, err := range seq {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out = append(out, v)
	}
	return out
}

// failingStore is a cache.Store whose Put always fails.
type failingStore struct {
	cache.Store
}

func (failingStore) Put(context.Context, cache.Key, []byte) error {
	return errDiskFull
}

var errDiskFull = errors.New("disk full")
