package model

import (
	"context"
	"sync"
	"time"
)

// Source is what a Patent uses to fetch its detail page and to resolve its
// citations. It is a relation, not ownership: many patents share one Source,
// typically the crawl session that created them.
type Source interface {
	// FetchDetail returns the raw detail page of the patent with the given id.
	// It returns an error wrapping ErrDetailUnavailable when the page cannot be
	// retrieved.
	FetchDetail(ctx context.Context, id string) ([]byte, error)

	// ResolveCitations returns the patents cited by p.
	ResolveCitations(ctx context.Context, p *Patent) ([]*Patent, error)
}

// Patent is one patent record.
//
// The exported fields are set by NewPatent and are never mutated afterwards.
// The detail content starts absent (unless the patent was built from its
// detail page) and is populated at most once by Detail.
type Patent struct {
	// ID is the identifier assigned by the source service. It is the cache key
	// of the detail page and the identity pool key.
	ID string `json:"id"`

	// Title is the patent title, or "" when the markup had none.
	Title string `json:"title"`

	// Abstract is nil when the source omits it.
	Abstract *string `json:"abstract,omitempty"`

	// Assignee is nil when the source omits it.
	Assignee *string `json:"assignee,omitempty"`

	// Filed is the filing date.
	Filed time.Time `json:"filed"`

	// Issued is the issuance (or publication) date. SentinelDate when unknown.
	Issued time.Time `json:"issued"`

	// URL is the canonical detail page URL.
	URL string `json:"url"`

	source Source

	// mu guards detail. It is held for the whole first fetch so that
	// concurrent first accesses wait for one fetch instead of issuing several.
	mu     sync.Mutex
	detail []byte
}

// Fields carries the summary fields of a Patent into NewPatent.
type Fields struct {
	ID       string
	Title    string
	Abstract *string
	Assignee *string
	Filed    time.Time
	Issued   time.Time
	URL      string
}

// NewPatent creates a Patent from its summary fields.
// detail may be nil; when it is not, the patent is created with its detail
// content already populated and Detail never fetches.
func NewPatent(f Fields, source Source, detail []byte) *Patent {
	return &Patent{
		ID:       f.ID,
		Title:    f.Title,
		Abstract: f.Abstract,
		Assignee: f.Assignee,
		Filed:    f.Filed,
		Issued:   f.Issued,
		URL:      f.URL,
		source:   source,
		detail:   detail,
	}
}

// Detail returns the raw detail page, fetching it through the Source on first
// access. Once populated the content is never refreshed.
//
// A failed fetch leaves the content absent, so a later call tries again.
func (p *Patent) Detail(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.detail != nil {
		return p.detail, nil
	}
	if p.source == nil {
		return nil, ErrNoSource
	}

	content, err := p.source.FetchDetail(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.detail = content
	return p.detail, nil
}

// HasDetail reports whether the detail content has been populated.
func (p *Patent) HasDetail() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detail != nil
}

// Citations returns the patents cited by p. The list is recomputed from the
// detail content on every call; it is not stored on the entity.
func (p *Patent) Citations(ctx context.Context) ([]*Patent, error) {
	if p.source == nil {
		return nil, ErrNoSource
	}
	return p.source.ResolveCitations(ctx, p)
}

// AbstractOr returns the abstract, or def when it is absent.
func (p *Patent) AbstractOr(def string) string {
	if p.Abstract == nil {
		return def
	}
	return *p.Abstract
}

// AssigneeOr returns the assignee, or def when it is absent.
func (p *Patent) AssigneeOr(def string) string {
	if p.Assignee == nil {
		return def
	}
	return *p.Assignee
}
