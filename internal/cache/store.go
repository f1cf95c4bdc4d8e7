package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Kind names the kind of request a cache entry answers.
type Kind string

const (
	// KindListing is a listing page. Params: assignee key, page number.
	KindListing Kind = "listing"

	// KindDetail is a patent detail page. Params: patent identifier.
	KindDetail Kind = "detail"
)

// Backend names a Store implementation.
type Backend string

const (
	// BackendFile selects FileStore.
	BackendFile Backend = "file"

	// BackendSQLite selects SQLiteStore.
	BackendSQLite Backend = "sqlite"
)

var (
	// ErrInvalidKey is returned for keys without a kind or with empty params.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown cache backend")

	// ErrCorruptEntry is returned when a stored entry fails its integrity check.
	ErrCorruptEntry = errors.New("corrupt cache entry")
)

// Key identifies one cache entry.
type Key struct {
	Kind   Kind
	Params []string
}

// ListingKey returns the key of listing page `page` of assignee.
func ListingKey(assignee string, page int) Key {
	return Key{Kind: KindListing, Params: []string{assignee, fmt.Sprint(page)}}
}

// DetailKey returns the key of the detail page of patent id.
func DetailKey(id string) Key {
	return Key{Kind: KindDetail, Params: []string{id}}
}

// String returns the canonical form of the key.
//
// Every segment is path-escaped before joining, so no param can contain the
// separator and distinct keys never share a canonical form. A listing page
// ("listing/acme/12") and a detail page ("detail/12") cannot collide.
func (k Key) String() string {
	segments := make([]string, 0, len(k.Params)+1)
	segments = append(segments, url.PathEscape(string(k.Kind)))
	for _, p := range k.Params {
		segments = append(segments, url.PathEscape(p))
	}
	return strings.Join(segments, "/")
}

// validate checks that k can be stored.
func (k Key) validate() error {
	if k.Kind == "" || len(k.Params) == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidKey, k.String())
	}
	for _, p := range k.Params {
		// "." and ".." would escape the kind directory in FileStore.
		if p == "" || p == "." || p == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, k.String())
		}
	}
	return nil
}

// Store maps keys to raw content. Implementations are safe for concurrent use.
type Store interface {
	// Get returns the content stored under key. The boolean is false on a miss.
	Get(ctx context.Context, key Key) ([]byte, bool, error)

	// Put stores content under key. Concurrent Puts of the same key are
	// last-writer-wins and never leave a partially written entry.
	Put(ctx context.Context, key Key, content []byte) error

	// Close releases resources held by the store.
	Close() error
}

// Open opens the Store implementation named by backend rooted at dir.
func Open(backend Backend, dir string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(dir), nil
	case BackendSQLite:
		return OpenSQLite(dir, DefaultOptions())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
