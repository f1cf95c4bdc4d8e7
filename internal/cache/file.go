package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// entryExt is the file extension of a cached page.
const entryExt = ".html"

// FileStore stores each entry as a file under dir.
//
// Layout: <dir>/<kind>/<param1>/.../<paramN>.html with every segment
// path-escaped. Listing pages land in <dir>/listing/<assignee>/<page>.html and
// detail pages in <dir>/detail/<id>.html.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir. Directories are created
// lazily by Put.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// path returns the file path of key.
func (s *FileStore) path(key Key) string {
	elems := make([]string, 0, len(key.Params)+2)
	elems = append(elems, s.dir, url.PathEscape(string(key.Kind)))
	last := len(key.Params) - 1
	for i, p := range key.Params {
		seg := url.PathEscape(p)
		if i == last {
			seg += entryExt
		}
		elems = append(elems, seg)
	}
	return filepath.Join(elems...)
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, key Key) ([]byte, bool, error) {
	if err := key.validate(); err != nil {
		return nil, false, err
	}

	content, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	return content, true, nil
}

// Put implements Store.
//
// The content is written to a temporary file in the target directory and
// renamed over the final path, so readers observe either the old entry, no
// entry, or the complete new entry.
func (s *FileStore) Put(_ context.Context, key Key, content []byte) error {
	if err := key.validate(); err != nil {
		return err
	}

	target := s.path(key)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create cache entry %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()        //nolint:errcheck // write error takes precedence
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("failed to commit cache entry %s: %w", key, err)
	}
	return nil
}

// Close implements Store. FileStore holds no resources.
func (s *FileStore) Close() error {
	return nil
}
