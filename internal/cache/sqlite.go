package cache

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver
)

// sqliteFileName is the database file created inside the cache directory.
const sqliteFileName = "patentcrawl.db"

// SQLiteStore stores entries as rows of a single SQLite database.
//
// Each row carries the SHA3-256 digest of its content. Get recomputes the
// digest and reports ErrCorruptEntry on mismatch rather than handing back
// damaged bytes.
type SQLiteStore struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures SQLiteStore behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so that readers do not block the
	// single writer.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// OpenSQLite opens or creates a SQLiteStore in dir.
func OpenSQLite(dir string, opts Options) (*SQLiteStore, error) {
	dbPath := filepath.Join(dir, sqliteFileName)

	var dsn string
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("cache database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check cache database path: %w", err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite supports a single writer. Concurrent fetch workers serialize
	// on this one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // already returning an error
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // already returning an error
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// createTables creates the schema if it doesn't exist.
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		kind TEXT NOT NULL,
		key TEXT NOT NULL,
		content BLOB NOT NULL,
		digest BLOB NOT NULL,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (kind, key)
	);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	if err := key.validate(); err != nil {
		return nil, false, err
	}

	query := `SELECT content, digest FROM pages WHERE kind = ? AND key = ?`

	var content, digest []byte
	err := s.db.QueryRowContext(ctx, query, string(key.Kind), key.String()).Scan(&content, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}

	sum := sha3.Sum256(content)
	if !bytes.Equal(sum[:], digest) {
		return nil, false, fmt.Errorf("%w: %s", ErrCorruptEntry, key)
	}
	return content, true, nil
}

// Put implements Store. An existing entry is replaced.
func (s *SQLiteStore) Put(ctx context.Context, key Key, content []byte) error {
	if err := key.validate(); err != nil {
		return err
	}

	// A nil BLOB would violate NOT NULL for empty pages.
	if content == nil {
		content = []byte{}
	}
	sum := sha3.Sum256(content)

	query := `
	INSERT INTO pages (kind, key, content, digest)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(kind, key) DO UPDATE SET
		content = excluded.content,
		digest = excluded.digest,
		fetched_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, string(key.Kind), key.String(), content, sum[:]); err != nil {
		return fmt.Errorf("failed to put cache entry %s: %w", key, err)
	}
	return nil
}
