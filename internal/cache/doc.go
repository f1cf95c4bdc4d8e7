// Package cache stores raw page content keyed by request identity.
//
// Two backends implement Store:
//   - FileStore: one file per key under a cache directory (the default)
//   - SQLiteStore: one row per key in a single SQLite database file
//
// Entries are written once and read many times. They are never invalidated:
// stale content is accepted as correct for the life of the cache. Content is
// handed back verbatim; nothing is parsed at read time.
package cache
