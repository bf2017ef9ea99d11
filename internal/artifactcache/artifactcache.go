// Package artifactcache is the optional disk-backed spill for code
// artifacts (§6 persisted state (b)): when ENABLE_CACHE is set, the
// Script Catalog writes fetched script sources here keyed by scriptId so
// a later GetScriptSource survives a Clear() or process restart without
// refetching from Chrome.
package artifactcache

import (
	"database/sql"
	"fmt"

	"github.com/brennhill/revagent/internal/cachecoord"
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Store is a key/value spill table over a single sqlite database,
// opened by the caller via internal/dbopen.
type Store struct {
	db *sql.DB
}

// Open prepares the artifacts table on db and returns a Store.
func Open(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("artifactcache: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the value stored under key, or ok=false if absent.
func (s *Store) Get(key string) (value []byte, ok bool, err error) {
	row := s.db.QueryRow(`SELECT value FROM artifacts WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("artifactcache: get: %w", err)
	}
	return value, true, nil
}

// Put persists value under key, overwriting any prior entry.
func (s *Store) Put(key string, value []byte, nowUnixMilli int64) error {
	_, err := s.db.Exec(
		`INSERT INTO artifacts (key, value, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		key, value, nowUnixMilli)
	if err != nil {
		return fmt.Errorf("artifactcache: put: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) entries() (count int, bytes int64) {
	row := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(LENGTH(value)), 0) FROM artifacts`)
	row.Scan(&count, &bytes)
	return
}

// --- cachecoord.CacheInstance ---

// CacheAdapter adapts Store to cachecoord.CacheInstance.
type CacheAdapter struct{ *Store }

func (a CacheAdapter) Name() string { return "artifactcache" }

func (a CacheAdapter) Stats() cachecoord.Stats {
	count, bytes := a.entries()
	return cachecoord.Stats{Name: "artifactcache", Entries: count, Bytes: bytes}
}

// Cleanup has nothing expiry-based to drop; artifacts are keyed by scriptId
// and only grow stale when the site itself changes.
func (a CacheAdapter) Cleanup() int64 { return 0 }

func (a CacheAdapter) Clear() int64 {
	_, bytes := a.entries()
	if _, err := a.db.Exec(`DELETE FROM artifacts`); err != nil {
		return 0
	}
	return bytes
}
