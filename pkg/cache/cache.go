// Package cache implements a content-addressed response cache with TTL
// expiry and bounded-size LRU eviction, backed by SQLite. The cache is an
// optimization, not a correctness dependency: storage read errors degrade
// to a miss and are never surfaced to callers.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/yapay-ai/provider-sentinel/pkg/model"

	_ "modernc.org/sqlite"
)

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	fingerprint TEXT PRIMARY KEY,
	value       BLOB NOT NULL,
	size_bytes  INTEGER NOT NULL,
	created_at  DATETIME NOT NULL,
	expires_at  DATETIME NOT NULL,
	last_access DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries(expires_at);
CREATE INDEX IF NOT EXISTS idx_cache_access ON cache_entries(last_access);
`

// Store is a fingerprint-keyed response cache. One entry exists per
// fingerprint; later writes overwrite. Safe for concurrent use.
type Store struct {
	db       *sql.DB
	maxBytes int64
	hits     atomic.Int64
	misses   atomic.Int64
	now      func() time.Time
}

// New opens or creates a cache database at the given path. maxBytes is the
// total size ceiling for cached values; a non-positive value disables
// size-based eviction.
func New(dbPath string, maxBytes int64) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	// Pragmas go in the DSN so every pool connection gets them;
	// busy_timeout in particular is per-connection.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Store{db: db, maxBytes: maxBytes, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Get returns the cached value for a fingerprint. Expired entries are never
// returned, even before an eviction sweep has run. Any storage error is
// treated as a miss. A hit refreshes the entry's access time.
func (s *Store) Get(fingerprint string) ([]byte, bool) {
	var value []byte
	var expiresAt time.Time

	err := s.db.QueryRow(
		`SELECT value, expires_at FROM cache_entries WHERE fingerprint = ?`,
		fingerprint,
	).Scan(&value, &expiresAt)
	if err != nil {
		s.misses.Add(1)
		return nil, false
	}

	if !s.now().Before(expiresAt) {
		s.misses.Add(1)
		return nil, false
	}

	// Recency update failures don't invalidate the hit.
	_, _ = s.db.Exec(
		`UPDATE cache_entries SET last_access = ? WHERE fingerprint = ?`,
		s.now(), fingerprint,
	)

	s.hits.Add(1)
	return value, true
}

// Put stores a value under a fingerprint with the given TTL, overwriting
// any previous entry. If the write pushes the store past its size ceiling,
// least-recently-accessed entries are evicted until it fits.
func (s *Store) Put(fingerprint string, value []byte, ttl time.Duration) error {
	now := s.now()
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO cache_entries (fingerprint, value, size_bytes, created_at, expires_at, last_access)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		fingerprint, value, int64(len(value)), now, now.Add(ttl), now,
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}

	if s.maxBytes > 0 {
		if err := s.evict(); err != nil {
			return fmt.Errorf("cache eviction: %w", err)
		}
	}
	return nil
}

// evict removes least-recently-accessed entries until total size is within
// the ceiling.
func (s *Store) evict() error {
	total, err := s.totalSize()
	if err != nil {
		return err
	}
	if total <= s.maxBytes {
		return nil
	}

	rows, err := s.db.Query(
		`SELECT fingerprint, size_bytes FROM cache_entries ORDER BY last_access ASC`)
	if err != nil {
		return err
	}

	var victims []string
	for rows.Next() && total > s.maxBytes {
		var fp string
		var size int64
		if err := rows.Scan(&fp, &size); err != nil {
			rows.Close()
			return err
		}
		victims = append(victims, fp)
		total -= size
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	// The cursor must be released before the deletes; an open read
	// transaction would block them.
	if err := rows.Close(); err != nil {
		return err
	}

	for _, fp := range victims {
		if _, err := s.db.Exec(`DELETE FROM cache_entries WHERE fingerprint = ?`, fp); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) totalSize() (int64, error) {
	var total int64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(size_bytes), 0) FROM cache_entries`).Scan(&total)
	return total, err
}

// InvalidateExpired removes entries whose expiry has passed and returns the
// number removed.
func (s *Store) InvalidateExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM cache_entries WHERE expires_at <= ?`, s.now())
	if err != nil {
		return 0, fmt.Errorf("invalidate expired: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count removed entries: %w", err)
	}
	return removed, nil
}

// Stats returns entry count, total stored bytes, and hit/miss counters.
func (s *Store) Stats() (model.CacheStats, error) {
	stats := model.CacheStats{
		HitCount:  s.hits.Load(),
		MissCount: s.misses.Load(),
	}
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM cache_entries`,
	).Scan(&stats.EntryCount, &stats.TotalSizeBytes)
	if err != nil {
		return model.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
