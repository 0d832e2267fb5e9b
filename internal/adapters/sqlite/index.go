// Package sqlite implements the disk-cache index on SQLite. The index
// holds per-entry TTL and creation metadata so the cache can judge
// validity without touching content files.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"codex/internal/domain"
	"codex/internal/ports"
)

const schemaVersion = "1"

// Index implements ports.CacheIndex.
type Index struct {
	db     *sql.DB
	dbPath string
}

// Ensure Index implements CacheIndex
var _ ports.CacheIndex = (*Index)(nil)

// NewIndex creates an unopened index.
func NewIndex() *Index {
	return &Index{}
}

// Open initializes the index database at the given path.
func (idx *Index) Open(path string) error {
	idx.dbPath = path

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	// WAL mode for concurrent readers while a fetch writes.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("failed to open index database: %w", err)
	}
	idx.db = db

	// Performance pragmas + schema in single batch (reduces round-trips)
	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA cache_size = -64000;
		PRAGMA temp_store = MEMORY;
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			content_type TEXT NOT NULL,
			size INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			ttl_seconds INTEGER NOT NULL,
			source TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to setup index database: %w", err)
	}

	if _, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`,
		schemaVersion); err != nil {
		db.Close()
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (idx *Index) Close() error {
	if idx.db != nil {
		return idx.db.Close()
	}
	return nil
}

// Put records an entry's metadata.
func (idx *Index) Put(entry *domain.CacheEntry) error {
	_, err := idx.db.Exec(`
		INSERT OR REPLACE INTO entries (key, content_hash, content_type, size, created_at, ttl_seconds, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.Key, entry.ContentHash, entry.ContentType, entry.Size,
		entry.CreatedAt.Unix(), int64(entry.TTL/time.Second), entry.Source)
	return err
}

// Get returns an entry's metadata without content.
func (idx *Index) Get(key string) (*domain.CacheEntry, bool, error) {
	var (
		entry     domain.CacheEntry
		createdAt int64
		ttlSecs   int64
	)
	err := idx.db.QueryRow(`
		SELECT key, content_hash, content_type, size, created_at, ttl_seconds, source
		FROM entries WHERE key = ?
	`, key).Scan(&entry.Key, &entry.ContentHash, &entry.ContentType, &entry.Size,
		&createdAt, &ttlSecs, &entry.Source)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	entry.CreatedAt = time.Unix(createdAt, 0)
	entry.TTL = time.Duration(ttlSecs) * time.Second
	return &entry, true, nil
}

// Delete removes a key. Idempotent.
func (idx *Index) Delete(key string) error {
	_, err := idx.db.Exec(`DELETE FROM entries WHERE key = ?`, key)
	return err
}

// Keys lists every indexed key.
func (idx *Index) Keys() ([]string, error) {
	rows, err := idx.db.Query(`SELECT key FROM entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Stats returns the entry count and byte total.
func (idx *Index) Stats() (int, int64, error) {
	var (
		entries int
		bytes   sql.NullInt64
	)
	err := idx.db.QueryRow(`SELECT COUNT(*), SUM(size) FROM entries`).Scan(&entries, &bytes)
	if err != nil {
		return 0, 0, err
	}
	return entries, bytes.Int64, nil
}
