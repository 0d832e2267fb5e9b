package ports

import "codex/internal/domain"

// CacheIndex records per-entry TTL and creation metadata for the disk
// cache tier so validity checks never read content files.
type CacheIndex interface {
	// Lifecycle
	Open(path string) error
	Close() error

	// Put records an entry's metadata (content is stored separately).
	Put(entry *domain.CacheEntry) error

	// Get returns the metadata for a key. The second result is false
	// when the key is not indexed.
	Get(key string) (*domain.CacheEntry, bool, error)

	// Delete removes a key. Idempotent.
	Delete(key string) error

	// Keys lists every indexed key.
	Keys() ([]string, error)

	// Stats returns the entry count and byte total.
	Stats() (entries int, bytes int64, err error)
}
