package cache

import (
	"os"
	"path/filepath"

	"codex/internal/domain"
	"codex/internal/ports"
)

// diskTier stores one content file per entry at cacheRoot/org/project/path
// and keeps validity metadata in the index so checks never read content.
// Entries survive process restarts; the memory tier is rebuilt from here
// lazily.
type diskTier struct {
	root  string
	index ports.CacheIndex
}

func newDiskTier(root string, index ports.CacheIndex) *diskTier {
	return &diskTier{root: root, index: index}
}

// contentPath maps a cache key to its content file.
func (d *diskTier) contentPath(key string) string {
	return filepath.Join(d.root, filepath.FromSlash(key))
}

// get returns the full entry, or a miss when the key is unindexed or
// its content file disappeared out from under the index.
func (d *diskTier) get(key string) (*domain.CacheEntry, bool, error) {
	entry, ok, err := d.index.Get(key)
	if err != nil {
		return nil, false, &domain.CacheError{Key: key, Op: "index-get", Err: err}
	}
	if !ok {
		return nil, false, nil
	}

	content, err := os.ReadFile(d.contentPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			// Index row without content is corruption; drop the row
			// and report a miss.
			_ = d.index.Delete(key)
			return nil, false, nil
		}
		return nil, false, &domain.CacheError{Key: key, Op: "read", Err: err}
	}

	entry.Content = content
	return entry, true, nil
}

// put writes the content file and index row.
func (d *diskTier) put(entry *domain.CacheEntry) error {
	path := d.contentPath(entry.Key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &domain.CacheError{Key: entry.Key, Op: "mkdir", Err: err}
	}
	if err := os.WriteFile(path, entry.Content, 0644); err != nil {
		return &domain.CacheError{Key: entry.Key, Op: "write", Err: err}
	}
	if err := d.index.Put(entry); err != nil {
		return &domain.CacheError{Key: entry.Key, Op: "index-put", Err: err}
	}
	return nil
}

// delete removes the content file and index row.
func (d *diskTier) delete(key string) error {
	if err := os.Remove(d.contentPath(key)); err != nil && !os.IsNotExist(err) {
		return &domain.CacheError{Key: key, Op: "remove", Err: err}
	}
	if err := d.index.Delete(key); err != nil {
		return &domain.CacheError{Key: key, Op: "index-delete", Err: err}
	}
	return nil
}

// keys lists every indexed key.
func (d *diskTier) keys() ([]string, error) {
	return d.index.Keys()
}

// stats returns the entry count and byte total from the index.
func (d *diskTier) stats() (int, int64, error) {
	return d.index.Stats()
}
