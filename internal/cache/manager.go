// Package cache sits in front of the storage manager, serving cached
// content while valid and persisting fresh fetches across a bounded
// in-memory tier and an unbounded disk tier.
package cache

import (
	"context"
	"encoding/hex"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"

	"codex/internal/domain"
	"codex/internal/ports"
	"codex/internal/storage"
)

// Manager is the multi-tier cache. Concurrent gets for the same key are
// coalesced into a single origin fetch; unrelated keys proceed fully in
// parallel.
type Manager struct {
	storage  *storage.Manager
	registry *domain.TypeRegistry
	mem      *memoryTier
	disk     *diskTier
	group    singleflight.Group
	logger   *log.Logger

	hits   atomic.Int64
	misses atomic.Int64

	// now is replaceable in tests.
	now func() time.Time
}

// Options configures the Manager.
type Options struct {
	// MemoryBudget bounds the memory tier in bytes.
	MemoryBudget int64

	// Logger defaults to stderr with a [cache] prefix.
	Logger *log.Logger

	// Now overrides the clock (tests).
	Now func() time.Time
}

// New creates a cache manager over the storage manager and an opened
// index. cacheRoot is the disk tier directory.
func New(sm *storage.Manager, registry *domain.TypeRegistry, index ports.CacheIndex, cacheRoot string, opts Options) *Manager {
	if opts.MemoryBudget <= 0 {
		opts.MemoryBudget = 64 << 20
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[cache] ", log.LstdFlags)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		storage:  sm,
		registry: registry,
		mem:      newMemoryTier(opts.MemoryBudget),
		disk:     newDiskTier(cacheRoot, index),
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// Get returns the content for a resolved reference, from cache when a
// valid entry exists, otherwise from storage (storing the result).
//
// Artifact-source references bypass the cache in both directions:
// current-project artifact files are the source of truth and must never
// go stale behind a cache.
func (m *Manager) Get(ctx context.Context, ref domain.ResolvedReference) (domain.FetchResult, error) {
	if ref.Source == domain.SourceArtifact {
		return m.storage.Fetch(ctx, ref)
	}

	key := ref.CachePath

	if entry, ok := m.lookup(key); ok {
		m.hits.Add(1)
		return resultFrom(entry, true), nil
	}
	m.misses.Add(1)

	// Coalesce concurrent fetches of the same key; unrelated keys are
	// untouched. The per-key disk write is serialized by the same
	// mechanism.
	v, err, _ := m.group.Do(key, func() (any, error) {
		result, err := m.storage.Fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		entry := m.entryFrom(key, ref.Path, result)
		m.store(entry)
		return resultFrom(entry, false), nil
	})
	if err != nil {
		return domain.FetchResult{}, err
	}
	return v.(domain.FetchResult), nil
}

// Set records content as fresh, used by the sync executor after it
// writes a file. A zero ttl means "use the type registry".
func (m *Manager) Set(ref domain.ResolvedReference, result domain.FetchResult, ttl time.Duration) error {
	if ref.Source == domain.SourceArtifact || ref.CachePath == "" {
		return nil
	}
	entry := m.entryFrom(ref.CachePath, ref.Path, result)
	if ttl > 0 {
		entry.TTL = ttl
	}
	m.store(entry)
	return nil
}

// Invalidate removes entries. An empty pattern clears everything; a
// pattern removes all keys whose org/project/path form matches it
// (doublestar glob semantics).
func (m *Manager) Invalidate(pattern string) (int, error) {
	diskKeys, err := m.disk.keys()
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(diskKeys))
	for _, k := range diskKeys {
		seen[k] = true
	}
	for _, k := range m.mem.keys() {
		seen[k] = true
	}

	removed := 0
	for key := range seen {
		if pattern != "" {
			ok, err := doublestar.Match(pattern, key)
			if err != nil {
				return removed, &domain.RoutingError{Pattern: pattern, Err: err}
			}
			if !ok {
				continue
			}
		}
		m.mem.delete(key)
		if err := m.disk.delete(key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Stats reports per-tier sizes and the running hit rate. Counters reset
// only on process restart.
func (m *Manager) Stats() (domain.CacheStats, error) {
	memEntries, memBytes := m.mem.stats()
	diskEntries, diskBytes, err := m.disk.stats()
	if err != nil {
		return domain.CacheStats{}, err
	}
	return domain.CacheStats{
		MemoryEntries: memEntries,
		MemoryBytes:   memBytes,
		DiskEntries:   diskEntries,
		DiskBytes:     diskBytes,
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
	}, nil
}

// Keys lists cached keys, optionally filtered by a glob pattern.
func (m *Manager) Keys(pattern string) ([]string, error) {
	keys, err := m.disk.keys()
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		return keys, nil
	}
	var out []string
	for _, k := range keys {
		if ok, err := doublestar.Match(pattern, k); err == nil && ok {
			out = append(out, k)
		}
	}
	return out, nil
}

// Entry returns a cached entry's metadata, without validity filtering.
func (m *Manager) Entry(key string) (*domain.CacheEntry, bool, error) {
	if entry, ok := m.mem.get(key); ok {
		return entry, true, nil
	}
	return m.disk.get(key)
}

// lookup consults memory then disk, promoting disk hits. Expired
// entries are ignored (and left for the next store to overwrite).
func (m *Manager) lookup(key string) (*domain.CacheEntry, bool) {
	if entry, ok := m.mem.get(key); ok {
		if !entry.Expired(m.now()) {
			return entry, true
		}
		m.mem.delete(key)
	}

	entry, ok, err := m.disk.get(key)
	if err != nil {
		m.logger.Printf("disk tier error for %s: %v", key, err)
		return nil, false
	}
	if !ok || entry.Expired(m.now()) {
		return nil, false
	}

	m.mem.put(entry)
	return entry, true
}

// store writes both tiers; a disk failure is logged, not fatal, since
// the content is already in memory and can be refetched.
func (m *Manager) store(entry *domain.CacheEntry) {
	m.mem.put(entry)
	if err := m.disk.put(entry); err != nil {
		m.logger.Printf("failed to persist %s: %v", entry.Key, err)
	}
}

func (m *Manager) entryFrom(key, path string, result domain.FetchResult) *domain.CacheEntry {
	sum := blake3.Sum256(result.Content)
	return &domain.CacheEntry{
		Key:         key,
		Content:     result.Content,
		ContentHash: hex.EncodeToString(sum[:]),
		ContentType: result.ContentType,
		Size:        int64(len(result.Content)),
		CreatedAt:   m.now(),
		TTL:         m.registry.TTLFor(path),
		Source:      result.Source,
	}
}

func resultFrom(entry *domain.CacheEntry, fromCache bool) domain.FetchResult {
	source := entry.Source
	if fromCache {
		source = "cache"
	}
	return domain.FetchResult{
		Content:     entry.Content,
		ContentType: entry.ContentType,
		Size:        entry.Size,
		Source:      source,
		FromCache:   fromCache,
	}
}
