package cache

import (
	"container/list"
	"sync"

	"codex/internal/domain"
)

// memoryTier is the in-process cache tier, bounded by a total byte
// budget and evicted LRU when the budget is exceeded.
type memoryTier struct {
	mu     sync.Mutex
	budget int64
	used   int64

	// ll is ordered most-recently-used first.
	ll    *list.List
	items map[string]*list.Element
}

func newMemoryTier(budget int64) *memoryTier {
	return &memoryTier{
		budget: budget,
		ll:     list.New(),
		items:  make(map[string]*list.Element),
	}
}

// get returns the entry and marks it recently used.
func (m *memoryTier) get(key string) (*domain.CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, false
	}
	m.ll.MoveToFront(el)
	return el.Value.(*domain.CacheEntry), true
}

// put stores the entry and evicts least-recently-used entries until the
// tier is back under budget. An entry larger than the whole budget is
// not stored at all.
func (m *memoryTier) put(entry *domain.CacheEntry) {
	if entry.Size > m.budget {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[entry.Key]; ok {
		m.used -= el.Value.(*domain.CacheEntry).Size
		m.ll.Remove(el)
		delete(m.items, entry.Key)
	}

	m.items[entry.Key] = m.ll.PushFront(entry)
	m.used += entry.Size

	for m.used > m.budget {
		oldest := m.ll.Back()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*domain.CacheEntry)
		m.ll.Remove(oldest)
		delete(m.items, evicted.Key)
		m.used -= evicted.Size
	}
}

// delete removes a key if present.
func (m *memoryTier) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.used -= el.Value.(*domain.CacheEntry).Size
		m.ll.Remove(el)
		delete(m.items, key)
	}
}

// clear drops every entry.
func (m *memoryTier) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ll.Init()
	m.items = make(map[string]*list.Element)
	m.used = 0
}

// keys returns the cached keys, most recently used first.
func (m *memoryTier) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.items))
	for el := m.ll.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*domain.CacheEntry).Key)
	}
	return out
}

// stats returns the entry count and byte total.
func (m *memoryTier) stats() (int, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), m.used
}
