package cache

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codex/internal/adapters/sqlite"
	"codex/internal/domain"
	"codex/internal/ports"
	"codex/internal/storage"
)

// fakeOrigin counts fetches so tests can assert how often the cache
// went back to storage.
type fakeOrigin struct {
	calls   atomic.Int64
	content []byte

	// release, when non-nil, blocks every Fetch until closed.
	release chan struct{}
}

func (f *fakeOrigin) Name() string { return "fake" }
func (f *fakeOrigin) CanHandle(domain.ResolvedReference) bool { return true }

func (f *fakeOrigin) Fetch(ctx context.Context, ref domain.ResolvedReference) (domain.FetchResult, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return domain.FetchResult{}, ctx.Err()
		}
	}
	return domain.FetchResult{
		Content:     f.content,
		ContentType: "text/plain",
		Size:        int64(len(f.content)),
		Source:      "fake",
	}, nil
}

func (f *fakeOrigin) Exists(ctx context.Context, ref domain.ResolvedReference) (bool, error) {
	return true, nil
}

func newTestManager(t *testing.T, origin ports.StorageProvider, opts Options) (*Manager, string) {
	t.Helper()

	dir := t.TempDir()
	index := sqlite.NewIndex()
	if err := index.Open(filepath.Join(dir, "index.db")); err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { index.Close() })

	sm := storage.New([]ports.StorageProvider{origin}, nil)
	return New(sm, domain.NewTypeRegistry(), index, dir, opts), dir
}

func remoteRef(path string) domain.ResolvedReference {
	ref := domain.Reference{Org: "acme", Project: "web", Path: path}
	return domain.ResolvedReference{
		Reference: ref,
		CachePath: ref.Key(),
		Source:    domain.SourceVersionControl,
	}
}

func TestGetCachesUntilExpiry(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	origin := &fakeOrigin{content: []byte("plain contents")}
	mgr, _ := newTestManager(t, origin, Options{Now: func() time.Time { return clock }})

	// notes/scratch.txt matches no built-in type, so the default TTL
	// of one hour applies.
	ref := remoteRef("notes/scratch.txt")

	first, err := mgr.Get(context.Background(), ref)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first.FromCache {
		t.Error("first fetch must not report FromCache")
	}
	if first.Source != "fake" {
		t.Errorf("Source = %q, want fake", first.Source)
	}

	second, err := mgr.Get(context.Background(), ref)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !second.FromCache || second.Source != "cache" {
		t.Errorf("second fetch: FromCache=%v Source=%q, want cache hit", second.FromCache, second.Source)
	}
	if string(second.Content) != "plain contents" {
		t.Errorf("Content = %q", second.Content)
	}
	if got := origin.calls.Load(); got != 1 {
		t.Fatalf("origin calls = %d, want 1", got)
	}

	clock = clock.Add(61 * time.Minute)

	third, err := mgr.Get(context.Background(), ref)
	if err != nil {
		t.Fatalf("Get after expiry: %v", err)
	}
	if third.FromCache {
		t.Error("expired entry must trigger a fresh fetch")
	}
	if got := origin.calls.Load(); got != 2 {
		t.Fatalf("origin calls after expiry = %d, want exactly 2", got)
	}
}

func TestGetRespectsTypeTTL(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	origin := &fakeOrigin{content: []byte("# readme")}
	mgr, _ := newTestManager(t, origin, Options{Now: func() time.Time { return clock }})

	// Markdown is typed as documentation with a 24 hour TTL.
	ref := remoteRef("docs/readme.md")

	if _, err := mgr.Get(context.Background(), ref); err != nil {
		t.Fatalf("Get: %v", err)
	}

	clock = clock.Add(12 * time.Hour)
	result, err := mgr.Get(context.Background(), ref)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !result.FromCache {
		t.Error("documentation should stay cached for 24h")
	}
	if got := origin.calls.Load(); got != 1 {
		t.Fatalf("origin calls = %d, want 1", got)
	}
}

func TestGetSingleFlight(t *testing.T) {
	origin := &fakeOrigin{content: []byte("shared"), release: make(chan struct{})}
	mgr, _ := newTestManager(t, origin, Options{})

	ref := remoteRef("specs/WORK-9.md")

	const n = 16
	var (
		start   = make(chan struct{})
		wg      sync.WaitGroup
		results [n]domain.FetchResult
		errs    [n]error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = mgr.Get(context.Background(), ref)
		}(i)
	}

	close(start)
	time.Sleep(20 * time.Millisecond)
	close(origin.release)
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		if string(results[i].Content) != "shared" {
			t.Errorf("goroutine %d: Content = %q", i, results[i].Content)
		}
	}
	if got := origin.calls.Load(); got != 1 {
		t.Errorf("origin calls = %d, want 1", got)
	}
}

func TestArtifactSourceBypassesCache(t *testing.T) {
	origin := &fakeOrigin{content: []byte("live")}
	mgr, _ := newTestManager(t, origin, Options{})

	ref := domain.ResolvedReference{
		Reference:        domain.Reference{Org: "acme", Project: "web", Path: "specs/WORK-1.md"},
		IsCurrentProject: true,
		Source:           domain.SourceArtifact,
		LocalPath:        "/tmp/specs/WORK-1.md",
		ArtifactSource:   "specs",
	}

	for i := 0; i < 2; i++ {
		result, err := mgr.Get(context.Background(), ref)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if result.FromCache {
			t.Error("artifact source content must never come from cache")
		}
	}
	if got := origin.calls.Load(); got != 2 {
		t.Errorf("origin calls = %d, want 2 (no caching)", got)
	}

	stats, err := mgr.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.MemoryEntries != 0 || stats.DiskEntries != 0 {
		t.Errorf("tiers not empty: %+v", stats)
	}
}

func TestInvalidatePattern(t *testing.T) {
	origin := &fakeOrigin{content: []byte("x")}
	mgr, _ := newTestManager(t, origin, Options{})

	ctx := context.Background()
	paths := []string{"docs/a.md", "docs/b.md", "specs/WORK-1.md"}
	for _, p := range paths {
		if _, err := mgr.Get(ctx, remoteRef(p)); err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
	}

	removed, err := mgr.Invalidate("acme/web/docs/**")
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	keys, err := mgr.Keys("")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "acme/web/specs/WORK-1.md" {
		t.Errorf("keys after invalidate = %v", keys)
	}

	// Empty pattern clears everything.
	if _, err := mgr.Invalidate(""); err != nil {
		t.Fatalf("Invalidate all: %v", err)
	}
	keys, err = mgr.Keys("")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("keys after clear = %v", keys)
	}
}

func TestStatsHitRate(t *testing.T) {
	origin := &fakeOrigin{content: []byte("x")}
	mgr, _ := newTestManager(t, origin, Options{})

	ctx := context.Background()
	ref := remoteRef("docs/a.md")
	for i := 0; i < 3; i++ {
		if _, err := mgr.Get(ctx, ref); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}

	stats, err := mgr.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 2/1", stats.Hits, stats.Misses)
	}
	if rate := stats.HitRate(); rate < 0.66 || rate > 0.67 {
		t.Errorf("HitRate = %v", rate)
	}
	if stats.MemoryEntries != 1 || stats.DiskEntries != 1 {
		t.Errorf("tier entries = %d/%d, want 1/1", stats.MemoryEntries, stats.DiskEntries)
	}
}

func TestDiskTierSurvivesRestart(t *testing.T) {
	origin := &fakeOrigin{content: []byte("persisted")}

	dir := t.TempDir()
	open := func() (*Manager, func()) {
		index := sqlite.NewIndex()
		if err := index.Open(filepath.Join(dir, "index.db")); err != nil {
			t.Fatalf("open index: %v", err)
		}
		sm := storage.New([]ports.StorageProvider{origin}, nil)
		return New(sm, domain.NewTypeRegistry(), index, dir, Options{}), func() { index.Close() }
	}

	ref := remoteRef("docs/guide.md")

	mgr, done := open()
	if _, err := mgr.Get(context.Background(), ref); err != nil {
		t.Fatalf("Get: %v", err)
	}
	done()

	mgr, done = open()
	defer done()
	result, err := mgr.Get(context.Background(), ref)
	if err != nil {
		t.Fatalf("Get after restart: %v", err)
	}
	if !result.FromCache {
		t.Error("expected a disk hit after restart")
	}
	if got := origin.calls.Load(); got != 1 {
		t.Errorf("origin calls = %d, want 1", got)
	}
}
