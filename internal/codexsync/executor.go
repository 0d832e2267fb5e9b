package codexsync

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"codex/internal/domain"
)

const defaultApplyConcurrency = 8

// CacheRefresher receives freshly synced content so reads served from
// cache see it immediately. *cache.Manager satisfies this.
type CacheRefresher interface {
	Set(ref domain.ResolvedReference, result domain.FetchResult, ttl time.Duration) error
}

// Executor applies a sync plan. Failures are isolated per file: one
// unreadable source does not abort the batch, it lands in the result's
// error list and the run reports partial success.
type Executor struct {
	// Strategy resolves conflicted entries. The zero value leaves them
	// unapplied and listed on the result.
	Strategy domain.ConflictStrategy

	// DryRun tallies what would happen without touching anything.
	DryRun bool

	// Concurrency bounds parallel file operations.
	Concurrency int

	// Manifest, when set, is updated as entries apply and saved at the
	// end of a non-dry run.
	Manifest *Manifest

	// Cache, when set, is refreshed after pull writes. Org qualifies
	// the cache keys.
	Cache CacheRefresher
	Org   string

	// Logger defaults to stderr with a [sync] prefix.
	Logger *log.Logger

	// mu guards the result and the manifest during a run.
	mu sync.Mutex

	// now is replaceable in tests.
	now func() time.Time
}

// Apply executes the plan. Cancelling the context stops new entries
// from starting; entries already in flight finish.
func (e *Executor) Apply(ctx context.Context, plan *domain.SyncPlan) (*domain.SyncResult, error) {
	logger := e.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	now := e.now
	if now == nil {
		now = time.Now
	}

	result := &domain.SyncResult{DryRun: e.DryRun}

	limit := e.Concurrency
	if limit <= 0 {
		limit = defaultApplyConcurrency
	}
	var g errgroup.Group
	g.SetLimit(limit)

	for _, entry := range plan.Entries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := e.applyEntry(plan.Direction, entry, result, now); err != nil {
				logger.Printf("%s %s: %v", entry.Op, entry.Path, err)
				e.mu.Lock()
				result.Errors = append(result.Errors, domain.FileError{Path: entry.Path, Err: err})
				e.mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if !e.DryRun && e.Manifest != nil {
		if err := e.Manifest.Save(); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (e *Executor) applyEntry(dir domain.Direction, entry domain.PlanEntry, result *domain.SyncResult, now func() time.Time) error {
	switch entry.Op {
	case domain.OpNoop:
		return e.applyNoop(dir, entry, now)
	case domain.OpDelete:
		return e.applyDelete(entry, result)
	case domain.OpCreate, domain.OpUpdate:
		return e.applyCopy(dir, entry, result, now)
	}
	return nil
}

// applyNoop re-baselines the manifest for files already in sync, so a
// later local edit is not misread as a conflict.
func (e *Executor) applyNoop(dir domain.Direction, entry domain.PlanEntry, now func() time.Time) error {
	if e.DryRun || e.Manifest == nil || dir != domain.FromCodex {
		return nil
	}
	hash, err := hashFile(entry.Dest)
	if err != nil {
		return err
	}
	e.setManifest(entry.Path, hash, entry.SourceProject, now())
	return nil
}

func (e *Executor) applyDelete(entry domain.PlanEntry, result *domain.SyncResult) error {
	// A conflicted delete means the local copy was edited after the
	// upstream file went away. Only an explicit remote strategy may
	// discard those edits.
	if entry.Conflict && e.Strategy != domain.StrategyRemote {
		e.mu.Lock()
		result.Conflicts = append(result.Conflicts, entry.Path)
		result.Skipped++
		e.mu.Unlock()
		return nil
	}

	if !e.DryRun {
		if err := os.Remove(entry.Dest); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", entry.Dest, err)
		}
	}

	e.mu.Lock()
	if !e.DryRun && e.Manifest != nil {
		e.Manifest.Delete(entry.Path)
	}
	result.Deleted++
	e.mu.Unlock()
	return nil
}

func (e *Executor) applyCopy(dir domain.Direction, entry domain.PlanEntry, result *domain.SyncResult, now func() time.Time) error {
	if entry.Conflict {
		proceed, err := e.resolveConflict(entry, result, now)
		if err != nil || !proceed {
			return err
		}
	}

	if e.DryRun {
		e.count(entry.Op, result)
		return nil
	}

	content, err := os.ReadFile(entry.Source)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", entry.Source, err)
	}
	if err := os.MkdirAll(filepath.Dir(entry.Dest), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(entry.Dest), err)
	}
	if err := os.WriteFile(entry.Dest, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", entry.Dest, err)
	}

	sum := blake3.Sum256(content)
	e.setManifest(entry.Path, hex.EncodeToString(sum[:]), entry.SourceProject, now())
	e.count(entry.Op, result)

	if dir == domain.FromCodex {
		e.refreshCache(entry, content)
	}
	return nil
}

// resolveConflict decides whether a conflicted copy goes ahead.
func (e *Executor) resolveConflict(entry domain.PlanEntry, result *domain.SyncResult, now func() time.Time) (bool, error) {
	keep := func(report bool) {
		e.mu.Lock()
		if report {
			result.Conflicts = append(result.Conflicts, entry.Path)
		}
		result.Skipped++
		e.mu.Unlock()
	}

	switch e.Strategy {
	case domain.StrategyRemote:
		return true, nil
	case domain.StrategyNewest:
		if entry.SourceMTime.After(entry.DestMTime) {
			return true, nil
		}
		keep(false)
	case domain.StrategyLocal:
		keep(false)
		// Re-baseline on the kept side so the conflict does not
		// resurface on every run.
		if !e.DryRun && e.Manifest != nil {
			hash, err := hashFile(entry.Dest)
			if err != nil {
				return false, err
			}
			e.setManifest(entry.Path, hash, entry.SourceProject, now())
		}
	default:
		// Report and skip: the caller surfaces the conflict list.
		keep(true)
	}
	return false, nil
}

func (e *Executor) count(op domain.SyncOp, result *domain.SyncResult) {
	e.mu.Lock()
	if op == domain.OpCreate {
		result.Created++
	} else {
		result.Updated++
	}
	e.mu.Unlock()
}

func (e *Executor) setManifest(path, hash, sourceProject string, at time.Time) {
	if e.Manifest == nil {
		return
	}
	e.mu.Lock()
	e.Manifest.Set(path, hash, sourceProject, at)
	e.mu.Unlock()
}

func (e *Executor) refreshCache(entry domain.PlanEntry, content []byte) {
	if e.Cache == nil || e.Org == "" || entry.SourceProject == "" {
		return
	}
	ref := domain.Reference{Org: e.Org, Project: entry.SourceProject, Path: entry.Path}
	resolved := domain.ResolvedReference{
		Reference: ref,
		CachePath: ref.Key(),
		Source:    domain.SourceVersionControl,
	}
	contentType := mime.TypeByExtension(filepath.Ext(entry.Path))
	if contentType == "" {
		contentType = "text/plain"
	}
	_ = e.Cache.Set(resolved, domain.FetchResult{
		Content:     content,
		ContentType: contentType,
		Size:        int64(len(content)),
		Source:      "sync",
	}, 0)
}
