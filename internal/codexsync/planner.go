package codexsync

import (
	"fmt"
	"os"
	"path/filepath"

	"codex/internal/domain"
)

// Planner computes the operations that would bring one side up to date
// with the other. Planning never touches the filesystem beyond reads;
// the executor applies the plan.
type Planner struct {
	// ProjectRoot is the local project directory.
	ProjectRoot string

	// SharedRoot is the shared repository checkout.
	SharedRoot string

	// Project is the current project's name, the destination subtree
	// for pushes.
	Project string

	// Manifest is the last-synced baseline. Both conflict detection
	// and upstream-delete propagation depend on it.
	Manifest *Manifest

	// CallerNarrowed is true when an invocation-time include/exclude
	// filter shaped the routed set. A narrowed run cannot tell "no
	// longer routed upstream" apart from "filtered out this run", so
	// delete planning is suspended entirely.
	CallerNarrowed bool
}

// PlanFromCodex diffs the routed shared-repository files against the
// local project.
//
// A file is a conflict when both sides differ from the manifest
// baseline, or when both sides exist with different content and no
// baseline was ever recorded. Paths recorded in the manifest but no
// longer routed from the shared repository become deletes, except on a
// caller-narrowed run, where absence from the routed set proves
// nothing.
func (p *Planner) PlanFromCodex(routed []domain.RoutedFile) (*domain.SyncPlan, error) {
	plan := &domain.SyncPlan{Direction: domain.FromCodex}
	seen := make(map[string]bool, len(routed))

	for _, rf := range routed {
		seen[rf.RelPath] = true

		dest := filepath.Join(p.ProjectRoot, filepath.FromSlash(rf.RelPath))
		entry := domain.PlanEntry{
			Path:          rf.RelPath,
			SourceProject: rf.SourceProject,
			Source:        filepath.Join(p.SharedRoot, filepath.FromSlash(rf.Path)),
			Dest:          dest,
			SourceMTime:   rf.MTime,
		}

		local, exists, err := statLocal(dest)
		if err != nil {
			return nil, err
		}
		switch {
		case !exists:
			entry.Op = domain.OpCreate
		case local.Hash == rf.Hash:
			entry.Op = domain.OpNoop
			entry.DestMTime = local.MTime
		default:
			entry.Op = domain.OpUpdate
			entry.DestMTime = local.MTime
			entry.Conflict = p.bothChanged(rf.RelPath, local.Hash, rf.Hash)
		}
		plan.Add(entry)
	}

	if p.Manifest != nil && !p.CallerNarrowed {
		for _, path := range p.Manifest.Paths() {
			if seen[path] {
				continue
			}
			dest := filepath.Join(p.ProjectRoot, filepath.FromSlash(path))
			local, exists, err := statLocal(dest)
			if err != nil {
				return nil, err
			}
			if !exists {
				// Already gone locally; the executor just drops the record.
				plan.Add(domain.PlanEntry{Path: path, Op: domain.OpDelete, Dest: dest})
				continue
			}
			base, _ := p.Manifest.Get(path)
			plan.Add(domain.PlanEntry{
				Path: path,
				Op:   domain.OpDelete,
				Dest: dest,
				// Deleting local edits needs an explicit resolution.
				Conflict:  local.Hash != base.Hash,
				DestMTime: local.MTime,
			})
		}
	}

	return plan, nil
}

// PlanToCodex diffs local routed files against the project's subtree
// in the shared repository. Pushes never delete from the shared
// repository: removals are a reviewed operation there, not a sync side
// effect.
func (p *Planner) PlanToCodex(local []domain.LocalFile) (*domain.SyncPlan, error) {
	plan := &domain.SyncPlan{Direction: domain.ToCodex}

	for _, lf := range local {
		dest := filepath.Join(p.SharedRoot, p.Project, filepath.FromSlash(lf.Path))
		entry := domain.PlanEntry{
			Path:          lf.Path,
			SourceProject: p.Project,
			Source:        filepath.Join(p.ProjectRoot, filepath.FromSlash(lf.Path)),
			Dest:          dest,
			SourceMTime:   lf.MTime,
		}

		remote, exists, err := statLocal(dest)
		if err != nil {
			return nil, err
		}
		switch {
		case !exists:
			entry.Op = domain.OpCreate
		case remote.Hash == lf.Hash:
			entry.Op = domain.OpNoop
			entry.DestMTime = remote.MTime
		default:
			entry.Op = domain.OpUpdate
			entry.DestMTime = remote.MTime
			entry.Conflict = p.bothChanged(lf.Path, remote.Hash, lf.Hash)
		}
		plan.Add(entry)
	}

	return plan, nil
}

// bothChanged reports whether neither side matches the manifest
// baseline. Without a baseline any divergence counts as a conflict.
func (p *Planner) bothChanged(path, localHash, remoteHash string) bool {
	if p.Manifest == nil {
		return true
	}
	base, ok := p.Manifest.Get(path)
	if !ok {
		return true
	}
	return localHash != base.Hash && remoteHash != base.Hash
}

// statLocal hashes an existing file, distinguishing absence from
// failure.
func statLocal(path string) (domain.LocalFile, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.LocalFile{}, false, nil
		}
		return domain.LocalFile{}, false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	hash, err := hashFile(path)
	if err != nil {
		return domain.LocalFile{}, false, err
	}
	return domain.LocalFile{Path: path, Size: info.Size(), MTime: info.ModTime(), Hash: hash}, true, nil
}
