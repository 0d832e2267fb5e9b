// Package resolver turns parsed references into resolved references:
// where the content lives and how it should be fetched, given the
// runtime context of the current process.
package resolver

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"codex/internal/config"
	"codex/internal/domain"
)

// Resolver computes ResolvedReferences. Resolution is a pure function
// of the reference and the context; results are cheap and never cached.
type Resolver struct {
	ctx *config.Context
}

// New creates a Resolver bound to the runtime context.
func New(ctx *config.Context) *Resolver {
	return &Resolver{ctx: ctx}
}

// Resolve annotates a reference with its fetch source and paths.
//
// Current-project references that fall under an artifact source are
// served straight from that source's directory and get no cache path:
// those files are the source of truth and must never go stale behind a
// cache. Everything else gets the deterministic org/project/path cache
// location.
func (r *Resolver) Resolve(ref domain.Reference) (domain.ResolvedReference, error) {
	if err := ref.Validate(); err != nil {
		return domain.ResolvedReference{}, err
	}

	resolved := domain.ResolvedReference{Reference: ref}
	resolved.IsCurrentProject = ref.Org == r.ctx.Org && ref.Project == r.ctx.Project

	if resolved.IsCurrentProject {
		if src, ok := r.matchArtifactSource(ref.Path); ok {
			resolved.Source = domain.SourceArtifact
			resolved.ArtifactSource = src.Name
			resolved.LocalPath = artifactLocalPath(src, ref.Path)
			return resolved, nil
		}
		resolved.Source = domain.SourceLocal
		resolved.LocalPath = filepath.Join(r.ctx.WorkingDir, filepath.FromSlash(ref.Path))
		resolved.CachePath = ref.Key()
		return resolved, nil
	}

	resolved.Source = domain.SourceVersionControl
	resolved.CachePath = ref.Key()
	return resolved, nil
}

// matchArtifactSource finds the first artifact source (by name order)
// whose patterns match the path. A source with no declared patterns
// defaults to serving paths under its own name.
func (r *Resolver) matchArtifactSource(path string) (domain.ArtifactSource, bool) {
	for _, src := range r.ctx.ArtifactSources {
		patterns := src.Patterns
		if len(patterns) == 0 {
			patterns = []string{src.Name + "/**"}
		}
		for _, p := range patterns {
			if ok, err := doublestar.Match(p, path); err == nil && ok {
				return src, true
			}
		}
	}
	return domain.ArtifactSource{}, false
}

// artifactLocalPath maps a reference path into a source's base
// directory. When the path's first segment is the source name, the
// segment is dropped: source "specs" at ./specs serves
// specs/WORK-1.md from ./specs/WORK-1.md.
func artifactLocalPath(src domain.ArtifactSource, path string) string {
	rel := path
	if strings.HasPrefix(path, src.Name+"/") {
		rel = strings.TrimPrefix(path, src.Name+"/")
	}
	return filepath.Join(src.BasePath, filepath.FromSlash(rel))
}
