package config

import (
	"os"
	"path/filepath"
	"sort"

	"codex/internal/domain"
)

// Context carries the per-invocation runtime state every component
// needs: identity, locations, and the artifact-source table. It is
// built once at startup and threaded through constructors; no component
// reads ambient global state.
type Context struct {
	// Org and Project identify the current project.
	Org     string
	Project string

	// WorkingDir is the project root this process runs in.
	WorkingDir string

	// CacheRoot is the disk cache directory.
	CacheRoot string

	// SharedRepository is the local checkout of the shared knowledge
	// repository, when configured.
	SharedRepository string

	// ArtifactSources are the current project's named local trees,
	// sorted by name for deterministic matching order.
	ArtifactSources []domain.ArtifactSource

	// MemoryBudget bounds the in-memory cache tier in bytes.
	MemoryBudget int64

	// Archive settings for the cold-archive provider.
	Archive ArchiveConfig

	// Registry is the artifact-type registry (built-ins plus config
	// overrides).
	Registry *domain.TypeRegistry
}

// NewContext builds the runtime context from a loaded config and the
// working directory. Relative paths in the config resolve against dir.
func NewContext(cfg *Config, dir string) (*Context, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}

	cacheRoot := cfg.Cache.Root
	if cacheRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cacheRoot = filepath.Join(home, ".codex", "cache")
	}
	cacheRoot = expandPath(cacheRoot, dir)

	budget := cfg.Cache.MemoryBudget
	if budget <= 0 {
		budget = DefaultMemoryBudget
	}

	registry := domain.NewTypeRegistry()
	for _, t := range cfg.Types {
		registry.Register(domain.ArtifactType{
			Name:             t.Name,
			Patterns:         t.Patterns,
			TTL:              t.TTL.Std(),
			ArchiveAfterDays: t.ArchiveAfterDays,
			Priority:         t.Priority,
		})
	}

	var sources []domain.ArtifactSource
	for name, src := range cfg.ArtifactSources {
		sources = append(sources, domain.ArtifactSource{
			Name:     name,
			BasePath: expandPath(src.Path, dir),
			Patterns: src.Patterns,
			Remote:   src.Remote,
		})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })

	shared := cfg.SharedRepository
	if shared != "" {
		shared = expandPath(shared, dir)
	}

	return &Context{
		Org:              cfg.Organization,
		Project:          cfg.Project,
		WorkingDir:       dir,
		CacheRoot:        cacheRoot,
		SharedRepository: shared,
		ArtifactSources:  sources,
		MemoryBudget:     budget,
		Archive:          cfg.Archive,
		Registry:         registry,
	}, nil
}

// expandPath resolves ~ and relative paths against base.
func expandPath(path, base string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	if !filepath.IsAbs(path) {
		return filepath.Join(base, path)
	}
	return path
}
