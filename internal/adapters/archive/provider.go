// Package archive serves current-project references from cold storage
// via an external storage-access executable.
package archive

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"codex/internal/adapters/localfs"
	"codex/internal/config"
	"codex/internal/domain"
	"codex/internal/ports"
)

// DefaultPrefix is used when the archive section declares none.
const DefaultPrefix = "archive"

// Provider fetches archived content. It is only enabled for the
// current project and only for paths matching the configured archive
// patterns; an empty pattern list makes every path eligible.
type Provider struct {
	cfg      config.ArchiveConfig
	registry *domain.TypeRegistry
	tool     ports.ArchiveTool
}

var _ ports.StorageProvider = (*Provider)(nil)

// New creates the archive provider. The tool abstracts the external
// handler so tests can substitute canned bytes.
func New(cfg config.ArchiveConfig, registry *domain.TypeRegistry, tool ports.ArchiveTool) *Provider {
	return &Provider{cfg: cfg, registry: registry, tool: tool}
}

// Name implements ports.StorageProvider.
func (p *Provider) Name() string { return "archive" }

// CanHandle accepts current-project references matching the archive
// patterns, when archiving is enabled and the handler is available.
func (p *Provider) CanHandle(ref domain.ResolvedReference) bool {
	if !p.cfg.Enabled || !ref.IsCurrentProject {
		return false
	}
	if !p.tool.IsAvailable() {
		return false
	}
	if len(p.cfg.Patterns) == 0 {
		return true
	}
	for _, pat := range p.cfg.Patterns {
		if ok, err := doublestar.Match(pat, ref.Path); err == nil && ok {
			return true
		}
	}
	return false
}

// Fetch retrieves the archived bytes through the external handler.
func (p *Provider) Fetch(ctx context.Context, ref domain.ResolvedReference) (domain.FetchResult, error) {
	remotePath := p.RemotePath(ref.Reference)

	content, err := p.tool.ReadRemote(ctx, remotePath, p.cfg.Backend)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("archive fetch %s: %w", remotePath, err)
	}

	return domain.FetchResult{
		Content:     content,
		ContentType: localfs.ContentType(ref.Path),
		Size:        int64(len(content)),
		Source:      p.Name(),
	}, nil
}

// Exists implements ports.StorageProvider by attempting a read. The
// handler contract has no cheaper probe.
func (p *Provider) Exists(ctx context.Context, ref domain.ResolvedReference) (bool, error) {
	_, err := p.Fetch(ctx, ref)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// Remediation suggests the handler command that would make the missing
// content available.
func (p *Provider) Remediation(ref domain.ResolvedReference) string {
	handler := p.cfg.Handler
	if handler == "" {
		handler = "codex-store"
	}
	return fmt.Sprintf("archive the file with `%s write --backend %s %s`",
		handler, p.cfg.Backend, p.RemotePath(ref.Reference))
}

// RemotePath builds the deterministic archive location:
// {prefix}/{artifactTypeName}/{org}/{project}/{originalPath}. Paths
// with no matching artifact type file under "misc".
func (p *Provider) RemotePath(ref domain.Reference) string {
	prefix := p.cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	typeName := "misc"
	if t, ok := p.registry.TypeFor(ref.Path); ok {
		typeName = t.Name
	}

	return prefix + "/" + typeName + "/" + ref.Org + "/" + ref.Project + "/" + ref.Path
}
