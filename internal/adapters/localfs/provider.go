// Package localfs serves references from the local filesystem: the
// current project's working tree and configured artifact sources.
package localfs

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"codex/internal/domain"
	"codex/internal/ports"
)

// Provider serves current-project references from the working tree.
type Provider struct {
	name string
}

var _ ports.StorageProvider = (*Provider)(nil)
var _ ports.Writer = (*Provider)(nil)

// New creates the local filesystem provider.
func New() *Provider {
	return &Provider{name: "local"}
}

// Name implements ports.StorageProvider.
func (p *Provider) Name() string { return p.name }

// CanHandle accepts references resolved to a local path.
func (p *Provider) CanHandle(ref domain.ResolvedReference) bool {
	return ref.LocalPath != "" &&
		(ref.Source == domain.SourceLocal || ref.Source == domain.SourceArtifact)
}

// Fetch reads the file at the resolved local path.
func (p *Provider) Fetch(_ context.Context, ref domain.ResolvedReference) (domain.FetchResult, error) {
	content, err := os.ReadFile(ref.LocalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.FetchResult{}, fmt.Errorf("%s: %w", ref.LocalPath, domain.ErrNotFound)
		}
		if os.IsPermission(err) {
			return domain.FetchResult{}, fmt.Errorf("%s: %w", ref.LocalPath, domain.ErrUnauthorized)
		}
		return domain.FetchResult{}, fmt.Errorf("failed to read %s: %w", ref.LocalPath, err)
	}

	source := p.name
	if ref.Source == domain.SourceArtifact {
		source = "artifact-source:" + ref.ArtifactSource
	}

	return domain.FetchResult{
		Content:     content,
		ContentType: ContentType(ref.Path),
		Size:        int64(len(content)),
		Source:      source,
	}, nil
}

// Exists implements ports.StorageProvider.
func (p *Provider) Exists(_ context.Context, ref domain.ResolvedReference) (bool, error) {
	info, err := os.Stat(ref.LocalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// Write persists content at the resolved local path, creating parent
// directories as needed. Used by the sync executor.
func (p *Provider) Write(_ context.Context, ref domain.ResolvedReference, content []byte) error {
	if ref.LocalPath == "" {
		return fmt.Errorf("reference %s has no local path", ref.URI())
	}
	if err := os.MkdirAll(filepath.Dir(ref.LocalPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := os.WriteFile(ref.LocalPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ref.LocalPath, err)
	}
	return nil
}

// ContentType guesses a MIME type from the path extension, defaulting
// to text/plain for extension-less and unknown files.
func ContentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "text/plain"
}
