package resolver

import (
	"path/filepath"
	"testing"

	"codex/internal/config"
	"codex/internal/domain"
)

func testContext(t *testing.T) *config.Context {
	t.Helper()
	return &config.Context{
		Org:        "acme",
		Project:    "payments",
		WorkingDir: "/work/payments",
		CacheRoot:  "/home/u/.codex/cache",
		ArtifactSources: []domain.ArtifactSource{
			{Name: "specs", BasePath: "/work/payments/specs", Patterns: []string{"specs/**"}},
		},
		Registry: domain.NewTypeRegistry(),
	}
}

func TestResolve_CurrentProjectLocal(t *testing.T) {
	r := New(testContext(t))

	got, err := r.Resolve(domain.Reference{Org: "acme", Project: "payments", Path: "docs/api.md"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if !got.IsCurrentProject {
		t.Error("expected IsCurrentProject")
	}
	if got.Source != domain.SourceLocal {
		t.Errorf("Source = %v, want local", got.Source)
	}
	if got.LocalPath != filepath.Join("/work/payments", "docs", "api.md") {
		t.Errorf("LocalPath = %q", got.LocalPath)
	}
	if got.CachePath != "acme/payments/docs/api.md" {
		t.Errorf("CachePath = %q", got.CachePath)
	}
}

func TestResolve_ArtifactSourceBypassesCache(t *testing.T) {
	r := New(testContext(t))

	got, err := r.Resolve(domain.Reference{Org: "acme", Project: "payments", Path: "specs/WORK-1.md"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if got.Source != domain.SourceArtifact {
		t.Errorf("Source = %v, want artifact-source", got.Source)
	}
	if got.ArtifactSource != "specs" {
		t.Errorf("ArtifactSource = %q", got.ArtifactSource)
	}
	if got.CachePath != "" {
		t.Errorf("CachePath = %q, want empty for artifact sources", got.CachePath)
	}
	if got.LocalPath != filepath.Join("/work/payments/specs", "WORK-1.md") {
		t.Errorf("LocalPath = %q", got.LocalPath)
	}
}

func TestResolve_ArtifactSourceOnlyForCurrentProject(t *testing.T) {
	r := New(testContext(t))

	// Same path shape, different project: artifact sources must not apply.
	got, err := r.Resolve(domain.Reference{Org: "acme", Project: "billing", Path: "specs/WORK-1.md"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if got.IsCurrentProject {
		t.Error("billing is not the current project")
	}
	if got.Source != domain.SourceVersionControl {
		t.Errorf("Source = %v, want version-control", got.Source)
	}
	if got.CachePath != "acme/billing/specs/WORK-1.md" {
		t.Errorf("CachePath = %q", got.CachePath)
	}
}

func TestResolve_DefaultSourcePatterns(t *testing.T) {
	ctx := testContext(t)
	ctx.ArtifactSources = []domain.ArtifactSource{
		{Name: "prompts", BasePath: "/work/payments/prompts"},
	}
	r := New(ctx)

	got, err := r.Resolve(domain.Reference{Org: "acme", Project: "payments", Path: "prompts/review.md"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.Source != domain.SourceArtifact {
		t.Errorf("Source = %v, want artifact-source via default pattern", got.Source)
	}
}

func TestResolve_InvalidReference(t *testing.T) {
	r := New(testContext(t))
	if _, err := r.Resolve(domain.Reference{Org: "", Project: "p", Path: "x"}); err == nil {
		t.Fatal("expected error for empty org")
	}
}
