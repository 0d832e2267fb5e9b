package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codex/internal/domain"
)

const sampleConfig = `
organization: acme
project: payments
shared_repository: git@example.com:acme/codex.git

providers:
  - type: local
    root: .
  - type: archive
  - type: git
    remote: git@example.com:acme/codex.git
  - type: http
    base_url: https://docs.example.com
    token_env: DOCS_TOKEN

types:
  - name: runbooks
    patterns: ["runbooks/**"]
    ttl: 12h
    priority: 10

artifact_sources:
  specs:
    path: ./specs
    patterns: ["specs/**"]

sync:
  from_codex:
    include: ["docs/**"]
    exclude: ["docs/internal/**"]
  defaults:
    from_codex:
      include: ["shared/**"]
  conflict_strategy: newest

archive:
  enabled: true
  handler: codex-store
  backend: s3
  bucket: acme-archive
  prefix: archive

cache:
  root: .codex/cache
  memory_budget: 1048576
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Organization != "acme" || cfg.Project != "payments" {
		t.Errorf("identity = %s/%s, want acme/payments", cfg.Organization, cfg.Project)
	}
	if len(cfg.Providers) != 4 {
		t.Fatalf("got %d providers, want 4", len(cfg.Providers))
	}
	if cfg.Providers[3].TokenEnv != "DOCS_TOKEN" {
		t.Errorf("http token env = %q", cfg.Providers[3].TokenEnv)
	}
	if got := cfg.Types[0].TTL.Std(); got != 12*time.Hour {
		t.Errorf("custom type ttl = %v, want 12h", got)
	}
	if cfg.Sync.ConflictStrategy != domain.StrategyNewest {
		t.Errorf("conflict strategy = %q", cfg.Sync.ConflictStrategy)
	}
	if !cfg.Archive.Enabled || cfg.Archive.Handler != "codex-store" {
		t.Errorf("archive = %+v", cfg.Archive)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	var cerr *domain.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Errorf("expected ConfigurationError, got %T", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{"missing org", "project: p\n", "organization"},
		{"missing project", "organization: o\n", "project"},
		{"bad provider type", "organization: o\nproject: p\nproviders:\n  - type: ftp\n", "unknown provider type"},
		{"artifact source without path", "organization: o\nproject: p\nartifact_sources:\n  x: {}\n", "path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestRuleSet_ProjectReplacesDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	rs := cfg.RuleSet()
	// from_codex is declared by the project, so the default must not
	// leak in.
	if len(rs.FromCodex.Include) != 1 || rs.FromCodex.Include[0] != "docs/**" {
		t.Errorf("FromCodex.Include = %v, want project's own", rs.FromCodex.Include)
	}
	// to_codex is absent, so the (empty) default applies.
	if !rs.ToCodex.Empty() {
		t.Errorf("ToCodex = %+v, want empty", rs.ToCodex)
	}
}

func TestRuleSet_DefaultWhenProjectSilent(t *testing.T) {
	cfg := &Config{Organization: "o", Project: "p"}
	cfg.Sync.Defaults.FromCodex = domain.DirectionRules{Include: []string{"shared/**"}}

	rs := cfg.RuleSet()
	if len(rs.FromCodex.Include) != 1 || rs.FromCodex.Include[0] != "shared/**" {
		t.Errorf("FromCodex = %+v, want org default", rs.FromCodex)
	}
}

func TestNewContext(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	dir := t.TempDir()
	ctx, err := NewContext(cfg, dir)
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}

	if ctx.CacheRoot != filepath.Join(dir, ".codex", "cache") {
		t.Errorf("CacheRoot = %q", ctx.CacheRoot)
	}
	if ctx.MemoryBudget != 1048576 {
		t.Errorf("MemoryBudget = %d", ctx.MemoryBudget)
	}
	if len(ctx.ArtifactSources) != 1 || ctx.ArtifactSources[0].Name != "specs" {
		t.Errorf("ArtifactSources = %+v", ctx.ArtifactSources)
	}
	// Custom type from config must be registered.
	if got := ctx.Registry.TTLFor("runbooks/deploy.md"); got != 12*time.Hour {
		t.Errorf("custom type TTL = %v, want 12h", got)
	}
}

func TestPath_EnvOverride(t *testing.T) {
	t.Setenv("CODEX_CONFIG", "/tmp/custom.yaml")
	if got := Path("/work"); got != "/tmp/custom.yaml" {
		t.Errorf("Path = %q", got)
	}

	t.Setenv("CODEX_CONFIG", "")
	if got := Path("/work"); got != filepath.Join("/work", DefaultConfigName) {
		t.Errorf("Path = %q", got)
	}
}
