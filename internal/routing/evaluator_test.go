package routing

import (
	"testing"

	"codex/internal/domain"
	"codex/internal/metadata"
)

func TestShouldInclude_Rules(t *testing.T) {
	e := &Evaluator{}

	tests := []struct {
		name  string
		path  string
		rules domain.DirectionRules
		want  bool
	}{
		{
			name:  "include match",
			path:  "docs/api.md",
			rules: domain.DirectionRules{Include: []string{"docs/**"}},
			want:  true,
		},
		{
			name:  "no include match",
			path:  "src/main.go",
			rules: domain.DirectionRules{Include: []string{"docs/**"}},
			want:  false,
		},
		{
			name:  "exclude beats include",
			path:  "docs/internal/keys.md",
			rules: domain.DirectionRules{Include: []string{"docs/**"}, Exclude: []string{"docs/internal/**"}},
			want:  false,
		},
		{
			name:  "empty include with exclude means everything else",
			path:  "any/file.txt",
			rules: domain.DirectionRules{Exclude: []string{"secrets/**"}},
			want:  true,
		},
		{
			name:  "empty include with matching exclude",
			path:  "secrets/key.pem",
			rules: domain.DirectionRules{Exclude: []string{"secrets/**"}},
			want:  false,
		},
		{
			name:  "brace alternation",
			path:  "guides/setup.mdx",
			rules: domain.DirectionRules{Include: []string{"guides/*.{md,mdx}"}},
			want:  true,
		},
		{
			name:  "single segment wildcard does not recurse",
			path:  "docs/deep/nested.md",
			rules: domain.DirectionRules{Include: []string{"docs/*.md"}},
			want:  false,
		},
		{
			name:  "non-markdown content is eligible",
			path:  "schemas/events.json",
			rules: domain.DirectionRules{Include: []string{"schemas/**"}},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ShouldInclude(Input{Path: tt.path, Rules: tt.rules})
			if err != nil {
				t.Fatalf("ShouldInclude failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldInclude(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestShouldInclude_CallerIntersectsRules(t *testing.T) {
	e := &Evaluator{}
	rules := domain.DirectionRules{Include: []string{"docs/**", "specs/**"}}

	// In the rules and in the caller filter: included.
	got, err := e.ShouldInclude(Input{
		Path:   "docs/api.md",
		Rules:  rules,
		Caller: CallerFilter{Include: []string{"docs/**"}},
	})
	if err != nil || !got {
		t.Errorf("docs/api.md should survive both tiers (got %v, err %v)", got, err)
	}

	// In the rules but filtered out by the caller: the caller narrows,
	// never widens.
	got, _ = e.ShouldInclude(Input{
		Path:   "specs/WORK-1.md",
		Rules:  rules,
		Caller: CallerFilter{Include: []string{"docs/**"}},
	})
	if got {
		t.Error("specs/WORK-1.md matches rules but not the caller filter; must be excluded")
	}

	// In the caller filter but not in the rules: still excluded.
	got, _ = e.ShouldInclude(Input{
		Path:   "src/main.go",
		Rules:  rules,
		Caller: CallerFilter{Include: []string{"src/**"}},
	})
	if got {
		t.Error("caller filter must not pull in files the rules reject")
	}

	// Caller exclude vetoes a rules match.
	got, _ = e.ShouldInclude(Input{
		Path:   "docs/draft.md",
		Rules:  rules,
		Caller: CallerFilter{Exclude: []string{"**/draft.md"}},
	})
	if got {
		t.Error("caller exclude must veto")
	}
}

func TestShouldInclude_MetadataFallback(t *testing.T) {
	meta := &metadata.Metadata{SyncInclude: []string{"docs/**"}}

	// Disabled by default: metadata patterns are ignored.
	e := &Evaluator{}
	got, _ := e.ShouldInclude(Input{Path: "docs/api.md", Meta: meta})
	if got {
		t.Error("metadata routing must be off unless configured")
	}

	// Enabled, no configured rules: metadata decides.
	e = &Evaluator{UseFileMetadata: true}
	got, _ = e.ShouldInclude(Input{Path: "docs/api.md", Meta: meta})
	if !got {
		t.Error("metadata include should apply when enabled")
	}

	// Configured rules always beat metadata.
	got, _ = e.ShouldInclude(Input{
		Path:  "docs/api.md",
		Meta:  meta,
		Rules: domain.DirectionRules{Include: []string{"specs/**"}},
	})
	if got {
		t.Error("configured rules take precedence over metadata")
	}
}

func TestShouldInclude_PluralLegacyEquivalence(t *testing.T) {
	e := &Evaluator{UseFileMetadata: true}

	canonical, err := metadata.Parse("---\nsync_include: [\"docs/**\"]\n---\nx", metadata.Options{})
	if err != nil {
		t.Fatal(err)
	}
	plural, err := metadata.Parse("---\nsync_includes: [\"docs/**\"]\n---\nx", metadata.Options{})
	if err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"docs/api.md", "src/main.go"} {
		a, _ := e.ShouldInclude(Input{Path: path, Meta: &canonical.Metadata})
		b, _ := e.ShouldInclude(Input{Path: path, Meta: &plural.Metadata})
		if a != b {
			t.Errorf("path %q: canonical=%v plural=%v, must be identical", path, a, b)
		}
	}
}

func TestPlaceholderExpansion(t *testing.T) {
	e := &Evaluator{}
	ph := Placeholders{Org: "acme", Project: "payments", SharedRepo: "codex"}

	got, err := e.ShouldInclude(Input{
		Path:         "payments/docs/api.md",
		Rules:        domain.DirectionRules{Include: []string{"{project}/docs/**"}},
		Placeholders: ph,
	})
	if err != nil {
		t.Fatalf("ShouldInclude failed: %v", err)
	}
	if !got {
		t.Error("placeholder {project} should expand before matching")
	}

	got, _ = e.ShouldInclude(Input{
		Path:         "billing/docs/api.md",
		Rules:        domain.DirectionRules{Include: []string{"{project}/docs/**"}},
		Placeholders: ph,
	})
	if got {
		t.Error("expanded pattern must not match another project")
	}
}

func TestShouldInclude_BadPattern(t *testing.T) {
	e := &Evaluator{}
	_, err := e.ShouldInclude(Input{
		Path:  "docs/api.md",
		Rules: domain.DirectionRules{Include: []string{"docs/[**"}},
	})
	if err == nil {
		t.Fatal("expected RoutingError for malformed pattern")
	}
}
