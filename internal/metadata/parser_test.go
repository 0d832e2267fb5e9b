package metadata

import (
	"reflect"
	"testing"
)

func TestParse_NoHeader(t *testing.T) {
	content := "# Just a document\n\nNo header here.\n"

	res, err := Parse(content, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !res.Metadata.Empty() {
		t.Errorf("expected empty metadata, got %+v", res.Metadata)
	}
	if res.Content != content {
		t.Errorf("content changed: %q", res.Content)
	}
	if HasHeader(content) {
		t.Error("HasHeader should be false")
	}
}

func TestParse_Header(t *testing.T) {
	content := "---\ntitle: API Guide\ntype: documentation\nsync_include:\n  - \"docs/**\"\nowner: platform\n---\n# Body\n"

	res, err := Parse(content, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if res.Metadata.Title != "API Guide" {
		t.Errorf("Title = %q", res.Metadata.Title)
	}
	if got := res.Metadata.SyncInclude; !reflect.DeepEqual(got, []string{"docs/**"}) {
		t.Errorf("SyncInclude = %v", got)
	}
	if res.Metadata.Extra["owner"] != "platform" {
		t.Errorf("Extra = %v, want owner passthrough", res.Metadata.Extra)
	}
	if res.Content != "# Body\n" {
		t.Errorf("Content = %q", res.Content)
	}
	if !HasHeader(content) {
		t.Error("HasHeader should be true")
	}
	if ExtractRawHeader(content) == "" {
		t.Error("ExtractRawHeader should return the block")
	}
}

func TestParse_LegacyVariants(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		wantInclude []string
		wantExclude []string
	}{
		{
			name:        "canonical singular",
			header:      "sync_include: [\"a/**\"]\nsync_exclude: [\"b/**\"]",
			wantInclude: []string{"a/**"},
			wantExclude: []string{"b/**"},
		},
		{
			name:        "flat plural",
			header:      "sync_includes: [\"a/**\"]\nsync_excludes: [\"b/**\"]",
			wantInclude: []string{"a/**"},
			wantExclude: []string{"b/**"},
		},
		{
			name:        "nested legacy block",
			header:      "sync:\n  include: [\"a/**\"]\n  exclude: [\"b/**\"]",
			wantInclude: []string{"a/**"},
			wantExclude: []string{"b/**"},
		},
		{
			name:        "canonical wins over plural",
			header:      "sync_includes: [\"legacy/**\"]\nsync_include: [\"a/**\"]",
			wantInclude: []string{"a/**"},
		},
		{
			name:        "scalar promoted to list",
			header:      "sync_include: \"a/**\"",
			wantInclude: []string{"a/**"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse("---\n"+tt.header+"\n---\nbody\n", Options{})
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if !reflect.DeepEqual(res.Metadata.SyncInclude, tt.wantInclude) {
				t.Errorf("SyncInclude = %v, want %v", res.Metadata.SyncInclude, tt.wantInclude)
			}
			if !reflect.DeepEqual(res.Metadata.SyncExclude, tt.wantExclude) {
				t.Errorf("SyncExclude = %v, want %v", res.Metadata.SyncExclude, tt.wantExclude)
			}
		})
	}
}

func TestParse_MalformedHeader(t *testing.T) {
	content := "---\ntitle: [unclosed\n---\nbody\n"

	// Non-strict: malformed header degrades to no metadata.
	res, err := Parse(content, Options{})
	if err != nil {
		t.Fatalf("non-strict Parse failed: %v", err)
	}
	if !res.Metadata.Empty() {
		t.Errorf("expected empty metadata, got %+v", res.Metadata)
	}

	// Strict: the same input is fatal.
	if _, err := Parse(content, Options{Strict: true}); err == nil {
		t.Error("strict Parse should fail")
	}
}

func TestParse_CRLF(t *testing.T) {
	content := "---\r\ntitle: Windows\r\n---\r\nbody\r\n"

	res, err := Parse(content, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if res.Metadata.Title != "Windows" {
		t.Errorf("Title = %q", res.Metadata.Title)
	}
}

func TestParse_UnclosedFence(t *testing.T) {
	content := "---\ntitle: hmm\nno closing fence\n"

	res, err := Parse(content, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !res.Metadata.Empty() {
		t.Error("unclosed fence should yield no metadata")
	}
	if res.Content != content {
		t.Errorf("content changed: %q", res.Content)
	}
}
