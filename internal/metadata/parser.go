// Package metadata extracts the declarative header block carried at the
// top of a document and folds historical field-name variants into the
// canonical shape.
package metadata

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// marker delimits the header block at the top of a document.
const marker = "---"

// Metadata is the declared header of a document. Recognized fields are
// typed; everything else passes through in Extra.
type Metadata struct {
	Title string `yaml:"title,omitempty"`
	Type  string `yaml:"type,omitempty"`

	// SyncInclude and SyncExclude are the legacy per-file routing
	// patterns, consulted only when file-metadata routing is enabled.
	SyncInclude []string `yaml:"sync_include,omitempty"`
	SyncExclude []string `yaml:"sync_exclude,omitempty"`

	// Extra holds fields this system does not interpret.
	Extra map[string]any `yaml:"-"`
}

// Empty reports whether nothing was declared.
func (m Metadata) Empty() bool {
	return m.Title == "" && m.Type == "" &&
		len(m.SyncInclude) == 0 && len(m.SyncExclude) == 0 && len(m.Extra) == 0
}

// Result is the outcome of a Parse call.
type Result struct {
	Metadata Metadata
	// Content is the document body with the header block removed.
	Content string
	// Raw is the header block text, empty when no header was present.
	Raw string
}

// Options controls parse behavior.
type Options struct {
	// Strict makes header parse failures fatal. Non-strict mode treats
	// a malformed header as no metadata at all.
	Strict bool
}

// recognized keys, including every legacy variant we normalize.
var recognizedKeys = map[string]bool{
	"title":         true,
	"type":          true,
	"sync_include":  true,
	"sync_exclude":  true,
	"sync_includes": true,
	"sync_excludes": true,
	"sync":          true,
}

// Parse extracts and normalizes the header block. Line endings are
// normalized first; a document without a header comes back unchanged
// with empty metadata.
func Parse(content string, opts Options) (Result, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	raw, body, ok := splitHeader(content)
	if !ok {
		return Result{Content: content}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal([]byte(raw), &fields); err != nil {
		if opts.Strict {
			return Result{}, fmt.Errorf("invalid metadata header: %w", err)
		}
		return Result{Content: content}, nil
	}

	meta, err := normalize(fields)
	if err != nil {
		if opts.Strict {
			return Result{}, err
		}
		return Result{Content: content}, nil
	}

	return Result{Metadata: meta, Content: body, Raw: raw}, nil
}

// HasHeader is a cheap presence check that avoids a full parse.
func HasHeader(content string) bool {
	_, _, ok := splitHeader(strings.ReplaceAll(content, "\r\n", "\n"))
	return ok
}

// ExtractRawHeader returns the raw header text, or "" when absent.
func ExtractRawHeader(content string) string {
	raw, _, _ := splitHeader(strings.ReplaceAll(content, "\r\n", "\n"))
	return raw
}

// splitHeader separates "---\n...\n---\n" fences at the very top of the
// document from the body. The closing fence must be a line that is
// exactly the marker.
func splitHeader(content string) (raw, body string, ok bool) {
	if !strings.HasPrefix(content, marker+"\n") {
		return "", content, false
	}
	rest := content[len(marker)+1:]

	lines := strings.Split(rest, "\n")
	for i, line := range lines {
		if line == marker {
			raw = strings.Join(lines[:i], "\n")
			body = strings.Join(lines[i+1:], "\n")
			body = strings.TrimPrefix(body, "\n")
			return raw, body, true
		}
	}
	return "", content, false
}

// normalize folds legacy shapes into the canonical fields. The nested
// legacy block and the pluralized flat keys both map onto sync_include
// and sync_exclude; canonical keys win when both are present.
func normalize(fields map[string]any) (Metadata, error) {
	var meta Metadata

	if v, ok := fields["title"]; ok {
		meta.Title, _ = v.(string)
	}
	if v, ok := fields["type"]; ok {
		meta.Type, _ = v.(string)
	}

	// Legacy nested shape: sync: {include: [...], exclude: [...]}
	if v, ok := fields["sync"]; ok {
		if block, ok := v.(map[string]any); ok {
			meta.SyncInclude = stringList(block["include"])
			meta.SyncExclude = stringList(block["exclude"])
		}
	}

	// Legacy flat plurals override the nested shape.
	if v, ok := fields["sync_includes"]; ok {
		meta.SyncInclude = stringList(v)
	}
	if v, ok := fields["sync_excludes"]; ok {
		meta.SyncExclude = stringList(v)
	}

	// Canonical keys take precedence over every legacy variant.
	if v, ok := fields["sync_include"]; ok {
		meta.SyncInclude = stringList(v)
	}
	if v, ok := fields["sync_exclude"]; ok {
		meta.SyncExclude = stringList(v)
	}

	for k, v := range fields {
		if recognizedKeys[k] {
			continue
		}
		if meta.Extra == nil {
			meta.Extra = make(map[string]any)
		}
		meta.Extra[k] = v
	}

	return meta, nil
}

func stringList(v any) []string {
	switch vv := v.(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{vv}
	default:
		return nil
	}
}
