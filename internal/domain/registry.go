package domain

import (
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultTTL applies when no registered artifact type matches a path.
const DefaultTTL = time.Hour

// ArtifactType maps path patterns to cache TTL and archive behavior.
// Multiple types may match a path; the lowest Priority value wins, ties
// broken by registration order.
type ArtifactType struct {
	Name     string
	Patterns []string
	TTL      time.Duration

	// ArchiveAfterDays hints when content of this type becomes
	// archive-eligible. Zero means never.
	ArchiveAfterDays int

	Priority int
}

// Matches reports whether any of the type's patterns match the path.
// Patterns support **, * and brace alternation.
func (t ArtifactType) Matches(path string) bool {
	for _, p := range t.Patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}

// TypeRegistry holds the ordered set of artifact types. Built-ins are
// registered first, so a custom type can override a built-in either by
// reusing its name or by declaring a lower priority number.
type TypeRegistry struct {
	types  []ArtifactType
	byName map[string]int // name -> index in types
}

// BuiltinTypes ship with the registry.
var BuiltinTypes = []ArtifactType{
	{
		Name:     "documentation",
		Patterns: []string{"**/*.md", "docs/**"},
		TTL:      24 * time.Hour,
		Priority: 100,
	},
	{
		Name:     "specs",
		Patterns: []string{"specs/**"},
		TTL:      7 * 24 * time.Hour,
		Priority: 50,
	},
	{
		Name:     "config",
		Patterns: []string{"**/*.{yaml,yml,json}", ".codex/**"},
		TTL:      time.Hour,
		Priority: 40,
	},
	{
		Name:             "logs",
		Patterns:         []string{"logs/**", "**/*.log"},
		TTL:              time.Hour,
		ArchiveAfterDays: 30,
		Priority:         40,
	},
}

// NewTypeRegistry creates a registry pre-loaded with the built-in types.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{byName: make(map[string]int)}
	for _, t := range BuiltinTypes {
		r.Register(t)
	}
	return r
}

// Register adds a type. A type with the same name as an existing one
// replaces it in place, keeping its original registration order.
func (r *TypeRegistry) Register(t ArtifactType) {
	if i, ok := r.byName[t.Name]; ok {
		r.types[i] = t
		return
	}
	r.byName[t.Name] = len(r.types)
	r.types = append(r.types, t)
}

// Get returns the named type.
func (r *TypeRegistry) Get(name string) (ArtifactType, bool) {
	i, ok := r.byName[name]
	if !ok {
		return ArtifactType{}, false
	}
	return r.types[i], true
}

// List returns all registered types in registration order.
func (r *TypeRegistry) List() []ArtifactType {
	out := make([]ArtifactType, len(r.types))
	copy(out, r.types)
	return out
}

// TypeFor returns the matching type with the lowest priority value.
// Ties are broken by registration order.
func (r *TypeRegistry) TypeFor(path string) (ArtifactType, bool) {
	var best ArtifactType
	found := false
	for _, t := range r.types {
		if !t.Matches(path) {
			continue
		}
		if !found || t.Priority < best.Priority {
			best = t
			found = true
		}
	}
	return best, found
}

// TTLFor returns the cache TTL for a path, or DefaultTTL when no type
// matches. Deterministic for a given registry state.
func (r *TypeRegistry) TTLFor(path string) time.Duration {
	if t, ok := r.TypeFor(path); ok {
		return t.TTL
	}
	return DefaultTTL
}
