// Package routing decides which files belong to which project's sync
// scope, from config-declared rule sets or, as a deprecated fallback,
// per-file metadata patterns.
package routing

import (
	"github.com/bmatcuk/doublestar/v4"

	"codex/internal/domain"
	"codex/internal/metadata"
)

// CallerFilter is an include/exclude narrowing supplied at invocation
// time (e.g. CLI flags). It intersects with the configured rules: a
// file must survive both to be included.
type CallerFilter struct {
	Include []string
	Exclude []string
}

// Empty reports whether the caller supplied no narrowing.
func (f CallerFilter) Empty() bool {
	return len(f.Include) == 0 && len(f.Exclude) == 0
}

// Evaluator applies routing precedence. Rule-set patterns come from
// config (the project's own rules, or the org default resolved before
// the evaluator sees them); per-file metadata patterns are consulted
// only when explicitly enabled.
type Evaluator struct {
	// UseFileMetadata enables the legacy per-file sync_include /
	// sync_exclude header fields.
	UseFileMetadata bool
}

// Input is everything needed for one inclusion decision.
type Input struct {
	// Path is the candidate file path, relative to the source
	// project's subtree.
	Path string

	// Meta is the file's parsed header, nil when not read.
	Meta *metadata.Metadata

	// Rules are the directional rules for the target project (already
	// resolved against the org default).
	Rules domain.DirectionRules

	// Caller narrows the scope further; it never replaces Rules.
	Caller CallerFilter

	Placeholders Placeholders
}

// ShouldInclude decides whether the file is in scope.
//
// Precedence, highest first: the caller filter intersects with the
// configured rules; configured rules decide inclusion when present;
// legacy metadata patterns apply only when no rules are configured and
// metadata routing is enabled. A file with no applicable include
// pattern anywhere is out of scope.
func (e *Evaluator) ShouldInclude(in Input) (bool, error) {
	// The caller filter can only veto, so check it first.
	if !in.Caller.Empty() {
		ok, err := matches(in.Path, in.Caller.Include, in.Caller.Exclude, in.Placeholders)
		if err != nil || !ok {
			return false, err
		}
	}

	if !in.Rules.Empty() {
		return matches(in.Path, in.Rules.Include, in.Rules.Exclude, in.Placeholders)
	}

	if e.UseFileMetadata && in.Meta != nil {
		if len(in.Meta.SyncInclude) > 0 || len(in.Meta.SyncExclude) > 0 {
			return matches(in.Path, in.Meta.SyncInclude, in.Meta.SyncExclude, in.Placeholders)
		}
	}

	// No rules anywhere: only a caller include list can pull the file in.
	return len(in.Caller.Include) > 0, nil
}

// matches implements the include/exclude semantics: at least one
// include must match (an empty include list with a non-empty exclude
// list means "everything not excluded") and no exclude may match.
func matches(path string, include, exclude []string, ph Placeholders) (bool, error) {
	for _, pat := range ph.ExpandAll(exclude) {
		ok, err := doublestar.Match(pat, path)
		if err != nil {
			return false, &domain.RoutingError{Pattern: pat, Err: err}
		}
		if ok {
			return false, nil
		}
	}

	if len(include) == 0 {
		return len(exclude) > 0, nil
	}

	for _, pat := range ph.ExpandAll(include) {
		ok, err := doublestar.Match(pat, path)
		if err != nil {
			return false, &domain.RoutingError{Pattern: pat, Err: err}
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
