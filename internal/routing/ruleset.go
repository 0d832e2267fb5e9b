package routing

import "strings"

// Placeholders are the tokens expanded inside rule-set patterns at
// evaluation time.
type Placeholders struct {
	Org        string
	Project    string
	SharedRepo string
}

// Expand replaces {org}, {project} and {sharedRepo} in a pattern.
func (p Placeholders) Expand(pattern string) string {
	r := strings.NewReplacer(
		"{org}", p.Org,
		"{project}", p.Project,
		"{sharedRepo}", p.SharedRepo,
	)
	return r.Replace(pattern)
}

// ExpandAll expands every pattern in the list.
func (p Placeholders) ExpandAll(patterns []string) []string {
	if len(patterns) == 0 {
		return nil
	}
	out := make([]string, len(patterns))
	for i, pat := range patterns {
		out[i] = p.Expand(pat)
	}
	return out
}
