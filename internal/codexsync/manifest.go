// Package codexsync moves routed files between the shared knowledge
// repository and the local project: scanning, planning, and executing
// one direction at a time.
package codexsync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ManifestName is the sync state file, relative to the project root.
const ManifestName = ".codex/sync-manifest.json"

// ManifestEntry records the last synced state of one file. The hash is
// the baseline for conflict detection: a side has "changed" when its
// current hash differs from this one.
type ManifestEntry struct {
	Hash          string    `json:"hash"`
	SourceProject string    `json:"source_project,omitempty"`
	SyncedAt      time.Time `json:"synced_at"`
}

// Manifest maps destination-relative paths to their last synced state.
// A path present here but absent upstream was deleted upstream.
type Manifest struct {
	path    string
	Entries map[string]ManifestEntry `json:"entries"`
}

// LoadManifest reads the manifest under projectRoot. A missing file is
// an empty manifest, not an error: the first sync has no baseline.
func LoadManifest(projectRoot string) (*Manifest, error) {
	m := &Manifest{
		path:    filepath.Join(projectRoot, filepath.FromSlash(ManifestName)),
		Entries: make(map[string]ManifestEntry),
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("failed to read sync manifest: %w", err)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("corrupt sync manifest %s: %w", m.path, err)
	}
	if m.Entries == nil {
		m.Entries = make(map[string]ManifestEntry)
	}
	return m, nil
}

// Save writes the manifest back, creating .codex if needed.
func (m *Manifest) Save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write sync manifest: %w", err)
	}
	return nil
}

// Get returns the recorded state for a destination-relative path.
func (m *Manifest) Get(path string) (ManifestEntry, bool) {
	e, ok := m.Entries[path]
	return e, ok
}

// Set records a freshly synced file.
func (m *Manifest) Set(path, hash, sourceProject string, at time.Time) {
	m.Entries[path] = ManifestEntry{Hash: hash, SourceProject: sourceProject, SyncedAt: at}
}

// Delete drops a path's record.
func (m *Manifest) Delete(path string) {
	delete(m.Entries, path)
}

// Paths returns the recorded paths in sorted order.
func (m *Manifest) Paths() []string {
	out := make([]string, 0, len(m.Entries))
	for p := range m.Entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
