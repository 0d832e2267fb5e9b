package domain

import "time"

// FetchResult is the content returned by every provider and by the
// cache manager.
type FetchResult struct {
	Content     []byte
	ContentType string
	Size        int64

	// Source identifies the provider that served the content
	// (e.g., "local", "git-remote", "http", "archive", "cache").
	Source string

	// FromCache is true when the result was served from a cache tier
	// rather than fetched from origin.
	FromCache bool
}

// CacheEntry is a cached document plus the metadata needed to judge
// validity without re-reading content.
type CacheEntry struct {
	Key         string // org/project/path
	Content     []byte
	ContentHash string // hex blake3 of Content
	ContentType string
	Size        int64
	CreatedAt   time.Time
	TTL         time.Duration
	Source      string // provider that produced the content
}

// Expired reports whether the entry is past its TTL at the given time.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.After(e.CreatedAt.Add(e.TTL))
}

// CacheStats reports per-tier entry counts and byte totals plus the
// running hit rate since process start.
type CacheStats struct {
	MemoryEntries int
	MemoryBytes   int64
	DiskEntries   int
	DiskBytes     int64
	Hits          int64
	Misses        int64
}

// HitRate returns hits / (hits + misses), or 0 when nothing was asked.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// ArtifactSource is a named local directory tree imported from project
// configuration. Resolution against an artifact source bypasses caching:
// the files on disk are the source of truth.
type ArtifactSource struct {
	Name     string
	BasePath string   // local directory root
	Patterns []string // paths (relative to the project) it serves
	Remote   string   // optional remote location, informational only
}

// DirectionRules are the include/exclude patterns for one sync direction.
type DirectionRules struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Empty reports whether no patterns are declared in either list.
func (r DirectionRules) Empty() bool {
	return len(r.Include) == 0 && len(r.Exclude) == 0
}

// SyncRuleSet declares, per project, which files move in which
// direction. A project rule set replaces the organization default at
// the granularity of each direction; there is no merging.
type SyncRuleSet struct {
	ToCodex   DirectionRules `yaml:"to_codex"`
	FromCodex DirectionRules `yaml:"from_codex"`
}

// Direction of a sync run.
type Direction int

const (
	// FromCodex pulls routed files from the shared repository into the
	// local project.
	FromCodex Direction = iota
	// ToCodex pushes local files into the shared repository.
	ToCodex
)

func (d Direction) String() string {
	if d == ToCodex {
		return "to_codex"
	}
	return "from_codex"
}

// RoutedFile is a file discovered in the shared repository that the
// routing evaluator accepted for a target project.
type RoutedFile struct {
	// Path is relative to the shared repository root.
	Path string

	// RelPath is the path relative to the source project's subtree,
	// i.e. where the file lands in the target project.
	RelPath string

	// SourceProject is derived from the file's path prefix.
	SourceProject string

	Size  int64
	MTime time.Time
	Hash  string
}

// LocalFile describes the local counterpart of a routed file.
type LocalFile struct {
	Path  string // relative to the project root
	Size  int64
	MTime time.Time
	Hash  string
}

// SyncOp classifies a planned operation.
type SyncOp int

const (
	OpCreate SyncOp = iota
	OpUpdate
	OpDelete
	OpNoop
)

func (o SyncOp) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "noop"
	}
}

// ConflictStrategy tells the executor how to resolve a both-sides-changed
// entry. StrategyReport leaves the conflict on the plan for the caller.
type ConflictStrategy string

const (
	StrategyReport ConflictStrategy = ""
	StrategyLocal  ConflictStrategy = "local"
	StrategyRemote ConflictStrategy = "remote"
	StrategyNewest ConflictStrategy = "newest"
	StrategySkip   ConflictStrategy = "skip"
)

// PlanEntry is one operation in a sync plan.
type PlanEntry struct {
	Path          string // destination-relative path
	Op            SyncOp
	SourceProject string

	// Conflict is true when both sides changed since the last synced
	// state recorded in the manifest.
	Conflict bool

	// Source and Dest are absolute filesystem paths for the executor.
	Source string
	Dest   string

	SourceMTime time.Time
	DestMTime   time.Time
}

// SyncPlan is the computed set of operations for one sync run. Plans
// are consumed once by the executor and never persisted beyond an
// optional dry-run report.
type SyncPlan struct {
	Direction Direction
	Entries   []PlanEntry

	Creates   int
	Updates   int
	Deletes   int
	Noops     int
	Conflicts int
}

// Add appends an entry and maintains the summary counts.
func (p *SyncPlan) Add(e PlanEntry) {
	p.Entries = append(p.Entries, e)
	switch e.Op {
	case OpCreate:
		p.Creates++
	case OpUpdate:
		p.Updates++
	case OpDelete:
		p.Deletes++
	default:
		p.Noops++
	}
	if e.Conflict {
		p.Conflicts++
	}
}

// FileError records a single file's failure during sync execution.
type FileError struct {
	Path string
	Err  error
}

// SyncResult summarizes an executed (or dry-run) plan.
type SyncResult struct {
	Created   int
	Updated   int
	Deleted   int
	Skipped   int
	Conflicts []string
	Errors    []FileError
	DryRun    bool
}

// Partial reports whether some entries errored while the batch completed.
func (r *SyncResult) Partial() bool {
	return len(r.Errors) > 0
}
