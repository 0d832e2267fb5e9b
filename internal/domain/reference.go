package domain

import (
	"fmt"
	"strings"
)

// Scheme is the URI scheme for logical document references.
const Scheme = "codex"

// schemePrefix is the full prefix expected on a reference URI.
const schemePrefix = Scheme + "://"

// Reference identifies a document as org/project/path, independent of
// where the content actually lives. References are immutable once parsed.
type Reference struct {
	Org     string
	Project string
	Path    string
}

// SourceType describes how a resolved reference will be fetched.
type SourceType int

// Fetch sources: the current project's working tree, a configured
// artifact source, the shared repository via a VCS remote, a plain
// HTTP(S) endpoint, and the cold archive reached through the external
// handler.
const (
	SourceUnknown SourceType = iota
	SourceLocal
	SourceArtifact
	SourceVersionControl
	SourceHTTP
	SourceArchive
)

func (s SourceType) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceArtifact:
		return "artifact-source"
	case SourceVersionControl:
		return "version-control"
	case SourceHTTP:
		return "http"
	case SourceArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// ResolvedReference is a Reference annotated with where and how to fetch it.
// It is computed per call and never cached; resolution is a pure function of
// the reference and the runtime context.
type ResolvedReference struct {
	Reference

	// CachePath is the deterministic cache-relative location
	// (org/project/path). Empty for artifact-source references, which
	// bypass caching entirely.
	CachePath string

	// IsCurrentProject is true when the reference points into the
	// project this process is running in.
	IsCurrentProject bool

	// Source is how the content should be fetched.
	Source SourceType

	// LocalPath is the absolute filesystem path for local and
	// artifact-source references.
	LocalPath string

	// ArtifactSource is the name of the matched artifact source, set
	// only when Source == SourceArtifact.
	ArtifactSource string
}

// ParseReference parses a codex://org/project/path URI.
//
// All three components must be non-empty, and the path may not contain
// parent-directory traversal segments or a leading slash.
func ParseReference(uri string) (Reference, error) {
	if !strings.HasPrefix(uri, schemePrefix) {
		return Reference{}, &InvalidReferenceError{URI: uri, Reason: fmt.Sprintf("missing %s prefix", schemePrefix)}
	}

	rest := strings.TrimPrefix(uri, schemePrefix)
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 3 {
		return Reference{}, &InvalidReferenceError{URI: uri, Reason: "expected org/project/path"}
	}

	ref := Reference{Org: parts[0], Project: parts[1], Path: parts[2]}
	if err := ref.Validate(); err != nil {
		return Reference{}, err
	}
	return ref, nil
}

// BuildURI is the inverse of ParseReference.
func BuildURI(org, project, path string) (string, error) {
	ref := Reference{Org: org, Project: project, Path: path}
	if err := ref.Validate(); err != nil {
		return "", err
	}
	return ref.URI(), nil
}

// URI returns the canonical codex:// URI for this reference.
func (r Reference) URI() string {
	return schemePrefix + r.Key()
}

// Key returns the org/project/path form used for cache keys and
// invalidation patterns.
func (r Reference) Key() string {
	return r.Org + "/" + r.Project + "/" + r.Path
}

// Validate checks that all components are present and the path is safe.
func (r Reference) Validate() error {
	switch {
	case r.Org == "":
		return &InvalidReferenceError{URI: r.URI(), Reason: "empty org"}
	case r.Project == "":
		return &InvalidReferenceError{URI: r.URI(), Reason: "empty project"}
	case r.Path == "":
		return &InvalidReferenceError{URI: r.URI(), Reason: "empty path"}
	case strings.HasPrefix(r.Path, "/"):
		return &InvalidReferenceError{URI: r.URI(), Reason: "path must be relative"}
	}
	for _, seg := range strings.Split(r.Path, "/") {
		if seg == ".." {
			return &InvalidReferenceError{URI: r.URI(), Reason: "path traversal not allowed"}
		}
	}
	return nil
}
