package ports

import (
	"context"

	"codex/internal/domain"
)

// StorageProvider serves file content for some subset of references.
// The storage manager holds an ordered list of these and tries them in
// priority order.
type StorageProvider interface {
	// Name identifies the provider in fetch results and attempt traces.
	Name() string

	// CanHandle reports whether this provider may be able to serve the
	// reference. It must be cheap: no I/O.
	CanHandle(ref domain.ResolvedReference) bool

	// Fetch retrieves the content. Failures are classified with the
	// domain sentinels: ErrNotFound lets the manager fall through to
	// the next provider, ErrUnauthorized surfaces immediately, and
	// ErrTransient is retried with backoff.
	Fetch(ctx context.Context, ref domain.ResolvedReference) (domain.FetchResult, error)

	// Exists checks for the content without fetching it.
	Exists(ctx context.Context, ref domain.ResolvedReference) (bool, error)
}

// Writer is implemented by providers that can also persist content
// (the local provider; the sync executor writes through it).
type Writer interface {
	Write(ctx context.Context, ref domain.ResolvedReference, content []byte) error
}
