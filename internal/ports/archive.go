package ports

import "context"

// ArchiveTool is the narrow port over the external storage-access
// executable that retrieves archived bytes. The production
// implementation shells out; tests use a canned double.
type ArchiveTool interface {
	// ReadRemote fetches the object at the logical remote path from
	// the named backend (e.g. "s3"). A missing object is reported with
	// domain.ErrNotFound.
	ReadRemote(ctx context.Context, remotePath, backend string) ([]byte, error)

	// IsAvailable reports whether the handler executable can be run.
	IsAvailable() bool
}
