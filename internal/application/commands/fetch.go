package commands

import (
	"context"
	"fmt"

	"codex/internal/application"
	"codex/internal/cache"
	"codex/internal/domain"
	"codex/internal/resolver"
)

// FetchDocumentResult contains the fetched content and where it came from
type FetchDocumentResult struct {
	Ref    domain.ResolvedReference
	Result domain.FetchResult
}

// FetchDocumentCommand resolves a codex:// URI and retrieves its content
type FetchDocumentCommand struct {
	resolver *resolver.Resolver
	cache    *cache.Manager

	URI string

	// NoCache drops any cached entry for the reference before
	// fetching, forcing a fresh read from storage.
	NoCache bool
}

// NewFetchDocumentCommand creates a new FetchDocumentCommand
func NewFetchDocumentCommand(res *resolver.Resolver, cm *cache.Manager, uri string) *FetchDocumentCommand {
	return &FetchDocumentCommand{
		resolver: res,
		cache:    cm,
		URI:      uri,
	}
}

// Validate checks that the URI is well formed
func (c *FetchDocumentCommand) Validate() error {
	if c.URI == "" {
		return &application.ValidationError{
			Field:   "uri",
			Message: "reference URI is required",
		}
	}
	if _, err := domain.ParseReference(c.URI); err != nil {
		return &application.ValidationError{
			Field:   "uri",
			Message: err.Error(),
		}
	}
	return nil
}

// Execute runs the fetch
func (c *FetchDocumentCommand) Execute(ctx context.Context) (*FetchDocumentResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	ref, err := domain.ParseReference(c.URI)
	if err != nil {
		return nil, err
	}
	resolved, err := c.resolver.Resolve(ref)
	if err != nil {
		return nil, err
	}

	if c.NoCache && resolved.CachePath != "" {
		if _, err := c.cache.Invalidate(resolved.CachePath); err != nil {
			return nil, fmt.Errorf("failed to drop cached entry: %w", err)
		}
	}

	result, err := c.cache.Get(ctx, resolved)
	if err != nil {
		return nil, err
	}
	return &FetchDocumentResult{Ref: resolved, Result: result}, nil
}
