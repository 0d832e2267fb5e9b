package commands

import (
	"context"
	"fmt"

	"codex/internal/cache"
)

// CacheClearResult contains the result of clearing cache entries
type CacheClearResult struct {
	Removed int
	Message string
}

// CacheClearCommand removes cached entries, all of them or a glob subset
type CacheClearCommand struct {
	cache *cache.Manager

	// Pattern is a doublestar glob over org/project/path keys; empty
	// clears everything.
	Pattern string
}

// NewCacheClearCommand creates a new CacheClearCommand
func NewCacheClearCommand(cm *cache.Manager, pattern string) *CacheClearCommand {
	return &CacheClearCommand{cache: cm, Pattern: pattern}
}

// Execute runs the clear
func (c *CacheClearCommand) Execute(ctx context.Context) (*CacheClearResult, error) {
	removed, err := c.cache.Invalidate(c.Pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to clear cache: %w", err)
	}

	msg := fmt.Sprintf("Removed %d cached entries", removed)
	if c.Pattern != "" {
		msg = fmt.Sprintf("Removed %d cached entries matching %s", removed, c.Pattern)
	}
	return &CacheClearResult{Removed: removed, Message: msg}, nil
}
