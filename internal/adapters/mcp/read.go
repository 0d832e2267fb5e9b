package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"codex/internal/application/commands"
	"codex/internal/cache"
	"codex/internal/config"
	"codex/internal/resolver"
)

// Deps bundles the constructed components the tool handlers use.
type Deps struct {
	Resolver *resolver.Resolver
	Cache    *cache.Manager
	Context  *config.Context
	Config   *config.Config
}

// RegisterReadTools adds all read-only tools to the MCP server.
func RegisterReadTools(s *server.MCPServer, deps Deps) {
	s.AddTool(fetchTool(), fetchHandler(deps))
	s.AddTool(cacheListTool(), cacheListHandler(deps))
	s.AddTool(cacheStatsTool(), cacheStatsHandler(deps))
}

// --- document_fetch ---

func fetchTool() mcp.Tool {
	return mcp.NewTool("document_fetch",
		mcp.WithDescription("Fetch a document by codex:// reference (codex://org/project/path). Serves from cache when a valid entry exists."),
		mcp.WithString("uri",
			mcp.Description("Reference URI, e.g. codex://acme/web/docs/readme.md"),
			mcp.Required(),
		),
		mcp.WithBoolean("no_cache",
			mcp.Description("Drop any cached entry and fetch fresh from storage"),
		),
	)
}

func fetchHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		uri := req.GetString("uri", "")

		cmd := commands.NewFetchDocumentCommand(deps.Resolver, deps.Cache, uri)
		cmd.NoCache = req.GetBool("no_cache", false)

		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "source: %s", result.Result.Source)
		if result.Result.FromCache {
			sb.WriteString(" (cached)")
		}
		sb.WriteString("\n\n")
		sb.Write(result.Result.Content)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- cache_list ---

func cacheListTool() mcp.Tool {
	return mcp.NewTool("cache_list",
		mcp.WithDescription("List cached entries by org/project/path key."),
		mcp.WithString("pattern",
			mcp.Description("Glob filter over keys (supports ** and braces). Omit to list everything."),
		),
	)
}

func cacheListHandler(deps Deps) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keys, err := deps.Cache.Keys(req.GetString("pattern", ""))
		if err != nil {
			return toolError(err)
		}
		if len(keys) == 0 {
			return mcp.NewToolResultText("No cached entries."), nil
		}

		var sb strings.Builder
		for _, key := range keys {
			entry, ok, err := deps.Cache.Entry(key)
			if err != nil || !ok {
				fmt.Fprintf(&sb, "%s\n", key)
				continue
			}
			fmt.Fprintf(&sb, "%s  %d bytes  %s\n", key, entry.Size, entry.Source)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- cache_stats ---

func cacheStatsTool() mcp.Tool {
	return mcp.NewTool("cache_stats",
		mcp.WithDescription("Report cache tier sizes and the hit rate since startup."),
	)
}

func cacheStatsHandler(deps Deps) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := deps.Cache.Stats()
		if err != nil {
			return toolError(err)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "memory: %d entries, %d bytes\n", stats.MemoryEntries, stats.MemoryBytes)
		fmt.Fprintf(&sb, "disk:   %d entries, %d bytes\n", stats.DiskEntries, stats.DiskBytes)
		fmt.Fprintf(&sb, "hits:   %d, misses: %d, hit rate: %.1f%%\n",
			stats.Hits, stats.Misses, stats.HitRate()*100)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
