package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"codex/internal/application"
	"codex/internal/application/commands"
	"codex/internal/domain"
)

// RegisterWriteTools adds all state-changing tools to the MCP server.
func RegisterWriteTools(s *server.MCPServer, deps Deps) {
	s.AddTool(cacheClearTool(), cacheClearHandler(deps))
	s.AddTool(syncTool(), syncHandler(deps))
}

// --- cache_clear ---

func cacheClearTool() mcp.Tool {
	return mcp.NewTool("cache_clear",
		mcp.WithDescription("Remove cached entries. Without a pattern clears the whole cache."),
		mcp.WithString("pattern",
			mcp.Description("Glob over org/project/path keys, e.g. acme/web/docs/**"),
		),
	)
}

func cacheClearHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewCacheClearCommand(deps.Cache, req.GetString("pattern", ""))
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- sync ---

func syncTool() mcp.Tool {
	return mcp.NewTool("sync",
		mcp.WithDescription("Sync routed files between the shared repository and this project."),
		mcp.WithString("direction",
			mcp.Description("from_codex (pull) or to_codex (push)"),
			mcp.Required(),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Compute and report the plan without applying it"),
		),
		mcp.WithString("strategy",
			mcp.Description("Conflict strategy: local, remote, newest, or skip. Omit to report conflicts unresolved."),
		),
		mcp.WithString("include",
			mcp.Description("Comma-separated glob patterns narrowing the run"),
		),
		mcp.WithString("exclude",
			mcp.Description("Comma-separated glob patterns excluded from the run"),
		),
	)
}

func syncHandler(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		direction, err := application.ParseDirection(req.GetString("direction", ""))
		if err != nil {
			return toolError(err)
		}

		cmd := commands.NewSyncProjectCommand(deps.Context, deps.Config, direction)
		cmd.DryRun = req.GetBool("dry_run", false)
		cmd.Include = splitPatterns(req.GetString("include", ""))
		cmd.Exclude = splitPatterns(req.GetString("exclude", ""))
		cmd.Cache = deps.Cache

		if s := req.GetString("strategy", ""); s != "" {
			strategy, err := application.ParseStrategy(s)
			if err != nil {
				return toolError(err)
			}
			cmd.Strategy = strategy
		}

		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(formatSyncResult(direction, result)), nil
	}
}

func splitPatterns(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func formatSyncResult(direction domain.Direction, r *commands.SyncProjectResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s plan: %d create, %d update, %d delete, %d unchanged\n",
		direction, r.Plan.Creates, r.Plan.Updates, r.Plan.Deletes, r.Plan.Noops)

	if r.Result.DryRun {
		sb.WriteString("dry run, nothing applied\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "applied: %d created, %d updated, %d deleted, %d skipped\n",
		r.Result.Created, r.Result.Updated, r.Result.Deleted, r.Result.Skipped)
	for _, path := range r.Result.Conflicts {
		fmt.Fprintf(&sb, "conflict: %s\n", path)
	}
	for _, fe := range r.Result.Errors {
		fmt.Fprintf(&sb, "error: %s: %v\n", fe.Path, fe.Err)
	}
	return sb.String()
}
