package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	archiveadapter "codex/internal/adapters/archive"
	"codex/internal/adapters/gitremote"
	"codex/internal/adapters/httpfetch"
	"codex/internal/adapters/localfs"
	mcpadapter "codex/internal/adapters/mcp"
	"codex/internal/adapters/sqlite"
	"codex/internal/cache"
	"codex/internal/config"
	"codex/internal/domain"
	"codex/internal/ports"
	"codex/internal/resolver"
	"codex/internal/storage"
)

func main() {
	configFlag := flag.String("config", "", "path to the config file (default .codex/config.yaml)")
	flag.Parse()

	deps, index, err := buildDeps(*configFlag)
	if err != nil {
		log.Fatalf("codex-mcp: %v", err)
	}
	defer index.Close()

	mcpServer := server.NewMCPServer(
		"codex-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check — returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	mcpadapter.RegisterReadTools(mcpServer, deps)
	mcpadapter.RegisterWriteTools(mcpServer, deps)

	if err := server.ServeStdio(mcpServer); err != nil {
		log.Fatalf("codex-mcp: %v", err)
	}
}

func buildDeps(configPath string) (mcpadapter.Deps, *sqlite.Index, error) {
	dir, err := os.Getwd()
	if err != nil {
		return mcpadapter.Deps{}, nil, err
	}

	path := configPath
	if path == "" {
		path = config.Path(dir)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return mcpadapter.Deps{}, nil, err
	}
	appCtx, err := config.NewContext(cfg, dir)
	if err != nil {
		return mcpadapter.Deps{}, nil, err
	}

	// Tool output goes to stdout, so logs must stay on stderr.
	logger := log.New(os.Stderr, "[codex-mcp] ", log.LstdFlags)

	providers, err := buildProviders(cfg, appCtx, logger)
	if err != nil {
		return mcpadapter.Deps{}, nil, err
	}

	if err := os.MkdirAll(appCtx.CacheRoot, 0755); err != nil {
		return mcpadapter.Deps{}, nil, fmt.Errorf("failed to create cache root: %w", err)
	}
	index := sqlite.NewIndex()
	if err := index.Open(filepath.Join(appCtx.CacheRoot, "index.db")); err != nil {
		return mcpadapter.Deps{}, nil, err
	}

	sm := storage.New(providers, logger)
	cm := cache.New(sm, appCtx.Registry, index, appCtx.CacheRoot, cache.Options{
		MemoryBudget: appCtx.MemoryBudget,
		Logger:       logger,
	})

	return mcpadapter.Deps{
		Resolver: resolver.New(appCtx),
		Cache:    cm,
		Context:  appCtx,
		Config:   cfg,
	}, index, nil
}

func buildProviders(cfg *config.Config, appCtx *config.Context, logger *log.Logger) ([]ports.StorageProvider, error) {
	specs := cfg.Providers
	if len(specs) == 0 {
		specs = []config.ProviderConfig{{Type: "local"}}
		if cfg.Archive.Enabled {
			specs = append(specs, config.ProviderConfig{Type: "archive"})
		}
	}

	var providers []ports.StorageProvider
	for _, p := range specs {
		switch p.Type {
		case "local":
			providers = append(providers, localfs.New())
		case "archive":
			tool := archiveadapter.NewCLITool(cfg.Archive.Handler,
				archiveadapter.WithBucket(cfg.Archive.Bucket))
			providers = append(providers, archiveadapter.New(cfg.Archive, appCtx.Registry, tool))
		case "git":
			providers = append(providers, gitremote.New(p.Remote, appCtx.CacheRoot,
				gitremote.WithLogger(logger)))
		case "http":
			opts := []httpfetch.Option{}
			if p.TokenEnv != "" {
				opts = append(opts, httpfetch.WithTokenEnv(p.TokenEnv))
			}
			providers = append(providers, httpfetch.New(p.BaseURL, opts...))
		default:
			return nil, &domain.ConfigurationError{
				Field:   "providers",
				Message: fmt.Sprintf("unknown provider type %q", p.Type),
			}
		}
	}
	return providers, nil
}
