package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	archiveadapter "codex/internal/adapters/archive"
	"codex/internal/adapters/gitremote"
	"codex/internal/adapters/httpfetch"
	"codex/internal/adapters/localfs"
	"codex/internal/adapters/sqlite"
	"codex/internal/application"
	"codex/internal/cache"
	"codex/internal/config"
	"codex/internal/domain"
	"codex/internal/ports"
	"codex/internal/resolver"
	"codex/internal/storage"
)

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitValidation = 2
	exitNotFound   = 3
	exitPartial    = 4
)

// errPartialFailure marks a sync run where some entries errored while
// the batch completed.
var errPartialFailure = errors.New("completed with per-file errors")

var (
	configPath string
	logFile    string
)

// app holds the components built once per invocation.
type appState struct {
	cfg      *config.Config
	ctx      *config.Context
	resolver *resolver.Resolver
	cache    *cache.Manager
	index    *sqlite.Index
	logger   *log.Logger
}

var app *appState

var rootCmd = &cobra.Command{
	Use:   "codex-cli",
	Short: "Resolve, cache, and sync shared project documents",
	Long: `codex-cli works with codex:// references (codex://org/project/path):
fetching documents through the configured storage providers, keeping a
local two-tier cache, and syncing routed files between the shared
knowledge repository and this project.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "completion", "init":
			return nil
		}
		return initApp()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil && app.index != nil {
			app.index.Close()
		}
	},
}

// Execute runs the root command and maps errors to exit codes.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		os.Exit(exitOK)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)

	var verr *application.ValidationError
	var cerr *domain.ConfigurationError
	switch {
	case errors.As(err, &verr), errors.As(err, &cerr):
		os.Exit(exitValidation)
	case errors.Is(err, domain.ErrNotFound):
		os.Exit(exitNotFound)
	case errors.Is(err, errPartialFailure):
		os.Exit(exitPartial)
	}
	os.Exit(exitError)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the config file (default .codex/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append logs to this file (rotated) instead of stderr")
}

func initApp() error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	path := configPath
	if path == "" {
		path = config.Path(dir)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	appCtx, err := config.NewContext(cfg, dir)
	if err != nil {
		return err
	}

	logger := newLogger()

	providers, err := buildProviders(cfg, appCtx, logger)
	if err != nil {
		return err
	}

	index := sqlite.NewIndex()
	if err := os.MkdirAll(appCtx.CacheRoot, 0755); err != nil {
		return fmt.Errorf("failed to create cache root: %w", err)
	}
	if err := index.Open(filepath.Join(appCtx.CacheRoot, "index.db")); err != nil {
		return err
	}

	sm := storage.New(providers, logger)
	cm := cache.New(sm, appCtx.Registry, index, appCtx.CacheRoot, cache.Options{
		MemoryBudget: appCtx.MemoryBudget,
		Logger:       logger,
	})

	app = &appState{
		cfg:      cfg,
		ctx:      appCtx,
		resolver: resolver.New(appCtx),
		cache:    cm,
		index:    index,
		logger:   logger,
	}
	return nil
}

func newLogger() *log.Logger {
	if logFile == "" {
		return log.New(os.Stderr, "[codex] ", log.LstdFlags)
	}
	return log.New(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	}, "[codex] ", log.LstdFlags)
}

// buildProviders assembles the storage chain in config order, or the
// default local-first chain when none is configured.
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
