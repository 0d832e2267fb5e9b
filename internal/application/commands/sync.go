package commands

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"codex/internal/application"
	"codex/internal/codexsync"
	"codex/internal/config"
	"codex/internal/domain"
	"codex/internal/ports"
	"codex/internal/routing"
)

// SyncProjectResult contains the computed plan and the applied outcome
type SyncProjectResult struct {
	Plan   *domain.SyncPlan
	Result *domain.SyncResult
}

// SyncProjectCommand scans, plans, and executes one sync direction
// between the shared repository and the local project
type SyncProjectCommand struct {
	appCtx *config.Context
	cfg    *config.Config

	Direction domain.Direction
	DryRun    bool

	// Include and Exclude narrow the run; they intersect with the
	// configured rules.
	Include []string
	Exclude []string

	// Strategy overrides the configured conflict strategy when set.
	Strategy domain.ConflictStrategy

	// Cache receives refreshed entries after pull writes.
	Cache codexsync.CacheRefresher

	// Reviewer, when set, must approve the plan before a live run.
	Reviewer ports.PlanReviewer

	Logger *log.Logger
}

// NewSyncProjectCommand creates a new SyncProjectCommand
func NewSyncProjectCommand(appCtx *config.Context, cfg *config.Config, direction domain.Direction) *SyncProjectCommand {
	return &SyncProjectCommand{
		appCtx:    appCtx,
		cfg:       cfg,
		Direction: direction,
	}
}

// Validate checks that a sync run can start
func (c *SyncProjectCommand) Validate() error {
	if c.appCtx.SharedRepository == "" {
		return &application.ValidationError{
			Field:   "shared_repository",
			Message: application.ErrNoSharedRepository.Error(),
		}
	}
	return nil
}

// Execute runs the sync
func (c *SyncProjectCommand) Execute(ctx context.Context) (*SyncProjectResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	ruleSet := c.cfg.RuleSet()
	rules := ruleSet.FromCodex
	if c.Direction == domain.ToCodex {
		rules = ruleSet.ToCodex
	}

	scanner := &codexsync.Scanner{
		Evaluator: &routing.Evaluator{UseFileMetadata: c.cfg.Sync.UseFileMetadata},
		Rules:     rules,
		Caller:    routing.CallerFilter{Include: c.Include, Exclude: c.Exclude},
		Placeholders: routing.Placeholders{
			Org:        c.appCtx.Org,
			Project:    c.appCtx.Project,
			SharedRepo: filepath.Base(c.appCtx.SharedRepository),
		},
	}

	manifest, err := codexsync.LoadManifest(c.appCtx.WorkingDir)
	if err != nil {
		return nil, err
	}
	planner := &codexsync.Planner{
		ProjectRoot:    c.appCtx.WorkingDir,
		SharedRoot:     c.appCtx.SharedRepository,
		Project:        c.appCtx.Project,
		Manifest:       manifest,
		CallerNarrowed: !scanner.Caller.Empty(),
	}

	var plan *domain.SyncPlan
	if c.Direction == domain.ToCodex {
		files, err := scanner.ScanLocal(ctx, c.appCtx.WorkingDir)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		plan, err = planner.PlanToCodex(files)
		if err != nil {
			return nil, err
		}
	} else {
		routed, err := scanner.ScanShared(ctx, c.appCtx.SharedRepository)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shared repository: %w", err)
		}
		plan, err = planner.PlanFromCodex(routed)
		if err != nil {
			return nil, err
		}
	}

	if c.Reviewer != nil && !c.DryRun {
		approved, err := c.Reviewer.Review(ctx, plan)
		if err != nil {
			return nil, err
		}
		if !approved {
			return &SyncProjectResult{Plan: plan}, application.ErrSyncAborted
		}
	}

	strategy := c.Strategy
	if strategy == domain.StrategyReport {
		strategy = c.cfg.Sync.ConflictStrategy
	}

	executor := &codexsync.Executor{
		Strategy: strategy,
		DryRun:   c.DryRun,
		Manifest: manifest,
		Cache:    c.Cache,
		Org:      c.appCtx.Org,
		Logger:   c.Logger,
	}
	result, err := executor.Apply(ctx, plan)
	if err != nil {
		return nil, err
	}
	return &SyncProjectResult{Plan: plan, Result: result}, nil
}
