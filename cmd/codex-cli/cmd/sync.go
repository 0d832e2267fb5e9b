package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"codex/internal/adapters/tui"
	"codex/internal/application"
	"codex/internal/application/commands"
	"codex/internal/domain"
)

var (
	syncDryRun   bool
	syncReview   bool
	syncStrategy string
	syncInclude  []string
	syncExclude  []string
)

var (
	syncOkStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	syncConflictStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	syncErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

var syncCmd = &cobra.Command{
	Use:   "sync <from_codex|to_codex>",
	Short: "Sync routed files with the shared repository",
	Long: `Sync routed files between the shared knowledge repository and this
project, one direction per run.

from_codex pulls files routed to this project; to_codex pushes this
project's routed files into its subtree of the shared repository.

Examples:
  codex-cli sync from_codex --dry-run
  codex-cli sync from_codex --strategy newest
  codex-cli sync to_codex --include 'docs/**'
  codex-cli sync from_codex --review`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		direction, err := application.ParseDirection(args[0])
		if err != nil {
			return err
		}

		sync := commands.NewSyncProjectCommand(app.ctx, app.cfg, direction)
		sync.DryRun = syncDryRun
		sync.Include = syncInclude
		sync.Exclude = syncExclude
		sync.Cache = app.cache
		sync.Logger = app.logger

		if syncStrategy != "" {
			strategy, err := application.ParseStrategy(syncStrategy)
			if err != nil {
				return err
			}
			sync.Strategy = strategy
		}
		if syncReview && !syncDryRun && term.IsTerminal(int(os.Stdout.Fd())) {
			sync.Reviewer = tui.NewReviewer()
		}

		result, err := sync.Execute(cmd.Context())
		if err != nil {
			return err
		}
		printSyncResult(result)

		if result.Result.Partial() {
			return fmt.Errorf("%d of %d entries failed: %w",
				len(result.Result.Errors), len(result.Plan.Entries), errPartialFailure)
		}
		return nil
	},
}

func printSyncResult(r *commands.SyncProjectResult) {
	plan, res := r.Plan, r.Result

	if res.DryRun {
		fmt.Printf("plan: %d create, %d update, %d delete, %d unchanged\n",
			plan.Creates, plan.Updates, plan.Deletes, plan.Noops)
		for _, e := range plan.Entries {
			if e.Op == domain.OpNoop {
				continue
			}
			line := fmt.Sprintf("  %-6s %s", e.Op, e.Path)
			if e.Conflict {
				line += "  " + syncConflictStyle.Render("conflict")
			}
			fmt.Println(line)
		}
		return
	}

	fmt.Println(syncOkStyle.Render(fmt.Sprintf(
		"%d created, %d updated, %d deleted, %d skipped",
		res.Created, res.Updated, res.Deleted, res.Skipped)))
	for _, path := range res.Conflicts {
		fmt.Println(syncConflictStyle.Render("conflict: " + path))
	}
	for _, fe := range res.Errors {
		fmt.Println(syncErrorStyle.Render(fmt.Sprintf("error: %s: %v", fe.Path, fe.Err)))
	}
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "compute and print the plan without applying it")
	syncCmd.Flags().BoolVar(&syncReview, "review", false, "review the plan interactively before applying")
	syncCmd.Flags().StringVar(&syncStrategy, "strategy", "", "conflict strategy: local, remote, newest, or skip")
	syncCmd.Flags().StringArrayVar(&syncInclude, "include", nil, "glob pattern narrowing the run (repeatable)")
	syncCmd.Flags().StringArrayVar(&syncExclude, "exclude", nil, "glob pattern excluded from the run (repeatable)")
	rootCmd.AddCommand(syncCmd)
}
