package cmd

import (
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"codex/internal/application/commands"
)

var (
	fetchNoCache bool
	fetchCopy    bool
	fetchQuiet   bool
)

var sourceStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#6B7280")).
	Italic(true)

var fetchCmd = &cobra.Command{
	Use:   "fetch <uri>",
	Short: "Fetch a document by codex:// reference",
	Long: `Fetch a document through the configured storage providers, serving
from the cache when a valid entry exists.

Content goes to stdout; the source line goes to stderr so output can
be piped.

Examples:
  codex-cli fetch codex://acme/web/docs/readme.md
  codex-cli fetch codex://acme/web/specs/WORK-1.md --no-cache
  codex-cli fetch codex://acme/web/docs/readme.md --copy`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fetch := commands.NewFetchDocumentCommand(app.resolver, app.cache, args[0])
		fetch.NoCache = fetchNoCache

		result, err := fetch.Execute(cmd.Context())
		if err != nil {
			return err
		}

		if !fetchQuiet {
			source := result.Result.Source
			if result.Result.FromCache {
				source += " (cached)"
			}
			fmt.Fprintln(os.Stderr, sourceStyle.Render(fmt.Sprintf("%s ← %s", result.Ref.URI(), source)))
		}

		if fetchCopy {
			if err := clipboard.WriteAll(string(result.Result.Content)); err != nil {
				return fmt.Errorf("failed to copy to clipboard: %w", err)
			}
			fmt.Fprintln(os.Stderr, sourceStyle.Render("copied to clipboard"))
			return nil
		}

		os.Stdout.Write(result.Result.Content)
		return nil
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchNoCache, "no-cache", false, "drop the cached entry and fetch fresh")
	fetchCmd.Flags().BoolVar(&fetchCopy, "copy", false, "copy content to the clipboard instead of printing")
	fetchCmd.Flags().BoolVarP(&fetchQuiet, "quiet", "q", false, "suppress the source line")
	rootCmd.AddCommand(fetchCmd)
}
