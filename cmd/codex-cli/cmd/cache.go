package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"codex/internal/application/commands"
)

var cacheKeyStyle = lipgloss.NewStyle().Bold(true)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the document cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List cached entries",
	Long: `List cached entries by their org/project/path key, optionally
filtered by a glob pattern.

Examples:
  codex-cli cache list
  codex-cli cache list 'acme/web/docs/**'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}

		keys, err := app.cache.Keys(pattern)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Println("No cached entries.")
			return nil
		}

		for _, key := range keys {
			entry, ok, err := app.cache.Entry(key)
			if err != nil || !ok {
				fmt.Println(cacheKeyStyle.Render(key))
				continue
			}
			fmt.Printf("%s  %d bytes  %s  %s\n",
				cacheKeyStyle.Render(key), entry.Size, entry.Source,
				entry.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache tier sizes and hit rate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := app.cache.Stats()
		if err != nil {
			return err
		}

		fmt.Printf("memory  %d entries  %d bytes\n", stats.MemoryEntries, stats.MemoryBytes)
		fmt.Printf("disk    %d entries  %d bytes\n", stats.DiskEntries, stats.DiskBytes)
		fmt.Printf("hits %d  misses %d  hit rate %.1f%%\n",
			stats.Hits, stats.Misses, stats.HitRate()*100)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [pattern]",
	Short: "Remove cached entries",
	Long: `Remove cached entries. Without a pattern the whole cache is cleared.

Examples:
  codex-cli cache clear
  codex-cli cache clear 'acme/web/**'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}

		clear := commands.NewCacheClearCommand(app.cache, pattern)
		result, err := clear.Execute(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
