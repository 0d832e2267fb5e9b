package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codex/internal/application/commands"
)

var (
	initOrg     string
	initProject string
	initForce   bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the project configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a commented starter config to .codex/config.yaml in the current
directory. Refuses to overwrite an existing file without --force.

Examples:
  codex-cli config init --org acme --project web
  codex-cli config init --org acme --project web --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}

		c := commands.NewConfigInitCommand(dir, initOrg, initProject)
		c.Force = initForce

		result, err := c.Execute(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&initOrg, "org", "", "organization name")
	configInitCmd.Flags().StringVar(&initProject, "project", "", "project name")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
