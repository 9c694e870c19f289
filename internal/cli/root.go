package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rundown-app/rundown/internal/cli/commands"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the rundown command tree around env
func NewRootCmd(env *commands.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rundown",
		Short: "RunDown - session tools for the RunDown assistant",
		Long: `RunDown CLI - sign in to a RunDown server and keep an eye on your session.

The watch command polls the server's session status and tells you when your
session has expired, the same way the web front end does.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rundown version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(env))
	rootCmd.AddCommand(commands.NewLogoutCmd(env))
	rootCmd.AddCommand(commands.NewWatchCmd(env))
	rootCmd.AddCommand(commands.NewFetchCmd(env))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd(commands.DefaultEnv()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
