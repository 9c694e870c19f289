package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rundown-app/rundown/internal/cli/auth"
	"github.com/rundown-app/rundown/internal/cli/client"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(env *Env) *cobra.Command {
	var flags serverFlags

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, err := env.resolveServer(flags.server)
			if err != nil {
				return err
			}

			token, err := env.Store.LoadToken(serverURL)
			if errors.Is(err, auth.ErrNotAuthenticated) {
				fmt.Fprintln(env.Out, "Already logged out")
				return nil
			}
			if err != nil {
				return err
			}

			// The local token is removed even if the server cannot be reached
			if err := client.New(serverURL, flags.insecure).Logout(token); err != nil {
				env.Logger.Warn().Err(err).Msg("Server logout failed")
			}

			if err := env.Store.DeleteToken(serverURL); err != nil {
				return err
			}

			fmt.Fprintln(env.Out, "✓ Logged out")
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
