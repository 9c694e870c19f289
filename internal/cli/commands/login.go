package commands

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rundown-app/rundown/internal/cli/client"
)

// NewLoginCmd creates the login command
func NewLoginCmd(env *Env) *cobra.Command {
	var flags serverFlags
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a RunDown server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.runLogin(flags, email, password)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&email, "email", "", "Email address (or set RUNDOWN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set RUNDOWN_PASSWORD, will prompt if not provided)")

	return cmd
}

func (e *Env) runLogin(flags serverFlags, email, password string) error {
	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("RUNDOWN_EMAIL")
	}
	if password == "" {
		password = os.Getenv("RUNDOWN_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or RUNDOWN_EMAIL env var)")
	}

	serverURL, err := e.resolveServer(flags.server)
	if err != nil {
		return err
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or RUNDOWN_PASSWORD env var)")
		}
		fmt.Fprint(e.Out, "Password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(bytePassword)
		fmt.Fprintln(e.Out)
	}

	apiClient := client.New(serverURL, flags.insecure)

	fmt.Fprintf(e.Out, "Logging in to %s...\n", serverURL)

	loginResp, err := apiClient.Login(email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := e.Store.SaveToken(serverURL, loginResp.Token); err != nil {
		return fmt.Errorf("failed to save authentication token: %w", err)
	}

	if e.RememberServer != nil {
		if err := e.RememberServer(serverURL); err != nil {
			// Don't fail if we can't save, just continue
			fmt.Fprintf(e.Out, "Warning: failed to remember server: %v\n", err)
		}
	}

	fmt.Fprintln(e.Out, "✓ Login successful!")
	fmt.Fprintf(e.Out, "  User: %s (%s)\n", loginResp.User.Name, loginResp.User.Email)
	if !loginResp.ExpiresAt.IsZero() {
		fmt.Fprintf(e.Out, "  Session expires: %s\n", loginResp.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}

	return nil
}
