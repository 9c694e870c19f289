package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rundown-app/rundown/internal/cli/auth"
	"github.com/rundown-app/rundown/internal/cli/userconfig"
	"github.com/rundown-app/rundown/internal/logger"
)

// Env carries the dependencies shared by all commands
type Env struct {
	Store  auth.TokenStore
	Out    io.Writer
	Logger zerolog.Logger

	// RememberServer is called after a successful login
	RememberServer func(serverURL string) error
	// DefaultServer returns the last server used, or ""
	DefaultServer func() (string, error)
}

// DefaultEnv uses the OS keyring, the user config file and stdout
func DefaultEnv() *Env {
	return &Env{
		Store:          auth.Default,
		Out:            os.Stdout,
		Logger:         logger.New(os.Stderr, os.Getenv("RUNDOWN_LOG_LEVEL"), "console"),
		RememberServer: userconfig.SetServerURL,
		DefaultServer:  userconfig.GetServerURL,
	}
}

// serverFlags are shared by every command that talks to a server
type serverFlags struct {
	server   string
	insecure bool
}

func (f *serverFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", "", "Server URL (or set RUNDOWN_SERVER)")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "Accept self-signed TLS certificates")
}

// resolveServer picks the server URL: flag, then RUNDOWN_SERVER, then the remembered server
func (e *Env) resolveServer(flag string) (string, error) {
	serverURL := flag
	if serverURL == "" {
		serverURL = os.Getenv("RUNDOWN_SERVER")
	}
	if serverURL == "" && e.DefaultServer != nil {
		remembered, err := e.DefaultServer()
		if err != nil {
			return "", fmt.Errorf("failed to load user config: %w", err)
		}
		serverURL = remembered
	}

	if serverURL == "" {
		return "", fmt.Errorf("no server configured (use --server flag or RUNDOWN_SERVER env var)")
	}
	if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
		serverURL = "https://" + serverURL
	}

	return strings.TrimRight(serverURL, "/"), nil
}
