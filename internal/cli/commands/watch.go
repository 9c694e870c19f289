package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rundown-app/rundown/internal/cli/client"
	"github.com/rundown-app/rundown/internal/notify"
	"github.com/rundown-app/rundown/internal/watchdog"
)

// NewWatchCmd creates the watch command
func NewWatchCmd(env *Env) *cobra.Command {
	var flags serverFlags
	var checkNow bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the session and report when it expires",
		Long: `Polls the server's session status every minute.

When the session is reported expired, a notice is printed and, after a short
delay, the login URL is shown and the command exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return env.runWatch(ctx, flags, checkNow)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&checkNow, "check-now", true, "Check the session immediately instead of waiting for the first interval")

	return cmd
}

func (e *Env) runWatch(ctx context.Context, flags serverFlags, checkNow bool) error {
	serverURL, err := e.resolveServer(flags.server)
	if err != nil {
		return err
	}

	token, err := e.Store.LoadToken(serverURL)
	if err != nil {
		return err
	}

	navigator := newTerminalNavigator(serverURL, e.Out)
	w, err := watchdog.New(watchdog.Options{
		BaseURL:    serverURL,
		HTTPClient: client.New(serverURL, flags.insecure).AuthenticatedHTTPClient(token),
		Notifier:   notify.NewTerminal(e.Out),
		Navigator:  navigator,
		Logger:     e.Logger,
	})
	if err != nil {
		return err
	}

	w.Start(ctx)
	defer w.Stop()

	fmt.Fprintf(e.Out, "Watching session on %s (every %s)\n", serverURL, watchdog.PollInterval)
	if checkNow {
		fmt.Fprintf(e.Out, "Session: %s\n", w.Check(ctx))
	}

	select {
	case <-navigator.Done():
		// The stored token is no longer usable
		if err := e.Store.DeleteToken(serverURL); err != nil {
			e.Logger.Warn().Err(err).Msg("Failed to delete stale token")
		}
		return nil
	case <-ctx.Done():
		fmt.Fprintln(e.Out, "Stopped watching")
		return nil
	}
}
