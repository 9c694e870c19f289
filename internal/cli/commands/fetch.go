package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/rundown-app/rundown/internal/cli/client"
	"github.com/rundown-app/rundown/internal/notify"
	"github.com/rundown-app/rundown/internal/watchdog"
)

// NewFetchCmd creates the fetch command
func NewFetchCmd(env *Env) *cobra.Command {
	var flags serverFlags

	cmd := &cobra.Command{
		Use:   "fetch <path>",
		Short: "Perform an authenticated GET and print the JSON response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.runFetch(cmd.Context(), flags, args[0])
		},
	}

	flags.register(cmd)
	return cmd
}

func (e *Env) runFetch(ctx context.Context, flags serverFlags, path string) error {
	serverURL, err := e.resolveServer(flags.server)
	if err != nil {
		return err
	}

	token, err := e.Store.LoadToken(serverURL)
	if err != nil {
		return err
	}

	w, err := watchdog.New(watchdog.Options{
		BaseURL:    serverURL,
		HTTPClient: client.New(serverURL, flags.insecure).AuthenticatedHTTPClient(token),
		Notifier:   notify.NewTerminal(e.Out),
		Navigator:  newTerminalNavigator(serverURL, e.Out),
		Logger:     e.Logger,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL(path), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	outcome, err := w.Fetch(ctx, req)
	if err != nil {
		return err
	}

	switch outcome.Kind {
	case watchdog.OutcomeUnauthorized:
		return watchdog.ErrUnauthorized
	case watchdog.OutcomeHTTPError:
		return &watchdog.HTTPError{Status: outcome.Status}
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, outcome.Payload, "", "  "); err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	fmt.Fprintln(e.Out, pretty.String())
	return nil
}
