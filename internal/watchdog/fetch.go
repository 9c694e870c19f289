package watchdog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// FetchOutcome is the classified result of an authenticated fetch
type FetchOutcome struct {
	Kind    OutcomeKind
	Status  int
	Payload json.RawMessage
}

// OutcomeKind enumerates fetch results
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeUnauthorized
	OutcomeHTTPError
)

var (
	// ErrUnauthorized is returned by FetchJSON when the server answers 401
	ErrUnauthorized = errors.New("unauthorized")
)

// HTTPError carries the status code of a non-success, non-401 response
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

// Fetch issues req and classifies the response. On 401 the user is sent to
// the refresh path immediately, with no notification delay.
// Transport failures are returned as errors for the caller to handle.
func (w *Watchdog) Fetch(ctx context.Context, req *http.Request) (FetchOutcome, error) {
	resp, err := w.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return FetchOutcome{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		w.logger.Info().Str("url", req.URL.Path).Str("target", w.refreshPath).Msg("Request unauthorized, redirecting to refresh")
		w.navigator.Navigate(w.refreshPath)
		return FetchOutcome{Kind: OutcomeUnauthorized, Status: resp.StatusCode}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return FetchOutcome{Kind: OutcomeHTTPError, Status: resp.StatusCode}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchOutcome{}, fmt.Errorf("failed to read response: %w", err)
	}
	if !json.Valid(body) {
		return FetchOutcome{}, fmt.Errorf("failed to decode response: invalid JSON")
	}

	return FetchOutcome{Kind: OutcomeSuccess, Status: resp.StatusCode, Payload: body}, nil
}

// FetchJSON is Fetch for callers that prefer error values. It returns
// ErrUnauthorized or *HTTPError for failed responses and otherwise decodes
// the payload into v.
func (w *Watchdog) FetchJSON(ctx context.Context, req *http.Request, v any) error {
	outcome, err := w.Fetch(ctx, req)
	if err != nil {
		return err
	}

	switch outcome.Kind {
	case OutcomeUnauthorized:
		return ErrUnauthorized
	case OutcomeHTTPError:
		return &HTTPError{Status: outcome.Status}
	}

	if v == nil {
		return nil
	}
	if err := json.Unmarshal(outcome.Payload, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// URL resolves path against the watchdog's base URL
func (w *Watchdog) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return w.baseURL + path
}
