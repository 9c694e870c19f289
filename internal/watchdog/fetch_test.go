package watchdog

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fetchHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func newRequest(t *testing.T, w *Watchdog, path string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, w.URL(path), nil)
	require.NoError(t, err)
	return req
}

func TestFetch_Success(t *testing.T) {
	w, rec, _ := newTestWatchdog(t, fetchHandler(http.StatusOK, `{"ok":true}`))

	outcome, err := w.Fetch(context.Background(), newRequest(t, w, "/api/session"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, outcome.Kind)
	assert.JSONEq(t, `{"ok":true}`, string(outcome.Payload))
	assert.Empty(t, rec.Paths())
}

func TestFetch_UnauthorizedRedirectsImmediately(t *testing.T) {
	w, rec, timers := newTestWatchdog(t, fetchHandler(http.StatusUnauthorized, `{"error":"Session expired","redirect":"/login"}`))

	outcome, err := w.Fetch(context.Background(), newRequest(t, w, "/api/session"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnauthorized, outcome.Kind)
	assert.Equal(t, []string{DefaultRefreshPath}, rec.Paths(), "navigation happens before Fetch returns")
	assert.Empty(t, timers.Delays())
	assert.Empty(t, rec.Messages())
	assert.Equal(t, StateUnknown, w.State(), "fetch does not touch the poll state")
}

func TestFetch_HTTPError(t *testing.T) {
	w, rec, _ := newTestWatchdog(t, fetchHandler(http.StatusInternalServerError, `{"error":"boom"}`))

	outcome, err := w.Fetch(context.Background(), newRequest(t, w, "/api/session"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeHTTPError, outcome.Kind)
	assert.Equal(t, http.StatusInternalServerError, outcome.Status)
	assert.Empty(t, rec.Paths())
}

func TestFetch_TransportErrorPropagates(t *testing.T) {
	w, rec, _ := newTestWatchdog(t, fetchHandler(http.StatusOK, `{}`))
	w.httpClient = &http.Client{Transport: failingTransport{}}

	_, err := w.Fetch(context.Background(), newRequest(t, w, "/api/session"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.Empty(t, rec.Paths())
	assert.Empty(t, rec.Messages())
}

func TestFetch_InvalidJSON(t *testing.T) {
	w, _, _ := newTestWatchdog(t, fetchHandler(http.StatusOK, `not json`))

	_, err := w.Fetch(context.Background(), newRequest(t, w, "/api/session"))
	require.Error(t, err)
}

func TestFetchJSON(t *testing.T) {
	t.Run("success decodes payload", func(t *testing.T) {
		w, _, _ := newTestWatchdog(t, fetchHandler(http.StatusOK, `{"ok":true}`))

		var got map[string]bool
		require.NoError(t, w.FetchJSON(context.Background(), newRequest(t, w, "/x"), &got))
		assert.Equal(t, map[string]bool{"ok": true}, got)
	})

	t.Run("401 returns ErrUnauthorized", func(t *testing.T) {
		w, rec, _ := newTestWatchdog(t, fetchHandler(http.StatusUnauthorized, ``))

		err := w.FetchJSON(context.Background(), newRequest(t, w, "/x"), nil)
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, []string{DefaultRefreshPath}, rec.Paths())
	})

	t.Run("500 returns HTTPError", func(t *testing.T) {
		w, rec, _ := newTestWatchdog(t, fetchHandler(http.StatusInternalServerError, ``))

		err := w.FetchJSON(context.Background(), newRequest(t, w, "/x"), nil)
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, 500, httpErr.Status)
		assert.Equal(t, "HTTP error! status: 500", err.Error())
		assert.Empty(t, rec.Paths())
	})
}
