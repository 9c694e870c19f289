package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rundown-app/rundown/internal/cli/auth"
	"github.com/rundown-app/rundown/internal/config"
	"github.com/rundown-app/rundown/internal/server"
	"github.com/rundown-app/rundown/internal/sessions"
	"github.com/rundown-app/rundown/internal/watchdog"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "hunter22"
)

// syncBuffer is a bytes.Buffer safe for the watchdog's timer goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	*Env
	out        *syncBuffer
	store      *auth.MemoryStore
	remembered []string
	api        *server.Server
	url        string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{ListenAddr: ":0"},
		Database: config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "rundown.sqlite")},
		Session:  config.SessionConfig{JWTSecret: "0123456789abcdef0123456789abcdef", TTL: time.Hour},
		Admin:    config.AdminConfig{Email: testEmail, Name: "Ada", Password: testPassword},
		Logging:  config.LoggingConfig{Level: "disabled", Format: "json"},
	}
	api, err := server.New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)

	httpSrv := httptest.NewServer(api.Handler())
	t.Cleanup(httpSrv.Close)

	te := &testEnv{
		out:   &syncBuffer{},
		store: auth.NewMemoryStore(),
		api:   api,
		url:   httpSrv.URL,
	}
	te.Env = &Env{
		Store:  te.store,
		Out:    te.out,
		Logger: zerolog.Nop(),
		RememberServer: func(serverURL string) error {
			te.remembered = append(te.remembered, serverURL)
			return nil
		},
	}

	t.Setenv("RUNDOWN_SERVER", "")
	t.Setenv("RUNDOWN_EMAIL", "")
	t.Setenv("RUNDOWN_PASSWORD", "")
	return te
}

func (te *testEnv) login(t *testing.T) string {
	t.Helper()
	require.NoError(t, te.runLogin(serverFlags{server: te.url}, testEmail, testPassword))
	token, err := te.store.LoadToken(te.url)
	require.NoError(t, err)
	return token
}

func (te *testEnv) revoke(t *testing.T, token string) {
	t.Helper()
	result := te.api.Sessions().Validate(context.Background(), token)
	require.NotNil(t, result.Session)
	require.NoError(t, te.api.Sessions().Revoke(context.Background(), result.Session.ID))
}

func TestResolveServer(t *testing.T) {
	env := &Env{DefaultServer: func() (string, error) { return "remembered.example.com", nil }}

	t.Setenv("RUNDOWN_SERVER", "")
	got, err := env.resolveServer("http://flag.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "http://flag.example.com", got)

	t.Setenv("RUNDOWN_SERVER", "https://env.example.com")
	got, err = env.resolveServer("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", got)

	t.Setenv("RUNDOWN_SERVER", "")
	got, err = env.resolveServer("")
	require.NoError(t, err)
	assert.Equal(t, "https://remembered.example.com", got)

	_, err = (&Env{}).resolveServer("")
	assert.Error(t, err)
}

func TestLoginCommand_Flags(t *testing.T) {
	cmd := NewLoginCmd(&Env{})

	assert.Equal(t, "login", cmd.Use)
	for _, name := range []string{"server", "insecure", "email", "password"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestLogin_Success(t *testing.T) {
	te := setupTestEnv(t)
	t.Setenv("RUNDOWN_EMAIL", testEmail)
	t.Setenv("RUNDOWN_PASSWORD", testPassword)

	require.NoError(t, te.runLogin(serverFlags{server: te.url}, "", ""))

	token, err := te.store.LoadToken(te.url)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, []string{te.url}, te.remembered)
	assert.Contains(t, te.out.String(), "Login successful")
	assert.Contains(t, te.out.String(), "Ada (ada@example.com)")
}

func TestLogin_MissingEmail(t *testing.T) {
	te := setupTestEnv(t)

	err := te.runLogin(serverFlags{server: te.url}, "", testPassword)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email is required")
}

func TestLogin_WrongPassword(t *testing.T) {
	te := setupTestEnv(t)

	err := te.runLogin(serverFlags{server: te.url}, testEmail, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")

	_, err = te.store.LoadToken(te.url)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestFetch_Success(t *testing.T) {
	te := setupTestEnv(t)
	te.login(t)

	require.NoError(t, te.runFetch(context.Background(), serverFlags{server: te.url}, "/api/auth/me"))
	assert.Contains(t, te.out.String(), `"email": "ada@example.com"`)
}

func TestFetch_NotLoggedIn(t *testing.T) {
	te := setupTestEnv(t)

	err := te.runFetch(context.Background(), serverFlags{server: te.url}, "/api/auth/me")
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestFetch_UnauthorizedShowsRefresh(t *testing.T) {
	te := setupTestEnv(t)
	te.revoke(t, te.login(t))

	err := te.runFetch(context.Background(), serverFlags{server: te.url}, "api/session")
	assert.ErrorIs(t, err, watchdog.ErrUnauthorized)
	assert.Contains(t, te.out.String(), te.url+"/refresh-auth")
}

func TestFetch_HTTPError(t *testing.T) {
	te := setupTestEnv(t)
	te.login(t)

	err := te.runFetch(context.Background(), serverFlags{server: te.url}, "/api/missing")

	var httpErr *watchdog.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 404, httpErr.Status)
}

func TestWatch_AuthenticatedUntilCancelled(t *testing.T) {
	te := setupTestEnv(t)
	te.login(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, te.runWatch(ctx, serverFlags{server: te.url}, true))
	assert.Contains(t, te.out.String(), "Session: authenticated")
	assert.Contains(t, te.out.String(), "Stopped watching")
	assert.NotContains(t, te.out.String(), watchdog.DefaultExpiredMessage)
}

func TestWatch_ExpiredRedirectsToLogin(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the redirect delay")
	}

	te := setupTestEnv(t)
	te.revoke(t, te.login(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, te.runWatch(ctx, serverFlags{server: te.url}, true))

	assert.GreaterOrEqual(t, time.Since(start), watchdog.RedirectDelay)
	out := te.out.String()
	assert.Contains(t, out, "Session: expired")
	assert.Contains(t, out, "⚠ "+watchdog.DefaultExpiredMessage)
	assert.Contains(t, out, te.url+"/login")

	_, err := te.store.LoadToken(te.url)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated, "stale token is removed")
}

func TestLogout(t *testing.T) {
	te := setupTestEnv(t)
	token := te.login(t)

	cmd := NewLogoutCmd(te.Env)
	cmd.SetArgs([]string{"--server", te.url})
	require.NoError(t, cmd.Execute())

	_, err := te.store.LoadToken(te.url)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Equal(t, sessions.Expired, te.api.Sessions().Validate(context.Background(), token).Status, "session is revoked server-side")

	require.NoError(t, cmd.Execute())
	assert.Contains(t, te.out.String(), "Already logged out")
}
