// Package watchdog polls a session status endpoint and sends the user to
// re-authenticate once the session is no longer valid.
//
// A Watchdog owns a poll timer, at most one pending redirect and a small
// state machine (unknown, authenticated, expired). Presentation is injected
// through Notifier and Navigator so the logic runs without a browser.
package watchdog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	// PollInterval is the fixed delay between status checks
	PollInterval = 60 * time.Second

	// RedirectDelay gives the user time to read the notification before navigation
	RedirectDelay = 2 * time.Second

	// DefaultExpiredMessage is shown on 401 and when the server supplies no message
	DefaultExpiredMessage = "Your session has expired. Please log in again."

	DefaultStatusPath  = "/auth/status"
	DefaultLoginPath   = "/login"
	DefaultRefreshPath = "/refresh-auth"
)

// State is the watchdog's view of the session
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Notifier displays a message to the user
type Notifier interface {
	Show(message string)
}

// Navigator moves the user to another location
type Navigator interface {
	Navigate(path string)
}

// SessionStatus is the payload returned by the status endpoint
type SessionStatus struct {
	Authenticated bool   `json:"authenticated"`
	Message       string `json:"message,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	UserEmail     string `json:"user_email,omitempty"`
	UserName      string `json:"user_name,omitempty"`
}

// Options configures a Watchdog
type Options struct {
	BaseURL     string `validate:"required,url"`
	StatusPath  string
	LoginPath   string
	RefreshPath string

	HTTPClient *http.Client   `validate:"-"`
	Notifier   Notifier       `validate:"required"`
	Navigator  Navigator      `validate:"required"`
	Logger     zerolog.Logger `validate:"-"`
}

// timerFunc schedules f after d and returns a stop function
type timerFunc func(d time.Duration, f func()) (stop func() bool)

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Watchdog periodically checks session validity
type Watchdog struct {
	baseURL     string
	statusPath  string
	loginPath   string
	refreshPath string

	httpClient *http.Client
	notifier   Notifier
	navigator  Navigator
	logger     zerolog.Logger

	interval time.Duration
	schedule timerFunc

	mu              sync.Mutex
	state           State
	redirectPending bool
	cancel          context.CancelFunc
	done            chan struct{}
}

// New creates a watchdog. Call Start to begin polling.
func New(opts Options) (*Watchdog, error) {
	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid watchdog options: %w", err)
	}

	w := &Watchdog{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		statusPath:  withDefault(opts.StatusPath, DefaultStatusPath),
		loginPath:   withDefault(opts.LoginPath, DefaultLoginPath),
		refreshPath: withDefault(opts.RefreshPath, DefaultRefreshPath),
		httpClient:  opts.HTTPClient,
		notifier:    opts.Notifier,
		navigator:   opts.Navigator,
		logger:      opts.Logger.With().Str("component", "watchdog").Logger(),
		interval:    PollInterval,
		schedule:    afterFunc,
	}
	if w.httpClient == nil {
		w.httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return w, nil
}

func withDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Start begins polling every PollInterval until Stop is called or ctx ends.
// The first check happens one interval after Start. Start may be called
// again once the loop has exited, whichever way it ended.
func (w *Watchdog) Start(ctx context.Context) {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	w.logger.Debug().Dur("interval", w.interval).Msg("Starting session watchdog")

	go func() {
		defer close(done)
		defer w.release(done, cancel)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Check(ctx)
			}
		}
	}()
}

// release forgets the loop identified by done so a later Start can run
func (w *Watchdog) release(done chan struct{}, cancel context.CancelFunc) {
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done == done {
		w.cancel = nil
	}
}

// Stop cancels the poll timer and waits for the loop to exit.
// A redirect that is already scheduled still fires.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// State returns the current session state
func (w *Watchdog) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Check performs a single status poll and returns the resulting state.
// Only an explicit 401 or an unauthenticated payload changes what the user sees.
func (w *Watchdog) Check(ctx context.Context) State {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+w.statusPath, nil)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to build status request")
		return w.State()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.logger.Warn().Err(err).Str("path", w.statusPath).Msg("Error checking auth status")
		return w.State()
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		w.expire(DefaultExpiredMessage)
		return w.State()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		w.logger.Debug().Int("status", resp.StatusCode).Msg("Ignoring non-success status response")
		return w.State()
	}

	var status SessionStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to decode auth status")
		return w.State()
	}

	if !status.Authenticated {
		message := status.Message
		if message == "" {
			message = DefaultExpiredMessage
		}
		w.expire(message)
		return w.State()
	}

	w.mu.Lock()
	if w.state != StateExpired {
		w.state = StateAuthenticated
	}
	state := w.state
	w.mu.Unlock()

	return state
}

// expire shows message and schedules a single delayed redirect to the login path
func (w *Watchdog) expire(message string) {
	w.notifier.Show(message)

	w.mu.Lock()
	w.state = StateExpired
	if w.redirectPending {
		w.mu.Unlock()
		return
	}
	w.redirectPending = true
	w.mu.Unlock()

	w.logger.Info().
		Str("target", w.loginPath).
		Dur("delay", RedirectDelay).
		Msg("Session expired, scheduling redirect")

	w.schedule(RedirectDelay, func() {
		w.navigator.Navigate(w.loginPath)
	})
}
