package client

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client represents an HTTP client for the RunDown API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client for serverURL
func New(serverURL string, insecure bool) *Client {
	return &Client{
		baseURL:    strings.TrimRight(serverURL, "/"),
		httpClient: newHTTPClient(nil, insecure),
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the server URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

func newHTTPClient(base http.RoundTripper, insecure bool) *http.Client {
	if base == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if insecure {
			// Accept self-signed certificates
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		base = transport
	}

	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: base,
		// Redirects are reported to the caller rather than followed
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

// Login authenticates the user and returns a session token
func (c *Client) Login(email, password string) (*LoginResponse, error) {
	jsonData, err := json.Marshal(LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.httpClient.Post(
		fmt.Sprintf("%s/api/auth/login", c.baseURL),
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("login failed (status %d): %s", resp.StatusCode, string(body))
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &loginResp, nil
}

// Logout revokes the session behind token on the server
func (c *Client) Logout(token string) error {
	resp, err := c.AuthenticatedHTTPClient(token).Get(fmt.Sprintf("%s/logout", c.baseURL))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("logout failed (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// AuthenticatedHTTPClient returns an http.Client that sends token as a bearer
// credential on every request
func (c *Client) AuthenticatedHTTPClient(token string) *http.Client {
	authed := *c.httpClient
	authed.Transport = &BearerTransport{Token: token, Base: c.httpClient.Transport}
	return &authed
}

// BearerTransport adds an Authorization header to each request
type BearerTransport struct {
	Token string
	Base  http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	req = req.Clone(req.Context())
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", t.Token))
	return base.RoundTrip(req)
}
