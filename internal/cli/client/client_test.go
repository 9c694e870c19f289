package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "hunter22" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid email or password"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"token": "tok-123",
			"user":  map[string]any{"id": "u1", "email": req.Email, "name": "Ada"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", false)
	assert.Equal(t, srv.URL, c.BaseURL())

	resp, err := c.Login("ada@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", resp.Token)
	assert.Equal(t, "Ada", resp.User.Name)

	_, err = c.Login("ada@example.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestAuthenticatedHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		w.Write([]byte(r.Header.Get("Authorization")))
	}))
	defer srv.Close()

	httpClient := New(srv.URL, false).AuthenticatedHTTPClient("tok-123")

	resp, err := httpClient.Get(srv.URL + "/echo")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", string(body))

	redirect, err := httpClient.Get(srv.URL + "/redirect")
	require.NoError(t, err)
	defer redirect.Body.Close()
	assert.Equal(t, http.StatusFound, redirect.StatusCode, "redirects are not followed")
}

func TestLogout(t *testing.T) {
	gotAuth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/logout", r.URL.Path)
		gotAuth <- r.Header.Get("Authorization")
		http.Redirect(w, r, "/", http.StatusFound)
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL, false).Logout("tok-123"))
	assert.Equal(t, "Bearer tok-123", <-gotAuth)
}
