package userconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerURLRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	url, err := GetServerURL()
	require.NoError(t, err)
	assert.Empty(t, url)

	require.NoError(t, SetServerURL("https://rundown.example.com"))

	url, err = GetServerURL()
	require.NoError(t, err)
	assert.Equal(t, "https://rundown.example.com", url)

	data, err := os.ReadFile(filepath.Join(home, ".config", "rundown", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "server_url: https://rundown.example.com\n", string(data))
}

func TestLoad_Malformed(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "rundown")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server_url: [unterminated"), 0644))

	_, err := Load()
	assert.Error(t, err)
}
