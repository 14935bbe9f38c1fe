package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/facturas.db", cfg.Database.Path)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, 5*time.Second, cfg.Upstream.ReconnectDelay)
	assert.Equal(t, time.Duration(0), cfg.Sync.Interval)
	assert.Equal(t, 50, cfg.Feed.LogSize)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
remote:
  api_url: https://api.example.com/
  invoice_url: https://api.example.com/invoice
sync:
  interval: 30s
  client_id: "c1"
`)
	t.Setenv("REMOTE_PASSPHRASE", "secret")
	t.Setenv("UPSTREAM_WS_URL", "ws://localhost:9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Remote.Passphrase)
	assert.Equal(t, "ws://localhost:9000", cfg.Upstream.URL)
	assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
	assert.Equal(t, "c1", cfg.Sync.ClientID)
}

func TestLoad_SyncRequiresRemote(t *testing.T) {
	path := writeConfig(t, `
sync:
  interval: 1m
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote.invoice_url is required")
	assert.Contains(t, err.Error(), "remote.passphrase is required")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	existing := writeConfig(t, "server:\n  port: 1\n")

	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, existing, ResolvePath(existing))
	assert.Equal(t, "", ResolvePath(filepath.Join(t.TempDir(), "missing.yaml")))

	t.Setenv("CONFIG_PATH", "/etc/facturas.yaml")
	assert.Equal(t, "/etc/facturas.yaml", ResolvePath(existing))
}
