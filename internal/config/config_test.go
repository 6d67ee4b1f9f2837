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
	path := filepath.Join(t.TempDir(), "macroweb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.Engine.PollInterval)
	assert.Equal(t, 3000*time.Millisecond, cfg.Engine.WaitTimeout)
	assert.Equal(t, 500, cfg.Engine.SnapshotLimit)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.True(t, cfg.Browser.Headless)
	assert.Empty(t, cfg.CaptureDir)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
browser:
  url: https://example.com
  headless: false
  width: 800
engine:
  wait_timeout: 250ms
store:
  driver: redis
  redis_addr: localhost:6379
capture_dir: captures
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", cfg.Browser.URL)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 800, cfg.Browser.Width)
	assert.Equal(t, 720, cfg.Browser.Height, "unset keys keep their defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.WaitTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Engine.PollInterval)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "captures", cfg.CaptureDir)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "browser:\n  url: https://file.example\n")
	t.Setenv("MACROWEB_URL", "https://env.example")
	t.Setenv("MACROWEB_HEADLESS", "false")
	t.Setenv("MACROWEB_WAIT_TIMEOUT", "5s")
	t.Setenv("MACROWEB_SNAPSHOT_LIMIT", "200")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example", cfg.Browser.URL)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 5*time.Second, cfg.Engine.WaitTimeout)
	assert.Equal(t, 200, cfg.Engine.SnapshotLimit)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "bad yaml", file: "browser: [\n"},
		{name: "bad bool", env: map[string]string{"MACROWEB_HEADLESS": "sometimes"}},
		{name: "bad int", env: map[string]string{"MACROWEB_WIDTH": "wide"}},
		{name: "bad duration", env: map[string]string{"MACROWEB_POLL_INTERVAL": "soon"}},
		{name: "unknown driver", env: map[string]string{"MACROWEB_STORE_DRIVER": "etcd"}},
		{name: "redis without addr", env: map[string]string{"MACROWEB_STORE_DRIVER": "redis"}},
		{name: "zero timeout", env: map[string]string{"MACROWEB_WAIT_TIMEOUT": "0s"}},
		{name: "unknown provider", env: map[string]string{"MACROWEB_AI_PROVIDER": "eliza"}},
		{name: "unknown log format", env: map[string]string{"MACROWEB_LOG_FORMAT": "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
