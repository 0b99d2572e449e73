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
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
api_url: https://book.example.com/api
data_dir: /tmp/carebook-test
log_level: debug
log_json: true
http_timeout: 15s
rate_limit: 5
rate_burst: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://book.example.com/api", cfg.APIURL)
	assert.Equal(t, "/tmp/carebook-test", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5.0, cfg.RateLimit)
	assert.Equal(t, 10, cfg.RateBurst)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "api_url: https://file.example.com/api\n")

	t.Setenv("CAREBOOK_API_URL", "https://env.example.com/api")
	t.Setenv("CAREBOOK_HTTP_TIMEOUT", "3s")
	t.Setenv("CAREBOOK_LOG_JSON", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com/api", cfg.APIURL)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.LogJSON)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Zero(t, cfg.HTTPTimeout)
}

func TestLoadBadEnvValue(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("CAREBOOK_RATE_LIMIT", "fast")

	_, err := Load(path)
	assert.ErrorContains(t, err, "RATE_LIMIT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"ftp scheme", func(c *Config) { c.APIURL = "ftp://example.com" }, true},
		{"no host", func(c *Config) { c.APIURL = "http:///api" }, true},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, true},
		{"negative timeout", func(c *Config) { c.HTTPTimeout = -time.Second }, true},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.APIURL = "https://saved.example.com/api"
	cfg.DataDir = "/var/lib/carebook"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.APIURL, loaded.APIURL)
	assert.Equal(t, cfg.DataDir, loaded.DataDir)
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, "data"), expandHome("~/data"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
}
