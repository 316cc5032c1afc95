package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kpath.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "file io", cfg.IODir)
	assert.Equal(t, "input.txt", cfg.InputFile)
	assert.Equal(t, "output.txt", cfg.OutputFile)
	assert.Equal(t, 2, cfg.K)
	assert.Equal(t, int32(0), cfg.Source)
	assert.Equal(t, int32(-1), cfg.Destination)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 64<<20, cfg.Server.MaxTraceBytes)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
base_dir: /srv/kpath
k: 5
source: 3
destination: 7
log_level: debug
log_format: json
server:
  addr: 127.0.0.1:9000
  request_timeout: 2s
  max_concurrent: 4
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/kpath", cfg.BaseDir)
	assert.Equal(t, 5, cfg.K)
	assert.Equal(t, int32(3), cfg.Source)
	assert.Equal(t, int32(7), cfg.Destination)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 4, cfg.Server.MaxConcurrent)
	// Unset keys keep their defaults.
	assert.Equal(t, "file io", cfg.IODir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "k: 5\nio_dir: data\n")
	t.Setenv("KPATH_K", "9")
	t.Setenv("KPATH_IO_DIR", "other")
	t.Setenv("KPATH_DESTINATION", "4")
	t.Setenv("KPATH_MAX_TRACE_BYTES", "0")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.K)
	assert.Equal(t, "other", cfg.IODir)
	assert.Equal(t, int32(4), cfg.Destination)
	assert.Equal(t, 0, cfg.Server.MaxTraceBytes)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "k: [1, 2"))
		assert.Error(t, err)
	})
	t.Run("bad env", func(t *testing.T) {
		t.Setenv("KPATH_K", "many")
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative k", func(c *Config) { c.K = -1 }},
		{"negative source", func(c *Config) { c.Source = -1 }},
		{"destination below -1", func(c *Config) { c.Destination = -2 }},
		{"empty io dir", func(c *Config) { c.IODir = "" }},
		{"unknown level", func(c *Config) { c.LogLevel = "loud" }},
		{"unknown format", func(c *Config) { c.LogFormat = "xml" }},
		{"no concurrency", func(c *Config) { c.Server.MaxConcurrent = 0 }},
		{"negative trace limit", func(c *Config) { c.Server.MaxTraceBytes = -1 }},
		{"no timeout", func(c *Config) { c.Server.RequestTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestIOPath(t *testing.T) {
	cfg := Default()
	cfg.BaseDir = "/opt/app"
	p, err := cfg.IOPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/opt/app", "file io"), p)

	cfg.BaseDir = ""
	base, err := cfg.ResolveBaseDir()
	require.NoError(t, err)
	assert.NotEmpty(t, base)
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	cfg.LogFormat = "json"
	log := cfg.NewLogger()
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}
