package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected Addr=:8080, got %s", cfg.Server.Addr)
	}
	if cfg.Server.MaxFileSize != 10<<20 {
		t.Errorf("expected MaxFileSize=10MB, got %d", cfg.Server.MaxFileSize)
	}
	if cfg.Defaults.Variable != "sea_surface_height_above_sea_level" {
		t.Errorf("unexpected default variable %s", cfg.Defaults.Variable)
	}
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("QCVIZ_ADDR", "")
	t.Setenv("QCVIZ_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "nested", "qcviz.yaml")

	cfg := DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:9000"
	cfg.Chart.Width = 800
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", loaded.Server.Addr)
	assert.Equal(t, 800, loaded.Chart.Width)
	assert.Equal(t, cfg.Chart.Height, loaded.Chart.Height)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv("QCVIZ_ADDR", "")
	t.Setenv("QCVIZ_LOG_LEVEL", "")
	t.Setenv("QCVIZ_MAX_FILE_SIZE", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("QCVIZ_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "qcviz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qcviz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QCVIZ_ADDR", ":9999")
	t.Setenv("QCVIZ_LOG_LEVEL", "warn")
	t.Setenv("QCVIZ_MAX_FILE_SIZE", "2048")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, int64(2048), cfg.Server.MaxFileSize)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"zero file size", func(c *Config) { c.Server.MaxFileSize = 0 }},
		{"zero chart", func(c *Config) { c.Chart.Width = 0 }},
		{"bad mode", func(c *Config) { c.Server.Mode = "fast" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetReadHeaderTimeout(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10*time.Second, cfg.GetReadHeaderTimeout())

	cfg.Server.ReadHeaderTimeout = "bogus"
	assert.Equal(t, 10*time.Second, cfg.GetReadHeaderTimeout())

	cfg.Server.ReadHeaderTimeout = "3s"
	assert.Equal(t, 3*time.Second, cfg.GetReadHeaderTimeout())
}
