package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all qcviz configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Chart    ChartConfig    `yaml:"chart"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP UI.
type ServerConfig struct {
	Addr              string   `yaml:"addr"`
	MaxFileSize       int64    `yaml:"max_file_size"` // bytes
	MaxRows           int      `yaml:"max_rows"`
	ReadHeaderTimeout string   `yaml:"read_header_timeout"`
	Mode              string   `yaml:"mode"`         // gin mode: release, debug, test
	CORSOrigins       []string `yaml:"cors_origins"` // origins allowed to call /api; empty disables CORS
}

// ChartConfig sizes the rendered chart.
type ChartConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DefaultsConfig names the columns used when the user picks no variable.
type DefaultsConfig struct {
	Variable  string `yaml:"variable"`
	Time      string `yaml:"time"`
	Secondary string `yaml:"secondary"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // empty means stderr
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			MaxFileSize:       10 << 20,
			MaxRows:           100000,
			ReadHeaderTimeout: "10s",
			Mode:              "release",
		},
		Chart: ChartConfig{
			Width:  1024,
			Height: 480,
		},
		Defaults: DefaultsConfig{
			Variable:  "sea_surface_height_above_sea_level",
			Time:      "time",
			Secondary: "z",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("QCVIZ_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if level := os.Getenv("QCVIZ_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if size := os.Getenv("QCVIZ_MAX_FILE_SIZE"); size != "" {
		if n, err := strconv.ParseInt(size, 10, 64); err == nil {
			c.Server.MaxFileSize = n
		}
	}
}

// GetReadHeaderTimeout returns the read header timeout as a duration.
func (c *Config) GetReadHeaderTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ReadHeaderTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.MaxFileSize <= 0 {
		return fmt.Errorf("server.max_file_size must be positive, got %d", c.Server.MaxFileSize)
	}
	switch c.Server.Mode {
	case "release", "debug", "test":
	default:
		return fmt.Errorf("invalid server mode: %s (valid: release, debug, test)", c.Server.Mode)
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("chart size must be positive, got %dx%d", c.Chart.Width, c.Chart.Height)
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid logging format: %s (valid: json, console)", c.Logging.Format)
	}
	return nil
}
