package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Gateway transport modes.
const (
	ModeLocal = "local" // in-process backend over the local database
	ModeHTTP  = "http"  // remote `battlelog serve` instance
)

// Database drivers.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, cgo
)

// Config holds all battlelog configuration.
type Config struct {
	// DataDir holds the database, logs and config file. Relative paths in
	// other sections are resolved against it.
	DataDir string `yaml:"data_dir" env:"BATTLELOG_HOME"`

	Gateway GatewayConfig `yaml:"gateway"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Battles BattlesConfig `yaml:"battles"`
	UI      UIConfig      `yaml:"ui"`
	Logging LoggingConfig `yaml:"logging"`
}

// GatewayConfig selects how commands reach the backend.
type GatewayConfig struct {
	Mode    string `yaml:"mode" env:"BATTLELOG_GATEWAY_MODE"`
	BaseURL string `yaml:"base_url" env:"BATTLELOG_GATEWAY_URL"`
	Timeout string `yaml:"timeout" env:"BATTLELOG_GATEWAY_TIMEOUT"`
}

// StoreConfig configures the SQLite database used by the local backend.
type StoreConfig struct {
	Driver       string `yaml:"driver" env:"BATTLELOG_DB_DRIVER"`
	DatabasePath string `yaml:"database_path" env:"BATTLELOG_DB"`
}

// ServerConfig configures `battlelog serve`.
type ServerConfig struct {
	Listen  string `yaml:"listen" env:"BATTLELOG_LISTEN"`
	Metrics bool   `yaml:"metrics" env:"BATTLELOG_METRICS"`
}

// BattlesConfig configures the battles list.
type BattlesConfig struct {
	PollInterval string `yaml:"poll_interval" env:"BATTLELOG_POLL_INTERVAL"`
	HowMany      int    `yaml:"how_many" env:"BATTLELOG_HOW_MANY"`
}

// UIConfig holds user interface configuration.
type UIConfig struct {
	Theme string `yaml:"theme" env:"BATTLELOG_THEME"` // light, dark, auto
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: DefaultDataDir(),

		Gateway: GatewayConfig{
			Mode:    ModeLocal,
			BaseURL: "http://127.0.0.1:7878",
			Timeout: "10s",
		},

		Store: StoreConfig{
			Driver:       DriverSQLite,
			DatabasePath: "battlelog.db",
		},

		Server: ServerConfig{
			Listen:  "127.0.0.1:7878",
			Metrics: true,
		},

		Battles: BattlesConfig{
			PollInterval: "250ms",
			HowMany:      0,
		},

		UI: UIConfig{
			Theme: "auto",
		},

		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			DebugMode: false,
		},
	}
}

// DefaultDataDir returns the directory holding battlelog state.
// A workspace-local .battlelog directory wins when present; otherwise the
// home-level ~/.battlelog is used.
func DefaultDataDir() string {
	if cwd, err := os.Getwd(); err == nil {
		localDir := filepath.Join(cwd, ".battlelog")
		if stat, err := os.Stat(localDir); err == nil && stat.IsDir() {
			return localDir
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".battlelog"
	}
	return filepath.Join(home, ".battlelog")
}

// DefaultConfigPath returns the config file inside the default data dir.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Load loads configuration from a YAML file, then applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
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

// applyEnvOverrides applies BATTLELOG_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	return nil
}

// DatabasePath returns the database path resolved against DataDir.
func (c *Config) DatabasePath() string {
	return c.resolve(c.Store.DatabasePath)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.DataDir == "" {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// GetGatewayTimeout returns the gateway timeout as a duration.
func (c *Config) GetGatewayTimeout() time.Duration {
	d, err := time.ParseDuration(c.Gateway.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetPollInterval returns the battles poll interval as a duration.
func (c *Config) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.Battles.PollInterval)
	if err != nil || d <= 0 {
		return 250 * time.Millisecond
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Gateway.Mode {
	case ModeLocal:
		if c.Store.DatabasePath == "" {
			return fmt.Errorf("store.database_path is required in %s mode", ModeLocal)
		}
	case ModeHTTP:
		u, err := url.Parse(c.Gateway.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid gateway.base_url: %q", c.Gateway.BaseURL)
		}
	default:
		return fmt.Errorf("invalid gateway.mode: %s (valid: %s, %s)", c.Gateway.Mode, ModeLocal, ModeHTTP)
	}

	switch c.Store.Driver {
	case DriverSQLite, DriverSQLite3:
	default:
		return fmt.Errorf("invalid store.driver: %s (valid: %s, %s)", c.Store.Driver, DriverSQLite, DriverSQLite3)
	}

	if c.Battles.PollInterval != "" {
		if d, err := time.ParseDuration(c.Battles.PollInterval); err != nil || d <= 0 {
			return fmt.Errorf("invalid battles.poll_interval: %q", c.Battles.PollInterval)
		}
	}
	if c.Battles.HowMany < 0 {
		return fmt.Errorf("battles.how_many must not be negative")
	}
	return nil
}
