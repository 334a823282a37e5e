// Package config defines the server browser configuration and its JSON
// file handling.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default values.
const (
	DefaultGamePort       = 3979
	DefaultListen         = "127.0.0.1:3980"
	DefaultTickIntervalMS = 30

	DefaultRequeryWindowTicks = 60
	DefaultMaxRequeryAttempts = 10
	DefaultRefreshWindows     = 50
)

// RequeryConfig holds the requery cadence policy knobs.
type RequeryConfig struct {
	// WindowTicks is the number of simulation ticks per requery window.
	WindowTicks int `json:"window_ticks"`
	// MaxAttempts caps consecutive short retries of an unresponsive server.
	MaxAttempts int `json:"max_attempts"`
	// RefreshWindows is the full-refresh period, in windows.
	RefreshWindows int `json:"refresh_windows"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level      string `json:"level"`
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// Config is the top-level server browser configuration.
type Config struct {
	// DataDir holds the bbolt database and the search index.
	DataDir string `json:"data_dir"`
	// Listen is the address of the local status/event HTTP endpoint.
	Listen string `json:"listen"`
	// GamePort is the default port applied to connection strings without one.
	GamePort int `json:"game_port"`
	// Revision is the local game release; servers reporting an
	// incompatible release are flagged.
	Revision string `json:"revision"`
	// TickIntervalMS is the wall-clock duration of one simulation tick,
	// in milliseconds.
	TickIntervalMS int `json:"tick_interval_ms"`

	Requery RequeryConfig `json:"requery"`
	Logging LogConfig     `json:"logging"`
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		DataDir:        defaultDataDir(),
		Listen:         DefaultListen,
		GamePort:       DefaultGamePort,
		TickIntervalMS: DefaultTickIntervalMS,
		Requery: RequeryConfig{
			WindowTicks:    DefaultRequeryWindowTicks,
			MaxAttempts:    DefaultMaxRequeryAttempts,
			RefreshWindows: DefaultRefreshWindows,
		},
		Logging: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".serverbrowser"
	}
	return filepath.Join(home, ".serverbrowser")
}

// Validate checks the configuration for values the browser cannot run with.
func (c *Config) Validate() error {
	if c.GamePort <= 0 || c.GamePort > 65535 {
		return fmt.Errorf("invalid game_port: %d", c.GamePort)
	}
	if c.TickIntervalMS <= 0 {
		return fmt.Errorf("tick_interval_ms must be positive")
	}
	if c.Requery.WindowTicks <= 0 {
		return fmt.Errorf("requery.window_ticks must be positive")
	}
	if c.Requery.MaxAttempts <= 0 {
		return fmt.Errorf("requery.max_attempts must be positive")
	}
	if c.Requery.RefreshWindows <= c.Requery.MaxAttempts {
		return fmt.Errorf("requery.refresh_windows (%d) must exceed requery.max_attempts (%d)",
			c.Requery.RefreshWindows, c.Requery.MaxAttempts)
	}
	return nil
}

// TickInterval returns the tick interval as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// LoadFromFile loads configuration from a JSON file, filling unset fields
// with defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes configuration to a JSON file, creating the directory if
// needed.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
