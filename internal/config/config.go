// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"contract-billing/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Storage contains persistence configuration
	Storage StorageConfig `json:"storage"`

	// Presets contains preset definition file configuration
	Presets PresetConfig `json:"presets"`

	// Server contains API server configuration
	Server ServerConfig `json:"server"`

	// Billing contains billing defaults
	Billing BillingConfig `json:"billing"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// StorageConfig contains persistence settings
type StorageConfig struct {
	// DatabasePath is the path to the SQLite database
	DatabasePath string `json:"database_path"`

	// BusyTimeoutMs is the SQLite busy timeout in milliseconds
	BusyTimeoutMs int `json:"busy_timeout_ms"`

	// WALMode enables write-ahead logging
	WALMode bool `json:"wal_mode"`
}

// PresetConfig contains preset definition file settings
type PresetConfig struct {
	// Directory is where administrator-authored preset files live
	Directory string `json:"directory"`

	// LoadOnStart loads preset files into the store at startup
	LoadOnStart bool `json:"load_on_start"`
}

// ServerConfig contains API server settings
type ServerConfig struct {
	// ListenAddr is the HTTP listen address
	ListenAddr string `json:"listen_addr"`
}

// BillingConfig contains billing defaults
type BillingConfig struct {
	// DefaultPeriod is the billing period presets assume when unset
	// (weekly or monthly)
	DefaultPeriod string `json:"default_period"`

	// DefaultRoundUpMinutes is the conventional hourly rounding increment
	DefaultRoundUpMinutes int64 `json:"default_round_up_minutes"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".contract-billing", "billing.db")
	presetDir := filepath.Join(homeDir, ".contract-billing", "presets")

	return &Config{
		Version: "1.0",
		Storage: StorageConfig{
			DatabasePath:  dbPath,
			BusyTimeoutMs: 5000,
			WALMode:       true,
		},
		Presets: PresetConfig{
			Directory:   presetDir,
			LoadOnStart: true,
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Billing: BillingConfig{
			DefaultPeriod:         "monthly",
			DefaultRoundUpMinutes: 15,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
