// Package config manages application configuration stored as TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	// Local database configuration
	Database DatabaseConfig `toml:"database"`

	// Remote catalog (Scryfall) configuration
	Scryfall ScryfallConfig `toml:"scryfall"`

	// Backup configuration
	Backup BackupConfig `toml:"backup"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// DatabaseConfig contains local store settings.
type DatabaseConfig struct {
	Path        string `toml:"path"`         // Path to the SQLite file; empty = default location
	BusyTimeout string `toml:"busy_timeout"` // Lock wait (e.g. "5s")
	JournalMode string `toml:"journal_mode"` // DELETE, TRUNCATE, PERSIST, MEMORY, WAL, OFF
	Synchronous string `toml:"synchronous"`  // OFF, NORMAL, FULL, EXTRA
}

// ScryfallConfig contains remote catalog client settings.
type ScryfallConfig struct {
	BaseURL      string `toml:"base_url"`      // API base URL
	UserAgent    string `toml:"user_agent"`    // User-Agent header
	RequestDelay string `toml:"request_delay"` // Minimum delay between requests (e.g. "100ms")
}

// BackupConfig contains backup settings.
type BackupConfig struct {
	Dir    string `toml:"dir"`    // Backup directory; empty = next to the database
	Verify bool   `toml:"verify"` // Verify snapshots after creation
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"` // Enable debug logging
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "",
			BusyTimeout: "5s",
			JournalMode: "WAL",
			Synchronous: "NORMAL",
		},
		Scryfall: ScryfallConfig{
			BaseURL:      "https://api.scryfall.com",
			UserAgent:    "magic-app/1.0",
			RequestDelay: "100ms",
		},
		Backup: BackupConfig{
			Dir:    "",
			Verify: true,
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// appDir returns the per-user application directory, creating it if needed.
func appDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".magic-app")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create application directory: %w", err)
	}

	return dir, nil
}

// configPath returns the path to the configuration file.
func configPath() (string, error) {
	dir, err := appDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DatabasePath returns the configured database path, or the default
// location under the application directory when unset.
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	dir, err := appDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "collection.db"), nil
}

// Load loads the configuration from disk. Returns default config if the
// file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// Save saves the configuration to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo saves the configuration to an explicit path.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Database.BusyTimeout); err != nil {
		return fmt.Errorf("invalid busy timeout %q: %w", c.Database.BusyTimeout, err)
	}

	if _, err := time.ParseDuration(c.Scryfall.RequestDelay); err != nil {
		return fmt.Errorf("invalid request delay %q: %w", c.Scryfall.RequestDelay, err)
	}

	return nil
}

// GetBusyTimeout returns the database lock wait as a duration.
func (c *Config) GetBusyTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Database.BusyTimeout)
}

// GetRequestDelay returns the catalog request delay as a duration.
func (c *Config) GetRequestDelay() (time.Duration, error) {
	return time.ParseDuration(c.Scryfall.RequestDelay)
}
