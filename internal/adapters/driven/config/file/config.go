// Package file loads the importer configuration from a TOML file.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the importer configuration.
type Config struct {
	// CacheDir is where fetched pages are cached. Empty disables the
	// page cache.
	CacheDir string `toml:"cache_dir"`

	// Database is the path to the SQLite database. Empty uses the
	// default under ~/.ifimport.
	Database string `toml:"database"`

	// UserAgent identifies the crawler to site operators.
	UserAgent string `toml:"user_agent"`

	// TimeoutSeconds bounds a single HTTP request.
	TimeoutSeconds int `toml:"timeout_seconds"`

	// RatePerSecond throttles outgoing requests per fetcher.
	RatePerSecond float64 `toml:"rate_per_second"`

	// DisabledScrapers lists scraper names to leave unregistered.
	DisabledScrapers []string `toml:"disabled_scrapers"`

	// DirtyAgeHours bounds the change-feed lookback during bulk
	// import. Zero disables the dirty pass.
	DirtyAgeHours int `toml:"dirty_age_hours"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		TimeoutSeconds: 30,
		RatePerSecond:  1.0,
		DirtyAgeHours:  48,
	}
}

// Timeout returns the request timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DirtyAge returns the change-feed lookback as a duration.
func (c Config) DirtyAge() time.Duration {
	return time.Duration(c.DirtyAgeHours) * time.Hour
}

// ScraperDisabled reports whether the named scraper is disabled.
func (c Config) ScraperDisabled(name string) bool {
	for _, n := range c.DisabledScrapers {
		if n == name {
			return true
		}
	}
	return false
}

// DefaultPath returns ~/.ifimport/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".ifimport", "config.toml"), nil
}

// Load reads the configuration from path. A missing file yields the
// defaults; a malformed one is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating the directory if
// needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
