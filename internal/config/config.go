package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config is the runtime configuration, loaded from a TOML file with
// defaults applied for anything unset.
type Config struct {
	// ModulePaths are the directories scanned for modules, highest
	// priority first.
	ModulePaths []string `toml:"module_paths"`

	// AutoLoad lists modules loaded and activated at startup. Empty
	// means load everything discovered.
	AutoLoad []string `toml:"auto_load"`

	// QueueCapacity bounds the deferred event queue.
	QueueCapacity int `toml:"queue_capacity"`

	// TickInterval is the deferred-event flush interval in
	// milliseconds.
	TickInterval int `toml:"tick_interval_ms"`

	// Watch enables module hot reload on file change.
	Watch bool `toml:"watch"`

	// DebounceInterval coalesces bursts of file events, in
	// milliseconds.
	DebounceInterval int `toml:"debounce_ms"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		QueueCapacity:    1024,
		TickInterval:     50,
		Watch:            true,
		DebounceInterval: 250,
		LogLevel:         "info",
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "modkit", "config.toml")
	}
	return "config.toml"
}

// Load reads configuration from path. A missing file yields the
// defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.QueueCapacity < 0 {
		return fmt.Errorf("%w: queue_capacity %d", ErrInvalidValue, c.QueueCapacity)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval_ms %d", ErrInvalidValue, c.TickInterval)
	}
	if c.DebounceInterval < 0 {
		return fmt.Errorf("%w: debounce_ms %d", ErrInvalidValue, c.DebounceInterval)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidValue, c.LogLevel)
	}
	return nil
}
