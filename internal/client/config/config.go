// Package config loads client settings: defaults, then an optional JSON file, then flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Поддерживаемые драйверы локального хранилища
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid config")

// Config holds runtime settings of the matsync CLI.
// A zero interval disables the corresponding background job.
type Config struct {
	DBPath              string
	StoreDriver         string
	ServerURL           string
	APIToken            string
	LogLevel            string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	CacheSweepInterval  time.Duration
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DBPath:              "matsync.db",
		StoreDriver:         DriverBolt,
		ServerURL:           "",
		LogLevel:            "warn",
		OnlineCheckInterval: 3 * time.Second,
		SyncInterval:        time.Minute,
		CacheSweepInterval:  5 * time.Minute,
	}
}

// Load builds the config for a parsed flag set registered with RegisterFlags.
// Later sources take precedence: defaults -> JSON file (--config) -> explicitly set flags.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	path, err := fs.GetString(FlagConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to read --%s flag: %w", FlagConfig, err)
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyFlags(fs); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerations and intervals
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path is empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverBolt, DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	for name, d := range map[string]time.Duration{
		"online_check_interval": c.OnlineCheckInterval,
		"sync_interval":         c.SyncInterval,
		"cache_sweep_interval":  c.CacheSweepInterval,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidConfig, name)
		}
	}
	return nil
}

// ParseLevel converts debug|info|warn|error to a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, level)
}

// NewLogger creates a text logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
