package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Имена флагов
const (
	FlagConfig              = "config"
	FlagDB                  = "db"
	FlagDriver              = "driver"
	FlagServer              = "server"
	FlagToken               = "token"
	FlagLogLevel            = "log-level"
	FlagOnlineCheckInterval = "online-check-interval"
	FlagSyncInterval        = "sync-interval"
	FlagCacheSweepInterval  = "cache-sweep-interval"
)

// RegisterFlags adds the config flags to fs with the built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.StringP(FlagConfig, "c", "", "path to JSON config file")
	fs.String(FlagDB, d.DBPath, "path to local database")
	fs.String(FlagDriver, d.StoreDriver, "local store driver (bolt|sqlite)")
	fs.String(FlagServer, d.ServerURL, "server URL; empty disables sync")
	fs.String(FlagToken, d.APIToken, "bearer token sent to the server")
	fs.String(FlagLogLevel, d.LogLevel, "log level (debug|info|warn|error)")
	fs.Duration(FlagOnlineCheckInterval, d.OnlineCheckInterval, "server reachability probe interval")
	fs.Duration(FlagSyncInterval, d.SyncInterval, "periodic sync interval in watch mode")
	fs.Duration(FlagCacheSweepInterval, d.CacheSweepInterval, "expired cache sweep interval in watch mode")
}

// applyFlags копирует только явно заданные флаги
func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagDB:
			c.DBPath, err = fs.GetString(f.Name)
		case FlagDriver:
			c.StoreDriver, err = fs.GetString(f.Name)
		case FlagServer:
			c.ServerURL, err = fs.GetString(f.Name)
		case FlagToken:
			c.APIToken, err = fs.GetString(f.Name)
		case FlagLogLevel:
			c.LogLevel, err = fs.GetString(f.Name)
		case FlagOnlineCheckInterval:
			c.OnlineCheckInterval, err = fs.GetDuration(f.Name)
		case FlagSyncInterval:
			c.SyncInterval, err = fs.GetDuration(f.Name)
		case FlagCacheSweepInterval:
			c.CacheSweepInterval, err = fs.GetDuration(f.Name)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to read flags: %w", err)
	}
	return nil
}
