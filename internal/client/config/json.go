package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Duration accepts "3s" style strings or integer nanoseconds in JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
		return nil
	}
	return fmt.Errorf("invalid duration %s", string(b))
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// jsonConfig is the file representation. Pointers distinguish an absent field from a zero value.
type jsonConfig struct {
	DBPath              *string   `json:"db_path"`
	StoreDriver         *string   `json:"store_driver"`
	ServerURL           *string   `json:"server_url"`
	APIToken            *string   `json:"api_token"`
	LogLevel            *string   `json:"log_level"`
	OnlineCheckInterval *Duration `json:"online_check_interval"`
	SyncInterval        *Duration `json:"sync_interval"`
	CacheSweepInterval  *Duration `json:"cache_sweep_interval"`
}

// LoadFile overlays the fields present in a JSON file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.DBPath, jc.DBPath)
	setString(&c.StoreDriver, jc.StoreDriver)
	setString(&c.ServerURL, jc.ServerURL)
	setString(&c.APIToken, jc.APIToken)
	setString(&c.LogLevel, jc.LogLevel)
	setDuration(&c.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDuration(&c.SyncInterval, jc.SyncInterval)
	setDuration(&c.CacheSweepInterval, jc.CacheSweepInterval)

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
