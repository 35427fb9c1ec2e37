package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newFlagSet(t))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileThenFlags(t *testing.T) {
	path := writeFile(t, `{
		"db_path": "/tmp/file.db",
		"store_driver": "sqlite",
		"server_url": "http://file:8080",
		"sync_interval": "30s",
		"cache_sweep_interval": 2000000000
	}`)

	cfg, err := Load(newFlagSet(t, "-c", path, "--server", "http://flag:9090", "--log-level", "debug"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/file.db", cfg.DBPath)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "http://flag:9090", cfg.ServerURL, "flag overrides file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, 2*time.Second, cfg.CacheSweepInterval)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval, "absent field keeps default")
}

func TestLoad_FileZeroValuesApply(t *testing.T) {
	path := writeFile(t, `{"sync_interval": "0s", "server_url": ""}`)

	fs := newFlagSet(t, "--config", path)
	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Zero(t, cfg.SyncInterval)
	assert.Empty(t, cfg.ServerURL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
	}{
		{name: "missing file", args: func(t *testing.T) []string {
			return []string{"-c", filepath.Join(t.TempDir(), "absent.json")}
		}},
		{name: "broken json", args: func(t *testing.T) []string {
			return []string{"-c", writeFile(t, `{"db_path":`)}
		}},
		{name: "bad duration", args: func(t *testing.T) []string {
			return []string{"-c", writeFile(t, `{"sync_interval":"soon"}`)}
		}},
		{name: "bad driver", args: func(t *testing.T) []string {
			return []string{"--driver", "postgres"}
		}},
		{name: "bad level", args: func(t *testing.T) []string {
			return []string{"--log-level", "loud"}
		}},
		{name: "negative interval", args: func(t *testing.T) []string {
			return []string{"--sync-interval", "-1s"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newFlagSet(t, tt.args(t)...))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.DBPath = ""
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Duration)

	require.NoError(t, json.Unmarshal([]byte(`1000`), &d))
	assert.Equal(t, time.Microsecond, d.Duration)

	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	out, err := json.Marshal(Duration{Duration: 3 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `"3s"`, string(out))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
