package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 30*time.Millisecond, cfg.WriteInterval)
	assert.Equal(t, 30*time.Second, cfg.BatteryPollInterval)
	assert.Equal(t, "180f", cfg.BatteryServiceUUID)
	assert.Equal(t, "2a19", cfg.BatteryCharUUID)
	assert.Equal(t, 10*time.Second, cfg.ScanDuration)
	assert.Equal(t, 128, cfg.EventBuffer)
	assert.NoError(t, cfg.Validate())
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
log_level: debug
connect_timeout: 5s
write_interval: 50ms
battery_poll_interval: 1m
battery_char_uuid: 2a20
event_buffer: 64
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.WriteInterval)
	assert.Equal(t, time.Minute, cfg.BatteryPollInterval)
	assert.Equal(t, "2a20", cfg.BatteryCharUUID)
	assert.Equal(t, 64, cfg.EventBuffer)

	// Untouched fields keep their defaults.
	assert.Equal(t, "180f", cfg.BatteryServiceUUID)
	assert.Equal(t, 10*time.Second, cfg.ScanDuration)
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "unknown log level",
			content: "log_level: loud",
		},
		{
			name:    "malformed duration",
			content: "connect_timeout: soon",
		},
		{
			name:    "zero connect timeout",
			content: "connect_timeout: 0s",
		},
		{
			name:    "zero write interval",
			content: "write_interval: 0s",
		},
		{
			name:    "negative battery poll interval",
			content: "battery_poll_interval: -10s",
		},
		{
			name:    "not yaml",
			content: "{{{",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestBatteryPollingCanBeDisabled(t *testing.T) {
	path := writeConfigFile(t, "battery_poll_interval: 0s")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.BatteryPollInterval)
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = logrus.WarnLevel

	logger := cfg.NewLogger()
	require.NotNil(t, logger)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
