// Package config holds the tunables of the connection manager and the shared
// logger setup.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Zero fields are filled from the
// default tags by Default and Load.
type Config struct {
	LogLevel logrus.Level

	// ConnectTimeout bounds a single connection attempt.
	ConnectTimeout time.Duration `default:"10s"`

	// WriteInterval is the minimum spacing between two writes dispatched to
	// the peripheral.
	WriteInterval time.Duration `default:"30ms"`

	// BatteryPollInterval drives the battery poller; zero disables polling.
	BatteryPollInterval time.Duration `default:"30s"`

	// BatteryServiceUUID/BatteryCharUUID locate the battery level value
	// (GATT Battery Service by default).
	BatteryServiceUUID string `default:"180f"`
	BatteryCharUUID    string `default:"2a19"`

	// ScanDuration is the default scan length used by the CLI.
	ScanDuration time.Duration `default:"10s"`

	// EventBuffer sizes the per-channel event ring buffers.
	EventBuffer int `default:"128"`
}

// Default returns the default configuration.
func Default() *Config {
	cfg := &Config{LogLevel: logrus.InfoLevel}
	defaults.SetDefaults(cfg)
	return cfg
}

// fileConfig is the YAML representation. Durations and the log level are
// strings in the file and validated on load.
type fileConfig struct {
	LogLevel            string `yaml:"log_level"`
	ConnectTimeout      string `yaml:"connect_timeout"`
	WriteInterval       string `yaml:"write_interval"`
	BatteryPollInterval string `yaml:"battery_poll_interval"`
	BatteryServiceUUID  string `yaml:"battery_service_uuid"`
	BatteryCharUUID     string `yaml:"battery_char_uuid"`
	ScanDuration        string `yaml:"scan_duration"`
	EventBuffer         int    `yaml:"event_buffer"`
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if raw.LogLevel != "" {
		level, err := logrus.ParseLevel(raw.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("log_level: %w", err)
		}
		cfg.LogLevel = level
	}
	if err := setDuration(&cfg.ConnectTimeout, "connect_timeout", raw.ConnectTimeout); err != nil {
		return nil, err
	}
	if err := setDuration(&cfg.WriteInterval, "write_interval", raw.WriteInterval); err != nil {
		return nil, err
	}
	if err := setDuration(&cfg.BatteryPollInterval, "battery_poll_interval", raw.BatteryPollInterval); err != nil {
		return nil, err
	}
	if err := setDuration(&cfg.ScanDuration, "scan_duration", raw.ScanDuration); err != nil {
		return nil, err
	}
	if raw.BatteryServiceUUID != "" {
		cfg.BatteryServiceUUID = raw.BatteryServiceUUID
	}
	if raw.BatteryCharUUID != "" {
		cfg.BatteryCharUUID = raw.BatteryCharUUID
	}
	if raw.EventBuffer > 0 {
		cfg.EventBuffer = raw.EventBuffer
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDuration(dst *time.Duration, field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}

// Validate rejects configurations the manager cannot run with.
func (c *Config) Validate() error {
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %v", c.ConnectTimeout)
	}
	if c.WriteInterval <= 0 {
		return fmt.Errorf("write_interval must be positive, got %v", c.WriteInterval)
	}
	if c.BatteryPollInterval < 0 {
		return fmt.Errorf("battery_poll_interval must not be negative, got %v", c.BatteryPollInterval)
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("event_buffer must be positive, got %d", c.EventBuffer)
	}
	return nil
}

// NewLogger creates a configured logger instance.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger
}
