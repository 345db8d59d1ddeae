package main

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blepad/blepad/pkg/config"
)

func newLogLevelCommand(t *testing.T, flagValue string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", "", "")
	if flagValue != "" {
		require.NoError(t, cmd.Flags().Set("log-level", flagValue))
	}
	return cmd
}

func TestConfigureLoggerFallsBackToConfig(t *testing.T) {
	// GOAL: Verify the config file's log level applies when --log-level is
	// not given
	//
	// TEST SCENARIO: config says warn, no flag → logger at warn with the
	// standard formatter

	cfg := config.Default()
	cfg.LogLevel = logrus.WarnLevel

	logger, err := configureLogger(newLogLevelCommand(t, ""), cfg)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestConfigureLoggerFlagTakesPrecedence(t *testing.T) {
	// GOAL: Verify --log-level overrides the config file's level

	cfg := config.Default()
	cfg.LogLevel = logrus.WarnLevel

	logger, err := configureLogger(newLogLevelCommand(t, "debug"), cfg)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestConfigureLoggerLevels(t *testing.T) {
	tests := []struct {
		flag     string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			logger, err := configureLogger(newLogLevelCommand(t, tt.flag), config.Default())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, logger.GetLevel())
		})
	}
}

func TestConfigureLoggerInvalidLevel(t *testing.T) {
	_, err := configureLogger(newLogLevelCommand(t, "loud"), config.Default())
	assert.Error(t, err)
}
