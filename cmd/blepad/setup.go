package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blepad/blepad/internal/driver/goble"
	"github.com/blepad/blepad/internal/gamepad"
	"github.com/blepad/blepad/pkg/config"
)

// loadConfig reads the --config file when given, defaults otherwise.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildManager wires the production BLE stack behind a connection manager.
// The returned cleanup releases the manager and the adapter.
func buildManager(cmd *cobra.Command) (*gamepad.Manager, *config.Config, *logrus.Logger, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	adapter := goble.New(logger)
	manager := gamepad.New(adapter, cfg, logger)
	cleanup := func() {
		manager.Close()
		adapter.Close()
	}
	return manager, cfg, logger, cleanup, nil
}

// connectController runs one connection attempt and blocks until it resolves
// or the user interrupts. The progress printer follows the attempt's stages.
func connectController(m *gamepad.Manager, address string, timeout time.Duration, progress *ProgressPrinter) error {
	resultCh := make(chan error, 1)
	err := m.Connect(address, &gamepad.ConnectOptions{
		Timeout: timeout,
		OnProgress: func(stage string) {
			if progress != nil {
				progress.SetPhase(stage)
			}
		},
		OnResult: func(err error) {
			resultCh <- err
		},
	})
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-resultCh:
		return err
	case <-sigCh:
		fmt.Println("\nCtrl+C pressed, cancelling...")
		m.Disconnect(nil)
		return <-resultCh
	}
}

// disconnectAndWait tears the connection down and blocks until the driver
// confirms, bounded so a wedged stack cannot hang the process on exit.
func disconnectAndWait(m *gamepad.Manager) {
	done := make(chan struct{})
	m.Disconnect(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}
