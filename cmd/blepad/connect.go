package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <peripheral-id>",
	Short: "Connect to a BLE controller",
	Long: `Connect to a BLE controller and report the outcome.

With --watch the connection stays up and battery level changes and connection
errors are printed until interrupted with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

var (
	connectTimeout time.Duration
	connectWatch   bool
)

func init() {
	connectCmd.Flags().DurationVarP(&connectTimeout, "timeout", "t", 0, "Connection timeout (0 uses the configured default)")
	connectCmd.Flags().BoolVarP(&connectWatch, "watch", "w", false, "Stay connected and print battery and error events")
}

func runConnect(cmd *cobra.Command, args []string) error {
	address := args[0]

	m, _, _, cleanup, err := buildManager(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	lost := make(chan error, 1)
	if connectWatch {
		m.OnBattery(func(level int) {
			color.Green("Battery: %d%%", level)
		})
		m.OnError(func(err error) {
			select {
			case lost <- err:
			default:
			}
		})
	}

	progress := NewProgressPrinter(fmt.Sprintf("Connecting to %s", address), "connecting")
	progress.Start()
	err = connectController(m, address, connectTimeout, progress)
	progress.Stop()
	if err != nil {
		return err
	}

	mtu, mtuErr := m.MTU()
	if mtuErr == nil {
		fmt.Printf("Connected to %s (MTU %d)\n", address, mtu)
	} else {
		fmt.Printf("Connected to %s\n", address)
	}

	if !connectWatch {
		disconnectAndWait(m)
		fmt.Println("Disconnected")
		return nil
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		fmt.Println("\nCtrl+C pressed, disconnecting...")
		disconnectAndWait(m)
		fmt.Println("Disconnected")
		return nil
	case err := <-lost:
		color.Red("%s", FormatUserError(err))
		return err
	}
}
