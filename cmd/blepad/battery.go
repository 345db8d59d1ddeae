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

// batteryCmd represents the battery command
var batteryCmd = &cobra.Command{
	Use:   "battery <peripheral-id>",
	Short: "Read a controller's battery level",
	Long: `Connects and reads the battery level characteristic once.

With --watch the connection stays up and every battery level change is printed
until interrupted with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runBattery,
}

var (
	batteryTimeout time.Duration
	batteryWatch   bool
)

func init() {
	batteryCmd.Flags().DurationVarP(&batteryTimeout, "timeout", "t", 0, "Connection timeout (0 uses the configured default)")
	batteryCmd.Flags().BoolVarP(&batteryWatch, "watch", "w", false, "Stay connected and print battery level changes")
}

func runBattery(cmd *cobra.Command, args []string) error {
	address := args[0]

	m, cfg, _, cleanup, err := buildManager(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	if batteryWatch {
		m.OnBattery(func(level int) {
			color.Green("Battery: %d%%", level)
		})
	}

	progress := NewProgressPrinter(fmt.Sprintf("Reading battery level of %s", address), "connecting")
	progress.Start()
	err = connectController(m, address, batteryTimeout, progress)
	progress.Stop()
	if err != nil {
		return err
	}
	defer disconnectAndWait(m)

	type readResult struct {
		data []byte
		err  error
	}
	resultCh := make(chan readResult, 1)
	err = m.Read(cfg.BatteryCharUUID, func(data []byte, err error) {
		resultCh <- readResult{data: data, err: err}
	})
	if err != nil {
		return err
	}

	result := <-resultCh
	if result.err != nil {
		return result.err
	}
	if len(result.data) == 0 {
		return fmt.Errorf("battery characteristic returned no data")
	}
	fmt.Printf("Battery: %d%%\n", result.data[0])

	if !batteryWatch {
		return nil
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	<-sigCh
	fmt.Println("\nCtrl+C pressed, disconnecting...")
	return nil
}
