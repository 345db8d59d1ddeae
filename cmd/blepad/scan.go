package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/blepad/blepad/internal/gamepad"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE controllers",
	Long: `Scan for and display nearby BLE peripherals.

Discovered peripherals are listed with their identifiers, names, RSSI values,
and advertised services, strongest signal first.`,
	RunE: runScan,
}

var (
	scanDuration   time.Duration
	scanFormat     string
	scanServices   []string
	scanBackground bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 0, "Scan duration (0 uses the configured default)")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "Output format (table, json)")
	scanCmd.Flags().StringSliceVarP(&scanServices, "services", "s", nil, "Filter by service UUIDs")
	scanCmd.Flags().BoolVar(&scanBackground, "background", false, "Scan as a backgrounded app would (requires --services)")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanFormat != "table" && scanFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be table or json", scanFormat)
	}

	m, cfg, _, cleanup, err := buildManager(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	duration := scanDuration
	if duration <= 0 {
		duration = cfg.ScanDuration
	}

	err = m.StartScan(&gamepad.ScanOptions{
		ServiceUUIDs: scanServices,
		Background:   scanBackground,
	})
	if err != nil {
		return err
	}

	progress := NewCountdownProgressPrinter("Scanning for BLE controllers", "Scanning", duration)
	progress.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-time.After(duration):
	case <-sigCh:
		fmt.Println("\nCtrl+C pressed, cancelling scan...")
	}

	progress.Stop()
	if err := m.StopScan(); err != nil {
		return err
	}
	return displayPeripherals(m.Peripherals(), scanFormat)
}

func displayPeripherals(records []*gamepad.PeripheralRecord, format string) error {
	if len(records) == 0 {
		fmt.Println("No controllers discovered")
		return nil
	}
	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}
	return displayPeripheralTable(os.Stdout, records)
}

func displayPeripheralTable(out io.Writer, records []*gamepad.PeripheralRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tRSSI\tSERVICES\tLAST SEEN")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, rec := range records {
		name := rec.Name
		if name == "" {
			name = "(unknown)"
		}
		if len(name) > 20 {
			name = name[:17] + "..."
		}

		services := strings.Join(rec.Services, ",")
		if len(services) > 30 {
			services = services[:27] + "..."
		}

		lastSeen := time.Since(rec.LastSeen).Truncate(time.Second)
		fmt.Fprintf(w, "%s\t%s\t%d dBm\t%s\t%s ago\n",
			name, rec.ID, rec.RSSI, services, lastSeen)
	}
	return w.Flush()
}
