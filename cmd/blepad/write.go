package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write <peripheral-id> <characteristic-uuid> <data>",
	Short: "Write to a controller characteristic",
	Long: `Connects, writes data to a characteristic, and disconnects.

Examples:
  # Write a string
  blepad write AA:BB:CC:DD:EE:FF 2a06 "high"

  # Write hex bytes
  blepad write AA:BB:CC:DD:EE:FF 2a06 FF01 --hex

  # Repeat a write, pacing is enforced by the connection manager
  blepad write AA:BB:CC:DD:EE:FF 2a06 01 --hex --repeat 10`,
	Args: cobra.ExactArgs(3),
	RunE: runWrite,
}

var (
	writeHex     bool
	writeRepeat  int
	writeTimeout time.Duration
)

func init() {
	writeCmd.Flags().BoolVar(&writeHex, "hex", false, "Parse input as hex string (e.g. 'FF01'); raw bytes by default")
	writeCmd.Flags().IntVar(&writeRepeat, "repeat", 1, "Send the payload N times")
	writeCmd.Flags().DurationVarP(&writeTimeout, "timeout", "t", 0, "Connection timeout (0 uses the configured default)")
}

func runWrite(cmd *cobra.Command, args []string) error {
	address, charUUID := args[0], args[1]
	if writeRepeat < 1 {
		return fmt.Errorf("--repeat must be at least 1, got %d", writeRepeat)
	}

	data, err := parseWriteData(args[2], writeHex)
	if err != nil {
		return fmt.Errorf("failed to parse data: %w", err)
	}

	m, _, _, cleanup, err := buildManager(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	progress := NewProgressPrinter(
		fmt.Sprintf("Writing %d bytes to %s on %s", len(data), charUUID, address), "connecting")
	progress.Start()
	err = connectController(m, address, writeTimeout, progress)
	progress.Stop()
	if err != nil {
		return err
	}
	defer disconnectAndWait(m)

	results := make(chan error, writeRepeat)
	for i := 0; i < writeRepeat; i++ {
		err := m.Write(charUUID, data, func(err error) {
			results <- err
		})
		if err != nil {
			return err
		}
	}

	for i := 0; i < writeRepeat; i++ {
		if err := <-results; err != nil {
			return err
		}
	}

	if writeRepeat > 1 {
		fmt.Printf("Write successful (%d payloads)\n", writeRepeat)
	} else {
		fmt.Println("Write successful")
	}
	return nil
}

// parseWriteData converts the input string to bytes based on the hex flag.
func parseWriteData(dataStr string, asHex bool) ([]byte, error) {
	if asHex {
		cleaned := strings.NewReplacer(" ", "", ":", "", "-", "", "0x", "").Replace(dataStr)
		data, err := hex.DecodeString(cleaned)
		if err != nil {
			return nil, fmt.Errorf("invalid hex data: %w", err)
		}
		return data, nil
	}
	return []byte(dataStr), nil
}
