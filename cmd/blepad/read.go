package main

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <peripheral-id> <characteristic-uuid>",
	Short: "Read a controller characteristic",
	Long: `Connects, reads the current value of a characteristic, prints it as
hex and ASCII, and disconnects.

Example:
  blepad read AA:BB:CC:DD:EE:FF 2a19`,
	Args: cobra.ExactArgs(2),
	RunE: runRead,
}

var readTimeout time.Duration

func init() {
	readCmd.Flags().DurationVarP(&readTimeout, "timeout", "t", 0, "Connection timeout (0 uses the configured default)")
}

func runRead(cmd *cobra.Command, args []string) error {
	address, charUUID := args[0], args[1]

	m, _, _, cleanup, err := buildManager(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	progress := NewProgressPrinter(
		fmt.Sprintf("Reading %s from %s", charUUID, address), "connecting")
	progress.Start()
	err = connectController(m, address, readTimeout, progress)
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
	err = m.Read(charUUID, func(data []byte, err error) {
		resultCh <- readResult{data: data, err: err}
	})
	if err != nil {
		return err
	}

	result := <-resultCh
	if result.err != nil {
		return result.err
	}

	fmt.Printf("Value (%d bytes): %s\n", len(result.data), hex.EncodeToString(result.data))
	fmt.Printf("ASCII: %s\n", printableASCII(result.data))
	return nil
}

// printableASCII renders data with non-printable bytes as dots.
func printableASCII(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		if b >= 0x20 && b < 0x7f {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
