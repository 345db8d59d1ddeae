package main

import (
	"github.com/blepad/blepad/internal/gamepad"
)

// FormatUserError translates internal failures into actionable messages for
// the terminal. Unknown errors pass through unchanged.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	switch gamepad.KindOf(err) {
	case gamepad.RadioUnavailable:
		return "Bluetooth is unavailable. Check that Bluetooth is powered on and try again."
	case gamepad.AlreadyConnectingOrConnected:
		return "A connection is already active or in progress. Disconnect first."
	case gamepad.ConnectionTimeout:
		return "The controller did not respond in time. Make sure it is powered on, in range, and in pairing mode."
	case gamepad.ConnectionFailed:
		return "Could not connect to the controller: " + err.Error()
	case gamepad.NotConnected:
		return "Not connected to a controller. Connect first."
	case gamepad.ConnectionLost:
		return "The connection to the controller was lost."
	case gamepad.WriteRejected:
		return "The write was rejected: " + err.Error()
	case gamepad.InvalidScanConfig:
		return "Invalid scan configuration: " + err.Error()
	}
	return err.Error()
}
