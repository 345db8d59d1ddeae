package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blepad/blepad/internal/gamepad"
)

func TestDisplayPeripheralTable(t *testing.T) {
	// GOAL: Verify the table renders names, identifiers, signal strength, and
	// truncates oversized fields

	records := []*gamepad.PeripheralRecord{
		{
			ID:       "AA:BB:CC:DD:EE:FF",
			Name:     "Pad Pro",
			RSSI:     -42,
			Services: []string{"180f", "1812"},
			LastSeen: time.Now(),
		},
		{
			ID:       "11:22:33:44:55:66",
			Name:     "An Extremely Long Controller Name",
			RSSI:     -80,
			LastSeen: time.Now(),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, displayPeripheralTable(&buf, records))
	out := buf.String()

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Pad Pro")
	assert.Contains(t, out, "AA:BB:CC:DD:EE:FF")
	assert.Contains(t, out, "-42 dBm")
	assert.Contains(t, out, "180f,1812")
	assert.Contains(t, out, "An Extremely Long...", "long names must be truncated")
	assert.NotContains(t, out, "An Extremely Long Controller Name")
}

func TestDisplayPeripheralTableUnknownName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, displayPeripheralTable(&buf, []*gamepad.PeripheralRecord{
		{ID: "de:ad:be:ef:00:01", RSSI: -60, LastSeen: time.Now()},
	}))
	assert.Contains(t, buf.String(), "(unknown)")
}
