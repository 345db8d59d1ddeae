package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blepad/blepad/internal/gamepad"
)

func TestFormatUserError(t *testing.T) {
	// GOAL: Verify internal failure kinds map to actionable terminal messages
	// and foreign errors pass through untouched

	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "radio unavailable",
			err:      gamepad.ErrRadioUnavailable,
			contains: "Bluetooth",
		},
		{
			name:     "busy",
			err:      gamepad.ErrAlreadyConnectingOrConnected,
			contains: "already",
		},
		{
			name:     "timeout",
			err:      gamepad.ErrConnectionTimeout,
			contains: "did not respond",
		},
		{
			name:     "not connected",
			err:      gamepad.ErrNotConnected,
			contains: "Connect first",
		},
		{
			name:     "connection lost",
			err:      gamepad.ErrConnectionLost,
			contains: "lost",
		},
		{
			name:     "plain error passes through",
			err:      errors.New("something else entirely"),
			contains: "something else entirely",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, FormatUserError(tt.err), tt.contains)
		})
	}
}

func TestFormatUserErrorNil(t *testing.T) {
	assert.Empty(t, FormatUserError(nil))
}
