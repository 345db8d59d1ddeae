package gamepad

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     FailureKind
	}{
		{
			name:     "bare sentinel",
			err:      ErrNotConnected,
			sentinel: ErrNotConnected,
			kind:     NotConnected,
		},
		{
			name:     "constructed failure matches sentinel of same kind",
			err:      failure(ConnectionTimeout, nil, "no response"),
			sentinel: ErrConnectionTimeout,
			kind:     ConnectionTimeout,
		},
		{
			name:     "wrapped failure still matches",
			err:      fmt.Errorf("connect: %w", failure(ConnectionLost, nil, "")),
			sentinel: ErrConnectionLost,
			kind:     ConnectionLost,
		},
		{
			name:     "failure with cause matches its own kind",
			err:      failure(WriteRejected, errors.New("gatt error 0x03"), "write"),
			sentinel: ErrWriteRejected,
			kind:     WriteRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestErrorKindsAreDistinct(t *testing.T) {
	err := failure(ConnectionTimeout, nil, "no response")
	assert.NotErrorIs(t, err, ErrConnectionFailed,
		"timeout must not match a different kind")
	assert.NotErrorIs(t, err, ErrNotConnected)
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, FailureKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, FailureKind(""), KindOf(nil))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("att timeout")
	err := failure(ConnectionFailed, cause, "connect to pad")

	assert.Contains(t, err.Error(), "att timeout")
	assert.Contains(t, err.Error(), "connect to pad")
	assert.ErrorIs(t, err, cause, "cause must stay reachable via Unwrap")
}
