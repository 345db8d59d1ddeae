package gamepad

import (
	"errors"
	"fmt"
)

// FailureKind classifies every error the manager can surface.
type FailureKind string

const (
	RadioUnavailable             FailureKind = "radio_unavailable"
	AlreadyConnectingOrConnected FailureKind = "already_connecting_or_connected"
	ConnectionTimeout            FailureKind = "connection_timeout"
	ConnectionFailed             FailureKind = "connection_failed"
	NotConnected                 FailureKind = "not_connected"
	ConnectionLost               FailureKind = "connection_lost"
	WriteRejected                FailureKind = "write_rejected"
	InvalidScanConfig            FailureKind = "invalid_scan_config"
)

// Error is the manager's error type: a kind for programmatic matching, an
// optional message, and the wrapped driver-level cause when there is one.
type Error struct {
	Kind  FailureKind
	Msg   string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Msg != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

// Unwrap exposes the driver-level cause to errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is allows errors.Is to compare Error values by Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Predefined sentinel errors, one per failure kind.
var (
	ErrRadioUnavailable             = &Error{Kind: RadioUnavailable}
	ErrAlreadyConnectingOrConnected = &Error{Kind: AlreadyConnectingOrConnected}
	ErrConnectionTimeout            = &Error{Kind: ConnectionTimeout}
	ErrConnectionFailed             = &Error{Kind: ConnectionFailed}
	ErrNotConnected                 = &Error{Kind: NotConnected}
	ErrConnectionLost               = &Error{Kind: ConnectionLost}
	ErrWriteRejected                = &Error{Kind: WriteRejected}
	ErrInvalidScanConfig            = &Error{Kind: InvalidScanConfig}
)

// failure builds an *Error wrapping cause. Either msg or cause may be empty.
func failure(kind FailureKind, cause error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// KindOf extracts the FailureKind from err, or "" if err does not carry one.
func KindOf(err error) FailureKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
