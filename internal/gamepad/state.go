package gamepad

// ConnState is the lifecycle state of the single managed connection.
//
// Transitions are strictly serialized and never skip a state:
//
//	Disconnected -> Connecting    (Connect accepted)
//	Connecting   -> Connected     (driver reports connected)
//	Connecting   -> Disconnected  (driver failure, timeout, or cancel)
//	Connected    -> Disconnecting (Disconnect requested)
//	Connected    -> Disconnected  (unsolicited drop)
//	Disconnecting-> Disconnected  (driver confirms)
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}
