// Package driver defines the capability surface this module consumes from the
// platform BLE stack. The stack itself is an external collaborator: the goble
// subpackage wraps a real radio, tests plug in an in-process fake.
package driver

// Advertisement is a single advertising report delivered during a scan.
type Advertisement struct {
	ID          string   // platform peripheral identifier (address on most stacks)
	Name        string   // advertised local name, may be empty
	RSSI        int      // dBm
	Services    []string // advertised service UUIDs
	Connectable bool
}

// Events is the sink a Driver reports into. Implementations of Driver MUST
// invoke these methods sequentially on a single dedicated callback goroutine,
// mirroring how platform BLE stacks serialize their delegate queue. Sinks MUST
// NOT block: anything slower than a hand-off stalls the whole stack.
type Events interface {
	// Discovered reports one advertisement seen while scanning.
	Discovered(adv Advertisement)

	// Connected reports that a Connect request completed successfully.
	Connected(peripheralID string)

	// ConnectFailed reports that a Connect request failed.
	ConnectFailed(peripheralID string, cause error)

	// Disconnected reports that the link to peripheralID went down.
	// A nil cause means the disconnect was requested; otherwise it was
	// unsolicited (supervision timeout, out of range, peripheral reset).
	Disconnected(peripheralID string, cause error)

	// WriteDone reports the acknowledgment (or failure) of a Write.
	WriteDone(peripheralID, characteristicID string, cause error)

	// ReadDone reports the result of a Read.
	ReadDone(peripheralID, characteristicID string, data []byte, cause error)
}

// Driver is the asynchronous capability set of the platform BLE stack.
// Calls initiate work and return quickly; completions arrive through Events.
type Driver interface {
	// SetEvents registers the event sink. Must be called before any other
	// method; drivers are not required to tolerate replacing it mid-flight.
	SetEvents(ev Events)

	// StartScan begins advertising discovery. An empty serviceFilter scans
	// for everything the platform allows.
	StartScan(serviceFilter []string) error

	// StopScan ends the current scan session, if any.
	StopScan() error

	// Connect initiates a connection attempt to peripheralID.
	Connect(peripheralID string) error

	// CancelConnect aborts an in-flight Connect best-effort. The driver may
	// still deliver a late Connected or ConnectFailed event.
	CancelConnect(peripheralID string) error

	// Disconnect tears down the link; completion arrives via Disconnected.
	Disconnect(peripheralID string) error

	// Write sends payload to a characteristic; the ack arrives via WriteDone.
	Write(peripheralID, characteristicID string, payload []byte) error

	// Read requests a characteristic value; the result arrives via ReadDone.
	Read(peripheralID, characteristicID string) error

	// MTU returns the negotiated MTU for an established connection.
	MTU(peripheralID string) (int, error)

	// HasService reports whether the connected peripheral's discovered
	// profile exposes serviceID. Returns false when not connected.
	HasService(peripheralID, serviceID string) bool

	// RadioAvailable reports whether the radio is powered on and usable.
	RadioAvailable() bool
}
