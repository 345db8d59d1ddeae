package gamepad

import (
	"errors"
	"sync"
	"time"

	"github.com/blepad/blepad/internal/driver"
)

// fakeDriver simulates the platform BLE stack. Events are delivered on one
// dedicated goroutine, matching the serial delegate queue of the real
// adapters. Tests drive outcomes through the emit helpers or the auto flags.
type fakeDriver struct {
	mu     sync.Mutex
	events driver.Events

	radioOff bool
	mtu      int

	// services answers HasService; nil means every service is present.
	services map[string]bool

	// Synchronous error injection per operation.
	scanErr       error
	connectErr    error
	disconnectErr error
	writeErr      error
	readErr       error

	// autoConnect/autoAckWrites/autoDisconnect answer requests with success
	// events without explicit emit calls from the test.
	autoConnect    bool
	autoAckWrites  bool
	autoDisconnect bool

	// readData answers auto reads keyed by characteristic UUID.
	autoReads bool
	readData  map[string][]byte

	scanFilter  []string
	scanActive  bool
	connects    []string
	cancels     []string
	disconnects []string
	writes      []fakeWrite
	reads       []fakeRead

	cb     chan func()
	closed bool
	wg     sync.WaitGroup
}

type fakeWrite struct {
	peripheralID     string
	characteristicID string
	payload          []byte
	at               time.Time
}

type fakeRead struct {
	peripheralID     string
	characteristicID string
}

func newFakeDriver() *fakeDriver {
	d := &fakeDriver{
		mtu:      185,
		readData: make(map[string][]byte),
		cb:       make(chan func(), 256),
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for fn := range d.cb {
			fn()
		}
	}()
	return d
}

func (d *fakeDriver) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	close(d.cb)
	d.wg.Wait()
}

func (d *fakeDriver) post(fn func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.cb <- fn
	d.mu.Unlock()
}

func (d *fakeDriver) sink() driver.Events {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events
}

// ----------------------------
// driver.Driver implementation
// ----------------------------

func (d *fakeDriver) SetEvents(events driver.Events) {
	d.mu.Lock()
	d.events = events
	d.mu.Unlock()
}

func (d *fakeDriver) RadioAvailable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.radioOff
}

func (d *fakeDriver) StartScan(serviceFilter []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scanErr != nil {
		return d.scanErr
	}
	d.scanFilter = serviceFilter
	d.scanActive = true
	return nil
}

func (d *fakeDriver) StopScan() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scanActive = false
	return nil
}

func (d *fakeDriver) Connect(peripheralID string) error {
	d.mu.Lock()
	if d.connectErr != nil {
		err := d.connectErr
		d.mu.Unlock()
		return err
	}
	d.connects = append(d.connects, peripheralID)
	auto := d.autoConnect
	d.mu.Unlock()

	if auto {
		d.emitConnected(peripheralID)
	}
	return nil
}

func (d *fakeDriver) CancelConnect(peripheralID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancels = append(d.cancels, peripheralID)
	return nil
}

func (d *fakeDriver) Disconnect(peripheralID string) error {
	d.mu.Lock()
	if d.disconnectErr != nil {
		err := d.disconnectErr
		d.mu.Unlock()
		return err
	}
	d.disconnects = append(d.disconnects, peripheralID)
	auto := d.autoDisconnect
	d.mu.Unlock()

	if auto {
		d.emitDisconnected(peripheralID, nil)
	}
	return nil
}

func (d *fakeDriver) Write(peripheralID, characteristicID string, payload []byte) error {
	d.mu.Lock()
	if d.writeErr != nil {
		err := d.writeErr
		d.mu.Unlock()
		return err
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	d.writes = append(d.writes, fakeWrite{
		peripheralID:     peripheralID,
		characteristicID: characteristicID,
		payload:          buf,
		at:               time.Now(),
	})
	auto := d.autoAckWrites
	d.mu.Unlock()

	if auto {
		d.emitWriteDone(peripheralID, characteristicID, nil)
	}
	return nil
}

func (d *fakeDriver) Read(peripheralID, characteristicID string) error {
	d.mu.Lock()
	if d.readErr != nil {
		err := d.readErr
		d.mu.Unlock()
		return err
	}
	d.reads = append(d.reads, fakeRead{
		peripheralID:     peripheralID,
		characteristicID: characteristicID,
	})
	auto := d.autoReads
	data, ok := d.readData[characteristicID]
	d.mu.Unlock()

	if auto {
		if ok {
			d.emitReadDone(peripheralID, characteristicID, data, nil)
		} else {
			d.emitReadDone(peripheralID, characteristicID, nil, errors.New("no such characteristic"))
		}
	}
	return nil
}

func (d *fakeDriver) MTU(peripheralID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mtu, nil
}

func (d *fakeDriver) HasService(peripheralID, serviceID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.services == nil {
		return true
	}
	return d.services[serviceID]
}

// ----------------------------
// Event emission helpers
// ----------------------------

func (d *fakeDriver) emitDiscovered(adv driver.Advertisement) {
	d.post(func() {
		if events := d.sink(); events != nil {
			events.Discovered(adv)
		}
	})
}

func (d *fakeDriver) emitConnected(peripheralID string) {
	d.post(func() {
		if events := d.sink(); events != nil {
			events.Connected(peripheralID)
		}
	})
}

func (d *fakeDriver) emitConnectFailed(peripheralID string, cause error) {
	d.post(func() {
		if events := d.sink(); events != nil {
			events.ConnectFailed(peripheralID, cause)
		}
	})
}

func (d *fakeDriver) emitDisconnected(peripheralID string, cause error) {
	d.post(func() {
		if events := d.sink(); events != nil {
			events.Disconnected(peripheralID, cause)
		}
	})
}

func (d *fakeDriver) emitWriteDone(peripheralID, characteristicID string, cause error) {
	d.post(func() {
		if events := d.sink(); events != nil {
			events.WriteDone(peripheralID, characteristicID, cause)
		}
	})
}

func (d *fakeDriver) emitReadDone(peripheralID, characteristicID string, data []byte, cause error) {
	d.post(func() {
		if events := d.sink(); events != nil {
			events.ReadDone(peripheralID, characteristicID, data, cause)
		}
	})
}

// ----------------------------
// Inspection helpers
// ----------------------------

func (d *fakeDriver) writeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.writes)
}

func (d *fakeDriver) writeLog() []fakeWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]fakeWrite, len(d.writes))
	copy(out, d.writes)
	return out
}

func (d *fakeDriver) readCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.reads)
}

func (d *fakeDriver) cancelCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.cancels)
}

func (d *fakeDriver) scanning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scanActive
}
