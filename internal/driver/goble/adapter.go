// Package goble adapts the go-ble stack to the driver interface. All
// asynchronous completions are funneled through one callback goroutine so the
// layers above observe events in a stable order, mirroring the serial
// delegate queues of the platform BLE frameworks.
package goble

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
	"github.com/sirupsen/logrus"

	"github.com/blepad/blepad/internal/driver"
	"github.com/blepad/blepad/internal/groutine"
)

// DeviceFactory creates ble.Device instances (can be overridden in tests).
var DeviceFactory = func() (ble.Device, error) {
	return darwin.NewDevice()
}

const callbackQueueDepth = 256

// connection is the live client handle for one connected peripheral.
type connection struct {
	id     string
	client ble.Client

	// chars maps normalized characteristic UUIDs to their live handles;
	// services records the normalized UUIDs of the discovered services.
	chars    map[string]*ble.Characteristic
	services map[string]bool

	// solicited is set before a locally requested teardown so the
	// disconnect monitor can distinguish it from a link loss.
	solicited atomic.Bool
}

// Adapter implements driver.Driver on top of go-ble.
type Adapter struct {
	logger *logrus.Logger

	mu            sync.Mutex
	device        ble.Device
	events        driver.Events
	conn          *connection
	connectCancel context.CancelFunc
	scanCancel    context.CancelFunc

	cb     chan func()
	closed atomic.Bool
}

// New creates an Adapter and starts its callback queue.
func New(logger *logrus.Logger) *Adapter {
	a := &Adapter{
		logger: logger,
		cb:     make(chan func(), callbackQueueDepth),
	}
	groutine.Go(context.Background(), "ble-callback-queue", func(context.Context) {
		for fn := range a.cb {
			fn()
		}
	})
	return a
}

// SetEvents implements driver.Driver.
func (a *Adapter) SetEvents(events driver.Events) {
	a.mu.Lock()
	a.events = events
	a.mu.Unlock()
}

// Close shuts the callback queue down. No events are delivered afterwards.
func (a *Adapter) Close() {
	if a.closed.CompareAndSwap(false, true) {
		close(a.cb)
	}
}

// emit queues fn on the callback goroutine.
func (a *Adapter) emit(fn func()) {
	if a.closed.Load() {
		return
	}
	select {
	case a.cb <- fn:
	default:
		a.logger.Warn("Callback queue full, dropping event")
	}
}

func (a *Adapter) sink() driver.Events {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.events
}

// ensureDevice lazily initializes the HCI device. The first caller pays the
// setup cost; later calls reuse the handle.
func (a *Adapter) ensureDevice() (ble.Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.device != nil {
		return a.device, nil
	}
	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("create BLE device: %w", err)
	}
	ble.SetDefaultDevice(dev)
	a.device = dev
	return dev, nil
}

// RadioAvailable implements driver.Driver.
func (a *Adapter) RadioAvailable() bool {
	_, err := a.ensureDevice()
	if err != nil {
		a.logger.WithError(err).Debug("Radio unavailable")
	}
	return err == nil
}

// StartScan implements driver.Driver. serviceFilter entries must already be
// normalized; an empty filter reports every advertisement.
func (a *Adapter) StartScan(serviceFilter []string) error {
	if _, err := a.ensureDevice(); err != nil {
		return err
	}

	a.mu.Lock()
	if a.scanCancel != nil {
		a.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.scanCancel = cancel
	a.mu.Unlock()

	wanted := make(map[string]bool, len(serviceFilter))
	for _, svc := range serviceFilter {
		wanted[svc] = true
	}

	groutine.Go(ctx, "ble-scan", func(ctx context.Context) {
		err := ble.Scan(ctx, true, func(adv ble.Advertisement) {
			a.handleAdvertisement(adv, wanted)
		}, nil)
		if err != nil && ctx.Err() == nil {
			a.logger.WithError(err).Warn("Scan terminated")
		}
	})

	a.logger.WithField("filter", serviceFilter).Debug("BLE scan started")
	return nil
}

func (a *Adapter) handleAdvertisement(adv ble.Advertisement, wanted map[string]bool) {
	services := make([]string, 0, len(adv.Services()))
	matched := len(wanted) == 0
	for _, u := range adv.Services() {
		norm := driver.NormalizeUUID(u.String())
		services = append(services, norm)
		if wanted[norm] {
			matched = true
		}
	}
	if !matched {
		return
	}

	out := driver.Advertisement{
		ID:          adv.Addr().String(),
		Name:        adv.LocalName(),
		RSSI:        adv.RSSI(),
		Services:    services,
		Connectable: adv.Connectable(),
	}
	a.emit(func() {
		if events := a.sink(); events != nil {
			events.Discovered(out)
		}
	})
}

// StopScan implements driver.Driver.
func (a *Adapter) StopScan() error {
	a.mu.Lock()
	cancel := a.scanCancel
	a.scanCancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// Connect implements driver.Driver. The dial runs in the background; the
// outcome arrives as a Connected or ConnectFailed event.
func (a *Adapter) Connect(peripheralID string) error {
	if _, err := a.ensureDevice(); err != nil {
		return err
	}

	a.mu.Lock()
	if a.conn != nil || a.connectCancel != nil {
		a.mu.Unlock()
		return fmt.Errorf("connection to %q already active", a.describeTargetLocked())
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.connectCancel = cancel
	a.mu.Unlock()

	groutine.Go(ctx, "ble-connect", func(ctx context.Context) {
		a.dial(ctx, peripheralID)
	})
	return nil
}

func (a *Adapter) describeTargetLocked() string {
	if a.conn != nil {
		return a.conn.id
	}
	return "pending peripheral"
}

func (a *Adapter) dial(ctx context.Context, peripheralID string) {
	client, err := ble.Dial(ctx, ble.NewAddr(peripheralID))
	if err != nil {
		a.finishConnectAttempt()
		if ctx.Err() != nil {
			// Cancelled locally, the layer above already resolved it.
			return
		}
		a.emit(func() {
			if events := a.sink(); events != nil {
				events.ConnectFailed(peripheralID, err)
			}
		})
		return
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		_ = client.CancelConnection()
		a.finishConnectAttempt()
		a.emit(func() {
			if events := a.sink(); events != nil {
				events.ConnectFailed(peripheralID, fmt.Errorf("discover profile: %w", err))
			}
		})
		return
	}

	conn := &connection{
		id:       peripheralID,
		client:   client,
		chars:    make(map[string]*ble.Characteristic),
		services: make(map[string]bool),
	}
	for _, svc := range profile.Services {
		conn.services[driver.NormalizeUUID(svc.UUID.String())] = true
		for _, char := range svc.Characteristics {
			conn.chars[driver.NormalizeUUID(char.UUID.String())] = char
		}
	}

	a.mu.Lock()
	a.conn = conn
	a.connectCancel = nil
	a.mu.Unlock()

	a.logger.WithFields(logrus.Fields{
		"peripheral":      peripheralID,
		"characteristics": len(conn.chars),
	}).Debug("BLE link established")

	groutine.Go(context.Background(), "ble-disconnect-monitor", func(context.Context) {
		a.monitorLink(conn)
	})

	a.emit(func() {
		if events := a.sink(); events != nil {
			events.Connected(peripheralID)
		}
	})
}

// monitorLink waits for the link to drop and reports it upward.
func (a *Adapter) monitorLink(conn *connection) {
	<-conn.client.Disconnected()

	a.mu.Lock()
	if a.conn == conn {
		a.conn = nil
	}
	a.mu.Unlock()

	var cause error
	if !conn.solicited.Load() {
		cause = fmt.Errorf("link to %q lost", conn.id)
	}
	a.emit(func() {
		if events := a.sink(); events != nil {
			events.Disconnected(conn.id, cause)
		}
	})
}

func (a *Adapter) finishConnectAttempt() {
	a.mu.Lock()
	a.connectCancel = nil
	a.mu.Unlock()
}

// CancelConnect implements driver.Driver.
func (a *Adapter) CancelConnect(peripheralID string) error {
	a.mu.Lock()
	cancel := a.connectCancel
	a.connectCancel = nil
	conn := a.conn
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		return nil
	}
	if conn != nil && conn.id == peripheralID {
		// The dial won the race; tear the fresh link down.
		conn.solicited.Store(true)
		return conn.client.CancelConnection()
	}
	return nil
}

// Disconnect implements driver.Driver. Completion arrives as a Disconnected
// event with a nil cause.
func (a *Adapter) Disconnect(peripheralID string) error {
	conn := a.current(peripheralID)
	if conn == nil {
		return fmt.Errorf("not connected to %q", peripheralID)
	}
	conn.solicited.Store(true)
	return conn.client.CancelConnection()
}

func (a *Adapter) current(peripheralID string) *connection {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil || a.conn.id != peripheralID {
		return nil
	}
	return a.conn
}

// Write implements driver.Driver. characteristicID must be normalized.
func (a *Adapter) Write(peripheralID, characteristicID string, payload []byte) error {
	conn := a.current(peripheralID)
	if conn == nil {
		return fmt.Errorf("not connected to %q", peripheralID)
	}
	char, ok := conn.chars[characteristicID]
	if !ok {
		return fmt.Errorf("characteristic %q not found on %q", characteristicID, peripheralID)
	}

	groutine.Go(context.Background(), "ble-write", func(context.Context) {
		err := conn.client.WriteCharacteristic(char, payload, false)
		a.emit(func() {
			if events := a.sink(); events != nil {
				events.WriteDone(peripheralID, characteristicID, err)
			}
		})
	})
	return nil
}

// Read implements driver.Driver. characteristicID must be normalized.
func (a *Adapter) Read(peripheralID, characteristicID string) error {
	conn := a.current(peripheralID)
	if conn == nil {
		return fmt.Errorf("not connected to %q", peripheralID)
	}
	char, ok := conn.chars[characteristicID]
	if !ok {
		return fmt.Errorf("characteristic %q not found on %q", characteristicID, peripheralID)
	}

	groutine.Go(context.Background(), "ble-read", func(context.Context) {
		data, err := conn.client.ReadCharacteristic(char)
		a.emit(func() {
			if events := a.sink(); events != nil {
				events.ReadDone(peripheralID, characteristicID, data, err)
			}
		})
	})
	return nil
}

// HasService implements driver.Driver.
func (a *Adapter) HasService(peripheralID, serviceID string) bool {
	conn := a.current(peripheralID)
	if conn == nil {
		return false
	}
	return conn.services[driver.NormalizeUUID(serviceID)]
}

// MTU implements driver.Driver.
func (a *Adapter) MTU(peripheralID string) (int, error) {
	conn := a.current(peripheralID)
	if conn == nil {
		return 0, fmt.Errorf("not connected to %q", peripheralID)
	}
	return conn.client.Conn().TxMTU(), nil
}
