package gamepad

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/blepad/blepad/internal/groutine"
)

// DiscoveryHandler receives peripheral discovery events during a scan.
type DiscoveryHandler func(rec *PeripheralRecord)

// BatteryHandler receives battery level changes (0-100).
type BatteryHandler func(level int)

// ErrorHandler receives errors not tied to a specific pending request, such
// as unsolicited disconnects.
type ErrorHandler func(err error)

// dispatcher fans out discovery, battery, and error events to at most one
// registered handler per channel. Each channel has its own drop-oldest ring
// buffer drained by a dedicated pump goroutine, so the driver callback path
// only ever pays the cost of a channel send.
type dispatcher struct {
	logger *logrus.Logger

	discovery *ringChan[*PeripheralRecord]
	battery   *ringChan[int]
	errs      *ringChan[error]

	onDiscovery atomic.Pointer[DiscoveryHandler]
	onBattery   atomic.Pointer[BatteryHandler]
	onError     atomic.Pointer[ErrorHandler]
}

func newDispatcher(buffer int, logger *logrus.Logger) *dispatcher {
	if buffer <= 0 {
		buffer = 128
	}
	d := &dispatcher{
		logger:    logger,
		discovery: newRingChan[*PeripheralRecord](buffer),
		battery:   newRingChan[int](buffer),
		errs:      newRingChan[error](buffer),
	}

	groutine.Go(context.Background(), "dispatch-discovery", func(context.Context) {
		for rec := range d.discovery.C() {
			if h := d.onDiscovery.Load(); h != nil && *h != nil {
				(*h)(rec)
			}
		}
	})
	groutine.Go(context.Background(), "dispatch-battery", func(context.Context) {
		for level := range d.battery.C() {
			if h := d.onBattery.Load(); h != nil && *h != nil {
				(*h)(level)
			}
		}
	})
	groutine.Go(context.Background(), "dispatch-error", func(context.Context) {
		for err := range d.errs.C() {
			if h := d.onError.Load(); h != nil && *h != nil {
				(*h)(err)
			}
		}
	})

	return d
}

// Registering a new handler replaces the previous one; nil unregisters.

func (d *dispatcher) setDiscoveryHandler(h DiscoveryHandler) { d.onDiscovery.Store(&h) }
func (d *dispatcher) setBatteryHandler(h BatteryHandler)     { d.onBattery.Store(&h) }
func (d *dispatcher) setErrorHandler(h ErrorHandler)         { d.onError.Store(&h) }

func (d *dispatcher) sendDiscovery(rec *PeripheralRecord) { d.discovery.Send(rec) }
func (d *dispatcher) sendBattery(level int)               { d.battery.Send(level) }

func (d *dispatcher) sendError(err error) {
	if d.logger != nil {
		d.logger.WithError(err).Warn("Surfacing asynchronous error")
	}
	d.errs.Send(err)
}

// close shuts the pumps down. The driver must have stopped delivering events
// before this is called.
func (d *dispatcher) close() {
	d.discovery.Close()
	d.battery.Close()
	d.errs.Close()
}
