// Package gamepad manages the single BLE connection to a game controller:
// discovery, a supervised connection lifecycle with bounded attempt latency,
// rate-limited outbound writes, and battery telemetry.
//
// The platform BLE stack sits behind the driver.Driver interface and delivers
// every asynchronous event on one dedicated callback goroutine. The manager
// implements driver.Events; its handlers do pure state updates plus hand-offs
// and never block that goroutine.
package gamepad

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"

	"github.com/blepad/blepad/internal/driver"
	"github.com/blepad/blepad/internal/groutine"
	"github.com/blepad/blepad/pkg/config"
)

// ConnectOptions configures a single connection attempt.
type ConnectOptions struct {
	// Timeout bounds the attempt; zero uses the configured default.
	Timeout time.Duration

	// OnProgress receives human-readable stage updates. May fire zero or
	// more times, always before the terminal result.
	OnProgress func(stage string)

	// OnResult receives the terminal outcome of the attempt, exactly once:
	// nil on success, an *Error otherwise.
	OnResult func(err error)
}

// Manager owns the connection lifecycle for one peripheral at a time. It is
// an ordinary constructible component: hosts hold a reference and may build
// independent instances in tests rather than sharing a global.
type Manager struct {
	drv    driver.Driver
	cfg    *config.Config
	logger *logrus.Logger

	// mu is the single mutual-exclusion domain for lifecycle state; state
	// additionally mirrors the current ConnState for lock-free snapshots by
	// the write queue and other subsystems.
	mu             sync.Mutex
	state          atomic.Int32
	session        *session
	sessionSeq     uint64
	connectedID    string
	disconnectDone []func()

	queue  *writeQueue
	events *dispatcher
	poller *batteryPoller
	reads  *readRouter

	scanMu   sync.Mutex
	scanning bool
	records  *hashmap.Map[string, *PeripheralRecord]

	closed atomic.Bool
}

// New builds a Manager on top of drv and registers itself as the driver's
// event sink. A nil cfg uses defaults; a nil logger logs nothing visible.
func New(drv driver.Driver, cfg *config.Config, logger *logrus.Logger) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel)
	}

	m := &Manager{
		drv:    drv,
		cfg:    cfg,
		logger: logger,
	}
	m.state.Store(int32(StateDisconnected))
	m.events = newDispatcher(cfg.EventBuffer, logger)
	m.queue = newWriteQueue(drv, cfg.WriteInterval, m.State, logger)
	m.reads = newReadRouter(logger)
	m.poller = newBatteryPoller(m, cfg.BatteryPollInterval,
		driver.NormalizeUUID(cfg.BatteryServiceUUID), driver.NormalizeUUID(cfg.BatteryCharUUID), logger)

	drv.SetEvents(m)
	return m
}

// State returns a consistent snapshot of the current connection state.
func (m *Manager) State() ConnState {
	return ConnState(m.state.Load())
}

// setStateLocked transitions the state machine. Caller must hold m.mu.
func (m *Manager) setStateLocked(next ConnState) {
	prev := ConnState(m.state.Load())
	if prev == next {
		return
	}
	m.state.Store(int32(next))
	m.logger.WithFields(logrus.Fields{
		"from": prev.String(),
		"to":   next.String(),
	}).Debug("Connection state changed")
}

// OnDiscovery registers the discovery handler, replacing any previous one.
func (m *Manager) OnDiscovery(h DiscoveryHandler) { m.events.setDiscoveryHandler(h) }

// OnBattery registers the battery level handler, replacing any previous one.
func (m *Manager) OnBattery(h BatteryHandler) { m.events.setBatteryHandler(h) }

// OnError registers the handler for errors not tied to a pending request.
func (m *Manager) OnError(h ErrorHandler) { m.events.setErrorHandler(h) }

// RadioAvailable reports whether the underlying radio is usable.
func (m *Manager) RadioAvailable() bool { return m.drv.RadioAvailable() }

// MTU returns the negotiated MTU of the current connection.
func (m *Manager) MTU() (int, error) {
	m.mu.Lock()
	id := m.connectedID
	st := ConnState(m.state.Load())
	m.mu.Unlock()

	if st != StateConnected || id == "" {
		return 0, ErrNotConnected
	}
	return m.drv.MTU(id)
}

// Connect starts a connection attempt to peripheralID.
//
// Precondition: the manager is Disconnected; otherwise the call fails
// synchronously with AlreadyConnectingOrConnected and changes nothing.
// For an accepted attempt, opts.OnResult fires exactly once: on driver
// success, driver failure, or timeout, whichever comes first. Late driver
// events for an attempt that already resolved are ignored.
func (m *Manager) Connect(peripheralID string, opts *ConnectOptions) error {
	if opts == nil {
		opts = &ConnectOptions{}
	}
	if strings.TrimSpace(peripheralID) == "" {
		return failure(ConnectionFailed, nil, "peripheral identifier is empty")
	}
	if !m.drv.RadioAvailable() {
		return ErrRadioUnavailable
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = m.cfg.ConnectTimeout
	}

	m.mu.Lock()
	if ConnState(m.state.Load()) != StateDisconnected {
		st := ConnState(m.state.Load())
		m.mu.Unlock()
		m.logger.WithFields(logrus.Fields{
			"peripheral": peripheralID,
			"state":      st.String(),
		}).Warn("Connect rejected: attempt already in flight or connected")
		return ErrAlreadyConnectingOrConnected
	}
	m.sessionSeq++
	s := newSession(m.sessionSeq, peripheralID, opts.OnProgress, opts.OnResult)
	s.timer = time.AfterFunc(timeout, func() { m.connectTimedOut(s) })
	m.session = s
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"peripheral": peripheralID,
		"timeout":    timeout,
	}).Info("Connecting to peripheral")
	s.progress("connecting")

	if err := m.drv.Connect(peripheralID); err != nil {
		m.failSession(s, failure(ConnectionFailed, err, "driver connect"))
	}
	return nil
}

// connectTimedOut fires when a session's deadline elapses before the driver
// responded. Keyed by session identity: if the session already resolved (or
// was superseded), this is a no-op.
func (m *Manager) connectTimedOut(s *session) {
	m.mu.Lock()
	if m.session != s {
		m.mu.Unlock()
		return
	}
	m.session = nil
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"peripheral": s.target,
		"elapsed":    time.Since(s.started).Truncate(time.Millisecond),
	}).Warn("Connection attempt timed out")

	if err := m.drv.CancelConnect(s.target); err != nil {
		m.logger.WithError(err).Debug("Cancel of timed-out connect failed")
	}
	s.resolve(failure(ConnectionTimeout, nil, fmt.Sprintf("no response from %q", s.target)))
}

// failSession resolves s with err and returns to Disconnected, if s is still
// the active session.
func (m *Manager) failSession(s *session, err error) {
	m.mu.Lock()
	if m.session != s {
		m.mu.Unlock()
		return
	}
	s.timer.Stop()
	m.session = nil
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	s.resolve(err)
}

// Disconnect tears the current connection down. Idempotent: while already
// Disconnected or Disconnecting it only arranges for onDone to fire. During
// an in-flight connect it cancels the attempt. onDone may be nil.
func (m *Manager) Disconnect(onDone func()) {
	m.mu.Lock()
	switch ConnState(m.state.Load()) {
	case StateDisconnected:
		m.mu.Unlock()
		m.logger.Debug("Disconnect called while already disconnected")
		runDone(onDone)

	case StateDisconnecting:
		if onDone != nil {
			m.disconnectDone = append(m.disconnectDone, onDone)
		}
		m.mu.Unlock()

	case StateConnecting:
		s := m.session
		if s != nil {
			s.timer.Stop()
			m.session = nil
		}
		m.setStateLocked(StateDisconnected)
		m.mu.Unlock()

		if s != nil {
			m.logger.WithField("peripheral", s.target).Info("Disconnect cancelled in-flight connect")
			if err := m.drv.CancelConnect(s.target); err != nil {
				m.logger.WithError(err).Debug("Cancel connect failed")
			}
			s.resolve(failure(ConnectionFailed, nil, "connect cancelled by disconnect"))
		}
		runDone(onDone)

	case StateConnected:
		id := m.connectedID
		if onDone != nil {
			m.disconnectDone = append(m.disconnectDone, onDone)
		}
		m.setStateLocked(StateDisconnecting)
		m.mu.Unlock()

		m.logger.WithField("peripheral", id).Info("Disconnecting from peripheral")
		m.poller.pause()
		m.queue.flush(ErrConnectionLost)
		m.reads.flush(ErrConnectionLost)

		if err := m.drv.Disconnect(id); err != nil {
			// Driver refused; force the terminal state so a fresh connect
			// can proceed.
			m.mu.Lock()
			m.connectedID = ""
			m.setStateLocked(StateDisconnected)
			done := m.disconnectDone
			m.disconnectDone = nil
			m.mu.Unlock()

			m.events.sendError(failure(ConnectionLost, err, "driver disconnect failed"))
			for _, fn := range done {
				runDone(fn)
			}
		}
	}
}

// Write enqueues payload for delivery to characteristicID.
//
// Fails synchronously with NotConnected outside the Connected state and never
// enqueues. Payloads that cannot fit the negotiated MTU (minus 3 bytes of ATT
// overhead) are rejected up front. onDone resolves exactly once with the
// write's individual outcome; a failed write does not abort the writes queued
// behind it, and nothing is retried automatically.
func (m *Manager) Write(characteristicID string, payload []byte, onDone func(error)) error {
	if m.State() != StateConnected {
		return ErrNotConnected
	}
	if limit, err := m.MTU(); err == nil && limit > 3 && len(payload) > limit-3 {
		return failure(WriteRejected, nil,
			fmt.Sprintf("payload of %d bytes exceeds usable MTU of %d", len(payload), limit-3))
	}
	return m.queue.enqueue(driver.NormalizeUUID(characteristicID), payload, onDone)
}

// hasService reports whether the currently connected peripheral exposes
// serviceID in its discovered profile.
func (m *Manager) hasService(serviceID string) bool {
	m.mu.Lock()
	id := m.connectedID
	m.mu.Unlock()

	if id == "" {
		return false
	}
	return m.drv.HasService(id, serviceID)
}

// Read requests the current value of characteristicID. Reads bypass the write
// queue and are not rate-limited; concurrent reads on different
// characteristics proceed in parallel.
func (m *Manager) Read(characteristicID string, onDone ReadCallback) error {
	m.mu.Lock()
	id := m.connectedID
	st := ConnState(m.state.Load())
	m.mu.Unlock()

	if st != StateConnected || id == "" {
		return ErrNotConnected
	}

	char := driver.NormalizeUUID(characteristicID)
	m.reads.add(char, onDone)
	if err := m.drv.Read(id, char); err != nil {
		m.reads.dropLast(char)
		return fmt.Errorf("read request failed: %w", err)
	}
	return nil
}

// Close releases the manager's background goroutines. The connection should
// be disconnected and the driver quiesced first; events delivered after Close
// are not processed.
func (m *Manager) Close() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	m.poller.pause()
	m.queue.close()
	m.events.close()
}

// runDone dispatches a completion callback off the caller's goroutine.
func runDone(fn func()) {
	if fn == nil {
		return
	}
	groutine.Go(context.Background(), "disconnect-done", func(context.Context) {
		fn()
	})
}

// ----------------------------
// driver.Events implementation
// ----------------------------
//
// All handlers below run on the driver's callback goroutine: state updates
// and hand-offs only.

// Discovered implements driver.Events.
func (m *Manager) Discovered(adv driver.Advertisement) {
	m.scanMu.Lock()
	active := m.scanning
	records := m.records
	m.scanMu.Unlock()
	if !active {
		return
	}

	rec := &PeripheralRecord{
		ID:       adv.ID,
		Name:     adv.Name,
		RSSI:     adv.RSSI,
		Services: driver.NormalizeUUIDs(adv.Services),
		LastSeen: time.Now(),
	}
	records.Set(rec.ID, rec)
	m.events.sendDiscovery(rec)
}

// Connected implements driver.Events.
func (m *Manager) Connected(peripheralID string) {
	m.mu.Lock()
	s := m.session
	if s == nil || ConnState(m.state.Load()) != StateConnecting || s.target != peripheralID {
		m.mu.Unlock()
		m.logger.WithField("peripheral", peripheralID).Debug("Ignoring stale connected event")
		return
	}
	s.timer.Stop()
	m.session = nil
	m.connectedID = peripheralID
	m.queue.bind(peripheralID)
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	m.logger.WithField("peripheral", peripheralID).Info("Peripheral connected")
	m.poller.resume()
	s.progress("connected")
	s.resolve(nil)
}

// ConnectFailed implements driver.Events.
func (m *Manager) ConnectFailed(peripheralID string, cause error) {
	m.mu.Lock()
	s := m.session
	if s == nil || ConnState(m.state.Load()) != StateConnecting || s.target != peripheralID {
		m.mu.Unlock()
		m.logger.WithField("peripheral", peripheralID).Debug("Ignoring stale connect-failed event")
		return
	}
	s.timer.Stop()
	m.session = nil
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"peripheral": peripheralID,
		"error":      cause,
	}).Warn("Connection attempt failed")
	s.resolve(failure(ConnectionFailed, cause, ""))
}

// Disconnected implements driver.Events.
func (m *Manager) Disconnected(peripheralID string, cause error) {
	m.mu.Lock()
	switch ConnState(m.state.Load()) {
	case StateDisconnecting:
		if peripheralID != m.connectedID {
			m.mu.Unlock()
			return
		}
		m.connectedID = ""
		m.setStateLocked(StateDisconnected)
		done := m.disconnectDone
		m.disconnectDone = nil
		m.mu.Unlock()

		m.logger.WithField("peripheral", peripheralID).Info("Peripheral disconnected")
		// Queue and reads were flushed when the disconnect was requested;
		// sweep again for anything that raced in.
		m.queue.flush(ErrConnectionLost)
		m.reads.flush(ErrConnectionLost)
		for _, fn := range done {
			runDone(fn)
		}

	case StateConnected:
		if peripheralID != m.connectedID {
			m.mu.Unlock()
			return
		}
		m.connectedID = ""
		m.setStateLocked(StateDisconnected)
		m.mu.Unlock()

		m.logger.WithFields(logrus.Fields{
			"peripheral": peripheralID,
			"cause":      cause,
		}).Warn("Unexpected disconnect")
		m.poller.pause()
		m.queue.flush(ErrConnectionLost)
		m.reads.flush(ErrConnectionLost)
		m.events.sendError(failure(ConnectionLost, cause,
			fmt.Sprintf("unexpected disconnect from %q", peripheralID)))

	case StateConnecting:
		// Some stacks report a failed attempt as a disconnect.
		s := m.session
		if s == nil || s.target != peripheralID {
			m.mu.Unlock()
			return
		}
		s.timer.Stop()
		m.session = nil
		m.setStateLocked(StateDisconnected)
		m.mu.Unlock()

		s.resolve(failure(ConnectionFailed, cause, "peripheral disconnected during connect"))

	default:
		m.mu.Unlock()
		m.logger.WithField("peripheral", peripheralID).Debug("Ignoring stale disconnected event")
	}
}

// WriteDone implements driver.Events.
func (m *Manager) WriteDone(_, _ string, cause error) {
	m.queue.completeInFlight(cause)
}

// ReadDone implements driver.Events.
func (m *Manager) ReadDone(_, characteristicID string, data []byte, cause error) {
	m.reads.complete(characteristicID, data, cause)
}
