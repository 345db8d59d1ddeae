package gamepad

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blepad/blepad/internal/groutine"
)

// batteryPoller periodically reads the battery level characteristic while the
// connection is up and reports through the battery channel only when the
// level actually changed. It is paused whenever the connection leaves
// Connected and resumed on the next Connected transition.
type batteryPoller struct {
	m        *Manager
	interval time.Duration
	service  string
	char     string
	logger   *logrus.Logger

	mu   sync.Mutex
	stop chan struct{}
	last int
}

func newBatteryPoller(m *Manager, interval time.Duration, serviceID, characteristicID string, logger *logrus.Logger) *batteryPoller {
	return &batteryPoller{
		m:        m,
		interval: interval,
		service:  serviceID,
		char:     characteristicID,
		logger:   logger,
		last:     -1,
	}
}

// resume starts the poll loop. No-op when polling is disabled (zero interval
// or no characteristic configured) or already running. The last reported
// level is reset so the first read after a reconnect always notifies.
func (p *batteryPoller) resume() {
	if p.interval <= 0 || p.char == "" {
		return
	}

	p.mu.Lock()
	if p.stop != nil {
		p.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	p.stop = stop
	p.last = -1
	p.mu.Unlock()

	groutine.Go(context.Background(), "battery-poller", func(context.Context) {
		p.loop(stop)
	})
}

// pause stops the poll loop. Idempotent.
func (p *batteryPoller) pause() {
	p.mu.Lock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.mu.Unlock()
}

func (p *batteryPoller) loop(stop chan struct{}) {
	// Controllers without the battery service are never polled.
	if p.service != "" && !p.m.hasService(p.service) {
		if p.logger != nil {
			p.logger.WithField("service", p.service).Debug("Battery service not present, polling disabled")
		}
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Prime immediately so the host learns the level right after connecting.
	p.poll()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *batteryPoller) poll() {
	if p.m.State() != StateConnected {
		return
	}

	err := p.m.Read(p.char, func(data []byte, err error) {
		if err != nil {
			if p.logger != nil {
				p.logger.WithError(err).Debug("Battery read failed")
			}
			return
		}
		if len(data) == 0 {
			return
		}
		level := int(data[0])

		p.mu.Lock()
		changed := level != p.last
		if changed {
			p.last = level
		}
		p.mu.Unlock()

		if changed {
			if p.logger != nil {
				p.logger.WithField("level", level).Debug("Battery level changed")
			}
			p.m.events.sendBattery(level)
		}
	})
	if err != nil && p.logger != nil {
		p.logger.WithError(err).Debug("Battery read not issued")
	}
}
