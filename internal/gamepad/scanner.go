package gamepad

import (
	"fmt"
	"sort"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"

	"github.com/blepad/blepad/internal/driver"
)

// PeripheralRecord is the discovered-device metadata kept for the duration of
// a scan session. Records are transient: a new session starts from an empty
// registry, and nothing is persisted across restarts.
type PeripheralRecord struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	RSSI     int       `json:"rssi"`
	Services []string  `json:"services"`
	LastSeen time.Time `json:"last_seen"`
}

// ScanOptions configures a scan session.
type ScanOptions struct {
	// ServiceUUIDs filters advertisements to peripherals advertising at
	// least one of the given services. Optional for foreground scans.
	ServiceUUIDs []string

	// Background marks the scan as running while the host application is
	// backgrounded. The platform requires a service filter for these; a
	// background scan without one is a configuration error.
	Background bool
}

// StartScan begins a discovery session. Discovered peripherals are reported
// through the discovery handler and collected in the session registry
// (see Peripherals). Starting while already scanning is a no-op.
func (m *Manager) StartScan(opts *ScanOptions) error {
	if opts == nil {
		opts = &ScanOptions{}
	}
	if !m.drv.RadioAvailable() {
		return ErrRadioUnavailable
	}
	if opts.Background && len(opts.ServiceUUIDs) == 0 {
		return failure(InvalidScanConfig, nil, "background scanning requires a service UUID filter")
	}

	var filter []string
	if len(opts.ServiceUUIDs) > 0 {
		var err error
		filter, err = driver.ValidateUUIDs(opts.ServiceUUIDs...)
		if err != nil {
			return failure(InvalidScanConfig, err, "service filter")
		}
	}

	m.scanMu.Lock()
	if m.scanning {
		m.scanMu.Unlock()
		return nil
	}
	m.records = hashmap.New[string, *PeripheralRecord]()
	m.scanning = true
	m.scanMu.Unlock()

	if err := m.drv.StartScan(filter); err != nil {
		m.scanMu.Lock()
		m.scanning = false
		m.scanMu.Unlock()
		return fmt.Errorf("start scan: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"filter":     filter,
		"background": opts.Background,
	}).Info("Scan started")
	return nil
}

// StopScan ends the current scan session. Idempotent.
func (m *Manager) StopScan() error {
	m.scanMu.Lock()
	if !m.scanning {
		m.scanMu.Unlock()
		return nil
	}
	m.scanning = false
	m.scanMu.Unlock()

	m.logger.Info("Scan stopped")
	return m.drv.StopScan()
}

// Peripherals returns a snapshot of the current scan session's discoveries,
// strongest signal first. Returns nil if no scan has run yet.
func (m *Manager) Peripherals() []*PeripheralRecord {
	m.scanMu.Lock()
	records := m.records
	m.scanMu.Unlock()
	if records == nil {
		return nil
	}

	out := make([]*PeripheralRecord, 0, records.Len())
	records.Range(func(_ string, rec *PeripheralRecord) bool {
		out = append(out, rec)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].RSSI > out[j].RSSI
	})
	return out
}
