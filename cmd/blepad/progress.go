package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// ProgressPrinter displays a single-line status with elapsed or remaining
// time. Single-use: Start at most once, Stop is safe to call repeatedly.
type ProgressPrinter struct {
	prefix    string
	phase     atomic.Value // string
	countdown time.Duration
	started   time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewProgressPrinter creates a printer that shows elapsed seconds.
func NewProgressPrinter(prefix, phase string) *ProgressPrinter {
	p := &ProgressPrinter{
		prefix: prefix,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	p.phase.Store(phase)
	return p
}

// NewCountdownProgressPrinter creates a printer that counts down from duration.
func NewCountdownProgressPrinter(prefix, phase string, duration time.Duration) *ProgressPrinter {
	p := NewProgressPrinter(prefix, phase)
	p.countdown = duration
	return p
}

// SetPhase updates the displayed phase label. Safe from any goroutine.
func (p *ProgressPrinter) SetPhase(phase string) {
	p.phase.Store(phase)
}

// Start begins drawing progress updates in a background goroutine.
func (p *ProgressPrinter) Start() {
	p.started = time.Now()
	fmt.Printf("\r%s (%s...)   ", p.prefix, p.phase.Load().(string))

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(progressUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				phase := p.phase.Load().(string)
				seconds := p.secondsToShow()
				if seconds > 0 {
					fmt.Printf("\r%s (%s %ds)   ", p.prefix, phase, seconds)
				} else {
					fmt.Printf("\r%s (%s...)   ", p.prefix, phase)
				}
			}
		}
	}()
}

func (p *ProgressPrinter) secondsToShow() int {
	elapsed := time.Since(p.started)
	if p.countdown > 0 {
		remaining := p.countdown - elapsed
		if remaining <= 0 {
			return 0
		}
		return int(remaining.Seconds() + 0.5)
	}
	return int(elapsed.Seconds())
}

// Stop ends the display and clears the line. Safe to call more than once.
func (p *ProgressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
		<-p.done
		fmt.Print(clearLineSequence)
	})
}
