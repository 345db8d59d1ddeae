package gamepad

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blepad/blepad/internal/groutine"
)

// maxBufferedProgress bounds how many progress callbacks can be waiting at
// once. The callback lane reserves one extra slot for the terminal result, so
// resolve never blocks the caller.
const maxBufferedProgress = 16

// session represents one connect attempt. The manager owns at most one at a
// time; its identity (pointer plus id) is how late driver events for an
// attempt that already resolved get recognized and ignored.
//
// Callbacks run on a per-session goroutine in submission order, which gives
// the contract its two guarantees: progress callbacks always precede the
// terminal result, and the terminal result fires exactly once.
type session struct {
	id      uint64
	target  string
	started time.Time

	// timer is armed by the manager and only touched under the manager's
	// lock; it is not part of the session's own synchronization.
	timer *time.Timer

	onProgress func(stage string)
	onResult   func(err error)

	done     atomic.Bool
	buffered atomic.Int32

	cbMu     sync.Mutex
	cbClosed bool
	cb       chan func()
}

func newSession(id uint64, target string, onProgress func(string), onResult func(error)) *session {
	s := &session{
		id:         id,
		target:     target,
		started:    time.Now(),
		onProgress: onProgress,
		onResult:   onResult,
		cb:         make(chan func(), maxBufferedProgress+1),
	}
	groutine.Go(context.Background(), "connect-callbacks", func(context.Context) {
		for fn := range s.cb {
			fn()
		}
	})
	return s
}

// progress reports a stage to the caller. Progress is best-effort: events are
// dropped rather than ever blocking the reporting goroutine, and nothing is
// reported after the terminal result.
func (s *session) progress(stage string) {
	if s.onProgress == nil || s.done.Load() {
		return
	}
	if s.buffered.Add(1) > maxBufferedProgress {
		s.buffered.Add(-1)
		return
	}

	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	if s.cbClosed {
		s.buffered.Add(-1)
		return
	}
	s.cb <- func() {
		defer s.buffered.Add(-1)
		s.onProgress(stage)
	}
}

// resolve fires the terminal result exactly once and shuts the callback lane
// down. Subsequent calls are no-ops, which is what makes late driver events
// harmless.
func (s *session) resolve(err error) {
	if !s.done.CompareAndSwap(false, true) {
		return
	}

	s.cbMu.Lock()
	s.cbClosed = true
	s.cb <- func() {
		if s.onResult != nil {
			s.onResult(err)
		}
	}
	s.cbMu.Unlock()
	close(s.cb)
}
