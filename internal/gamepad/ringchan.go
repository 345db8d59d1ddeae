package gamepad

import "sync/atomic"

// ringChan is a bounded channel with overwrite-oldest overflow. Producers
// never block: when the buffer is full the oldest buffered element is
// discarded to make room. It backs the dispatcher so the driver's callback
// goroutine can always hand an event off immediately, no matter how slow the
// application handler is.
type ringChan[T any] struct {
	ch      chan T
	dropped atomic.Int64
}

func newRingChan[T any](capacity int) *ringChan[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &ringChan[T]{ch: make(chan T, capacity)}
}

// Send inserts v, discarding the oldest buffered element if full. Never blocks.
func (rc *ringChan[T]) Send(v T) {
	select {
	case rc.ch <- v:
	default:
		select {
		case <-rc.ch: // drop oldest
			rc.dropped.Add(1)
		default:
			// consumer drained it in the meantime
		}
		select {
		case rc.ch <- v:
		default:
			rc.dropped.Add(1) // lost the race again; drop the new value instead
		}
	}
}

// C returns the receive side; consumers range over it until Close.
func (rc *ringChan[T]) C() <-chan T {
	return rc.ch
}

// Close closes the buffer. Sends after Close panic, so producers must be
// stopped first.
func (rc *ringChan[T]) Close() {
	close(rc.ch)
}

// Dropped reports how many elements were discarded due to overflow.
func (rc *ringChan[T]) Dropped() int64 {
	return rc.dropped.Load()
}
