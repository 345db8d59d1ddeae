package gamepad

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/blepad/blepad/internal/driver"
	"github.com/blepad/blepad/internal/groutine"
)

// pendingWrite is one queued outbound write. Its completion callback resolves
// exactly once, on a goroutine of its own so a slow caller cannot stall the
// pump.
type pendingWrite struct {
	seq        uint64
	char       string
	payload    []byte
	enqueuedAt time.Time

	once   sync.Once
	onDone func(error)
}

func (w *pendingWrite) complete(err error) {
	w.once.Do(func() {
		if w.onDone == nil {
			return
		}
		groutine.Go(context.Background(), "write-complete", func(context.Context) {
			w.onDone(err)
		})
	})
}

// writeQueue serializes outbound writes to the connected peripheral. A single
// pump goroutine dispatches at most one write per rate-limit interval and
// waits for the driver's acknowledgment before touching the next item, so the
// peripheral never sees pipelined or back-to-back writes its firmware cannot
// absorb.
//
// The queue guards its own pending list and reads the manager's state through
// an atomic snapshot, never the manager's lock; the two subsystems cannot
// deadlock each other.
type writeQueue struct {
	drv      driver.Driver
	logger   *logrus.Logger
	interval time.Duration
	state    func() ConnState

	mu      sync.Mutex
	pending *orderedmap.OrderedMap[uint64, *pendingWrite]
	seq     uint64
	target  string        // peripheral bound on connect
	lost    chan struct{} // closed when the bound connection drops

	ack  chan error
	wake chan struct{}
	quit chan struct{}
}

func newWriteQueue(drv driver.Driver, interval time.Duration, state func() ConnState, logger *logrus.Logger) *writeQueue {
	if interval <= 0 {
		interval = 30 * time.Millisecond
	}
	q := &writeQueue{
		drv:      drv,
		logger:   logger,
		interval: interval,
		state:    state,
		pending:  orderedmap.New[uint64, *pendingWrite](),
		ack:      make(chan error, 1),
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
	groutine.Go(context.Background(), "write-pump", q.pump)
	return q
}

// bind points the queue at a freshly connected peripheral.
func (q *writeQueue) bind(peripheralID string) {
	q.mu.Lock()
	q.target = peripheralID
	q.lost = make(chan struct{})
	q.mu.Unlock()
}

// enqueue appends a write in FIFO order. The connection state is re-checked
// under the queue lock so a write racing a disconnect is rejected rather than
// stranded.
func (q *writeQueue) enqueue(characteristicID string, payload []byte, onDone func(error)) error {
	q.mu.Lock()
	if q.state() != StateConnected || q.lost == nil {
		q.mu.Unlock()
		return ErrNotConnected
	}
	q.seq++
	w := &pendingWrite{
		seq:        q.seq,
		char:       characteristicID,
		payload:    append([]byte(nil), payload...),
		enqueuedAt: time.Now(),
		onDone:     onDone,
	}
	q.pending.Set(w.seq, w)
	depth := q.pending.Len()
	q.mu.Unlock()

	if q.logger != nil {
		q.logger.WithFields(logrus.Fields{
			"char":  characteristicID,
			"bytes": len(payload),
			"depth": depth,
		}).Debug("Write queued")
	}

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// completeInFlight delivers the driver's acknowledgment for the current
// in-flight write. Acks with no waiting write are dropped.
func (q *writeQueue) completeInFlight(err error) {
	select {
	case q.ack <- err:
	default:
	}
}

// flush resolves every queued write with err without invoking the driver, and
// releases the pump's wait on the in-flight write, if any. Called on both
// solicited and unsolicited disconnects, after the state snapshot has already
// left Connected.
func (q *writeQueue) flush(err error) {
	q.mu.Lock()
	var failed []*pendingWrite
	for pair := q.pending.Oldest(); pair != nil; pair = pair.Next() {
		failed = append(failed, pair.Value)
	}
	q.pending = orderedmap.New[uint64, *pendingWrite]()
	lost := q.lost
	q.lost = nil
	q.mu.Unlock()

	if lost != nil {
		close(lost)
	}
	if len(failed) > 0 && q.logger != nil {
		q.logger.WithField("count", len(failed)).Info("Flushed queued writes")
	}
	for _, w := range failed {
		w.complete(err)
	}
}

// close stops the pump permanently and fails anything still queued.
func (q *writeQueue) close() {
	close(q.quit)
	q.flush(ErrConnectionLost)
}

// dequeue pops the oldest queued write along with the bound target and its
// loss channel. Returns nil when the queue is empty or no connection is bound.
func (q *writeQueue) dequeue() (w *pendingWrite, target string, lost chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.lost == nil {
		return nil, "", nil
	}
	pair := q.pending.Oldest()
	if pair == nil {
		return nil, "", nil
	}
	q.pending.Delete(pair.Key)
	return pair.Value, q.target, q.lost
}

func (q *writeQueue) pump(ctx context.Context) {
	var lastDispatch time.Time
	for {
		select {
		case <-q.quit:
			return
		case <-q.wake:
		}

		for {
			w, target, lost := q.dequeue()
			if w == nil {
				break
			}
			if q.state() != StateConnected {
				w.complete(ErrConnectionLost)
				continue
			}

			// Enforce the minimum spacing since the previous dispatch.
			if wait := q.interval - time.Since(lastDispatch); wait > 0 {
				select {
				case <-q.quit:
					w.complete(ErrConnectionLost)
					return
				case <-time.After(wait):
				}
			}

			// Discard a stale ack left over from a flushed connection.
			select {
			case <-q.ack:
			default:
			}

			lastDispatch = time.Now()
			if err := q.drv.Write(target, w.char, w.payload); err != nil {
				w.complete(failure(WriteRejected, err, "driver refused write"))
				continue
			}
			if q.logger != nil {
				q.logger.WithFields(logrus.Fields{
					"char":   w.char,
					"bytes":  len(w.payload),
					"waited": time.Since(w.enqueuedAt),
					"seq":    w.seq,
					"target": target,
				}).Debug("Write dispatched")
			}

			select {
			case err := <-q.ack:
				w.complete(translateWriteAck(err))
			case <-lost:
				// Connection dropped mid-flight; prefer an ack that raced in.
				select {
				case err := <-q.ack:
					w.complete(translateWriteAck(err))
				default:
					w.complete(ErrConnectionLost)
				}
			case <-q.quit:
				w.complete(ErrConnectionLost)
				return
			}
		}
	}
}

// translateWriteAck maps a driver acknowledgment into the error taxonomy.
func translateWriteAck(err error) error {
	if err == nil {
		return nil
	}
	return failure(WriteRejected, err, "peripheral rejected write")
}
