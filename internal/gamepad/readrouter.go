package gamepad

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/blepad/blepad/internal/groutine"
)

// ReadCallback receives the result of a Read request.
type ReadCallback func(data []byte, err error)

// readRouter matches driver read completions back to their callers. Reads
// bypass the write queue entirely: most stacks already serialize reads at the
// driver layer, so concurrent reads on different characteristics are allowed
// and completions are routed per characteristic in FIFO order.
type readRouter struct {
	logger *logrus.Logger

	mu      sync.Mutex
	pending map[string][]ReadCallback
}

func newReadRouter(logger *logrus.Logger) *readRouter {
	return &readRouter{
		logger:  logger,
		pending: make(map[string][]ReadCallback),
	}
}

// add registers a callback for the next completion on characteristicID.
func (r *readRouter) add(characteristicID string, cb ReadCallback) {
	r.mu.Lock()
	r.pending[characteristicID] = append(r.pending[characteristicID], cb)
	r.mu.Unlock()
}

// dropLast removes the most recently added callback for characteristicID.
// Used when the driver rejects the read synchronously and the caller gets the
// error as a return value instead.
func (r *readRouter) dropLast(characteristicID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cbs := r.pending[characteristicID]
	if len(cbs) == 0 {
		return
	}
	if len(cbs) == 1 {
		delete(r.pending, characteristicID)
		return
	}
	r.pending[characteristicID] = cbs[:len(cbs)-1]
}

// complete resolves the oldest pending read on characteristicID.
func (r *readRouter) complete(characteristicID string, data []byte, err error) {
	r.mu.Lock()
	cbs := r.pending[characteristicID]
	if len(cbs) == 0 {
		r.mu.Unlock()
		if r.logger != nil {
			r.logger.WithField("char", characteristicID).Debug("Dropping read completion with no waiter")
		}
		return
	}
	cb := cbs[0]
	if len(cbs) == 1 {
		delete(r.pending, characteristicID)
	} else {
		r.pending[characteristicID] = cbs[1:]
	}
	r.mu.Unlock()

	groutine.Go(context.Background(), "read-complete", func(context.Context) {
		cb(data, err)
	})
}

// flush fails every pending read. Called when the connection drops.
func (r *readRouter) flush(err error) {
	r.mu.Lock()
	var failed []ReadCallback
	for _, cbs := range r.pending {
		failed = append(failed, cbs...)
	}
	r.pending = make(map[string][]ReadCallback)
	r.mu.Unlock()

	for _, cb := range failed {
		cb := cb
		groutine.Go(context.Background(), "read-complete", func(context.Context) {
			cb(nil, err)
		})
	}
}
