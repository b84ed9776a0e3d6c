// Package dispatch fans decoded inbound events out to subscribers: one per
// open conversation, one for the presence tracker, one for the unread
// counter. Delivery order is the arrival order on the single socket.
package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/wayfare-social/wayfare-chat/pkg/wire"
)

// ErrDispatcherClosed is returned when publishing to a closed Dispatcher.
var ErrDispatcherClosed = errors.New("event dispatcher closed")

// Handler receives every published event. Handlers run on the transport's
// read goroutine and must not block.
type Handler func(wire.Event)

type Dispatcher struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]Handler
	closed   atomic.Bool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[uint64]Handler)}
}

// Subscribe registers a handler and returns its unsubscribe func.
// Unsubscribing is synchronous: once the returned func returns, the handler
// will not be invoked again. It must not be called from inside a handler.
func (d *Dispatcher) Subscribe(h Handler) (unsubscribe func()) {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.handlers[id] = h
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.handlers, id)
		d.mu.Unlock()
	}
}

// Publish delivers ev to every current subscriber in arrival order.
// Publishing after Close is a no-op.
func (d *Dispatcher) Publish(ev wire.Event) error {
	if d.closed.Load() {
		return ErrDispatcherClosed
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, h := range d.handlers {
		h(ev)
	}
	return nil
}

// Close drops all subscribers and rejects further publishes.
func (d *Dispatcher) Close() {
	if d.closed.CompareAndSwap(false, true) {
		d.mu.Lock()
		d.handlers = make(map[uint64]Handler)
		d.mu.Unlock()
	}
}
