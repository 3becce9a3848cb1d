package longchat

import (
	"fmt"
	"sync"
)

// HandlerFunc consumes one canonical event.
type HandlerFunc func(Event)

// Dispatcher maps each event key to at most one handler. Registering a key
// that already has a handler silently replaces it; the single-owner-per-key
// contract matches the one-screen-at-a-time UI consuming this SDK, so a
// component must register on mount and unregister on teardown.
//
// Each session owns its Dispatcher; it is injected into consumers rather
// than reached through package-level state.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   Logger
}

// NewDispatcher returns an empty registry.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   noopLogger{},
	}
}

// SetLogger overrides the logger (optional).
func (d *Dispatcher) SetLogger(l Logger) {
	if l == nil {
		return
	}
	d.mu.Lock()
	d.logger = l
	d.mu.Unlock()
}

// On registers fn for key, replacing any previous handler.
func (d *Dispatcher) On(key string, fn HandlerFunc) {
	if fn == nil {
		d.Off(key)
		return
	}
	d.mu.Lock()
	d.handlers[key] = fn
	d.mu.Unlock()
}

// Off removes the handler for key.
func (d *Dispatcher) Off(key string) {
	d.mu.Lock()
	delete(d.handlers, key)
	d.mu.Unlock()
}

// Dispatch fans one decoded frame out synchronously: the specific-key
// handler first, then the action-keyed handler when the wrapped form carried
// a known top-level action, then the wildcard. A panicking handler is logged
// and never aborts delivery to the rest.
func (d *Dispatcher) Dispatch(ev Event, shape Shape) {
	if ev.Key != "" {
		if fn := d.handler(ev.Key); fn != nil {
			d.invoke(ev.Key, fn, ev)
		}
	}
	if shape == ShapeWrapped && ev.Action != "" && ev.Action != ev.Key {
		if fn := d.handler(ev.Action); fn != nil {
			d.invoke(ev.Action, fn, ev)
		}
	}
	if fn := d.handler(Wildcard); fn != nil {
		d.invoke(Wildcard, fn, ev)
	}
}

func (d *Dispatcher) handler(key string) HandlerFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.handlers[key]
}

func (d *Dispatcher) invoke(key string, fn HandlerFunc, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.mu.RLock()
			logger := d.logger
			d.mu.RUnlock()
			err := NewError(ErrorHandler, fmt.Sprintf("handler for %s panicked: %v", key, r))
			logger.Error("handler panic", map[string]any{"key": key, "error": err.Error()})
		}
	}()
	fn(ev)
}
